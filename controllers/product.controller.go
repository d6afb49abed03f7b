package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pos-backoffice/middleware"
	"pos-backoffice/models"
)

// GetProducts lists products, optionally filtered by ?category= and ?search=.
func (ctrl *Controller) GetProducts(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	products, err := ctrl.Products.List(ctx, models.ProductFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(products), "products": products})
}

// CreateProduct accepts a multipart form with an optional "image", or JSON.
func (ctrl *Controller) CreateProduct(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.ProductRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	product, err := ctrl.Products.Create(ctx, req, middleware.CurrentAdmin(c).ID, optionalFile(c, "image"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "product": product})
}

func (ctrl *Controller) GetProduct(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	product, err := ctrl.Products.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
}

// UpdateProduct edits the given fields; absent fields are kept.
func (ctrl *Controller) UpdateProduct(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var upd models.ProductUpdate
	if err := c.ShouldBind(&upd); err != nil {
		respondError(c, bindError(err))
		return
	}

	product, err := ctrl.Products.Update(ctx, c.Param("id"), upd, optionalFile(c, "image"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
}

func (ctrl *Controller) DeleteProduct(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := ctrl.Products.Delete(ctx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product deleted successfully"})
}
