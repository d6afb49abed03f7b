package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pos-backoffice/middleware"
	"pos-backoffice/models"
)

func (ctrl *Controller) GetOrders(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	orders, err := ctrl.Orders.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(orders), "orders": orders})
}

func (ctrl *Controller) GetOrder(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := ctrl.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// CreateOrder stores a Pending order, or checks out at once when the body
// asks for "Completed".
func (ctrl *Controller) CreateOrder(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	order, err := ctrl.Orders.Create(ctx, req, middleware.CurrentAdmin(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order": order})
}

// UpdateOrderStatus runs a lifecycle transition.
func (ctrl *Controller) UpdateOrderStatus(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.OrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	order, err := ctrl.Orders.UpdateStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// UpdateOrder replaces the lines and customer fields of an order.
func (ctrl *Controller) UpdateOrder(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	order, err := ctrl.Orders.Update(ctx, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func (ctrl *Controller) DeleteOrder(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := ctrl.Orders.Delete(ctx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order deleted successfully"})
}
