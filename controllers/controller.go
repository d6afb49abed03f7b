// Package controllers holds the gin handlers. Each handler binds the
// request, calls one service and writes JSON.
package controllers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"pos-backoffice/apperr"
	"pos-backoffice/middleware"
	"pos-backoffice/services"
	"pos-backoffice/store"
)

const requestTimeout = 10 * time.Second

// Controller holds the dependencies shared by every handler.
type Controller struct {
	Auth     *services.AuthService
	Products *services.ProductService
	Orders   *services.OrderService
	Summary  *services.SummaryService
	Store    store.Store

	// SecureCookies marks the session cookie Secure (HTTPS only).
	SecureCookies bool
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// bindError turns a gin binding failure into a validation error naming the
// first offending field.
func bindError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return apperr.Validation("Invalid request body")
	}
	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperr.Validation("%s is required", field)
	case "email":
		return apperr.Validation("%s must be a valid email", field)
	case "phone10":
		return apperr.Validation("%s must be exactly 10 digits", field)
	case "orderstatus":
		return apperr.Validation("%s must be Pending or Completed", field)
	case "min":
		return apperr.Validation("%s must have at least %s characters or items", field, fe.Param())
	case "gt":
		return apperr.Validation("%s must be greater than %s", field, fe.Param())
	case "gte":
		return apperr.Validation("%s must be at least %s", field, fe.Param())
	default:
		return apperr.Validation("%s is invalid", field)
	}
}

// optionalFile returns the uploaded file under key, or nil when the request
// carries none.
// optionalFile returns the upload under the first of keys that carries one.
func optionalFile(c *gin.Context, keys ...string) *multipart.FileHeader {
	for _, key := range keys {
		if fh, err := c.FormFile(key); err == nil {
			return fh
		}
	}
	return nil
}

// HealthCheck reports whether the store answers.
func (ctrl *Controller) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "connected"
	status := http.StatusOK
	if err := ctrl.Store.Ping(ctx); err != nil {
		dbStatus = "disconnected"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":    http.StatusText(status),
		"database":  dbStatus,
		"timestamp": time.Now().Unix(),
	})
}

// NotFound answers unknown routes in the common error shape.
func NotFound(c *gin.Context) {
	respondError(c, apperr.NotFound(fmt.Sprintf("Endpoint %s %s", c.Request.Method, c.Request.URL.Path)))
}
