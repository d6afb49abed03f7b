package middleware

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"pos-backoffice/apperr"
)

// AbortWithError writes err as the JSON error body and stops the chain.
// Causes of internal and upstream failures are logged, never sent.
func AbortWithError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindInternal, apperr.KindUpstream:
		slog.Error("Request failed",
			"request_id", RequestID(c),
			"path", c.Request.URL.Path,
			"kind", kind,
			"error", err,
		)
	}

	body := gin.H{
		"success": false,
		"message": apperr.PublicMessage(err),
		"code":    kind,
	}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.ProductID != "" {
		body["product_id"] = ae.ProductID
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), body)
}
