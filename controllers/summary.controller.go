package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSummary returns the dashboard figures.
func (ctrl *Controller) GetSummary(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	summary, err := ctrl.Summary.Summary(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}
