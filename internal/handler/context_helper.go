package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/halodent/clinic-api/internal/middleware"
	"github.com/halodent/clinic-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func branchIDFromContext(c *gin.Context) string {
	if branch := middleware.BranchFromContext(c); branch != nil {
		return branch.ID
	}
	return c.Param("branchId")
}
