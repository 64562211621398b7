package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/halodent/clinic-api/internal/models"
	"github.com/halodent/clinic-api/internal/service"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
	"github.com/halodent/clinic-api/pkg/response"
)

// ContextBranchKey is the gin context key storing the resolved branch.
const ContextBranchKey = "currentBranch"

// Branch resolves the :branchId path parameter into a branch record and
// stores it on the context. Unknown branches terminate the request.
func Branch(branchService *service.BranchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		branchID := c.Param("branchId")
		if branchID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing branch id"))
			c.Abort()
			return
		}

		branch, err := branchService.Get(c.Request.Context(), branchID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextBranchKey, branch)
		c.Next()
	}
}

// BranchFromContext returns the branch resolved by the Branch middleware.
func BranchFromContext(c *gin.Context) *models.Branch {
	if value, exists := c.Get(ContextBranchKey); exists {
		if branch, ok := value.(*models.Branch); ok {
			return branch
		}
	}
	return nil
}
