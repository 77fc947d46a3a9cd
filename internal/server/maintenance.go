package server

import (
	"net/http"

	"github.com/abduss/homelist/internal/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// registerMaintenanceRoutes mounts operator endpoints. They are only mounted
// behind a guard.
func registerMaintenanceRoutes(group *gin.RouterGroup, sweeper Sweeper, guard gin.HandlerFunc) {
	group.POST("/maintenance/sweep", guard, func(c *gin.Context) {
		subject := ""
		if claims, ok := auth.CurrentClaims(c); ok {
			subject = claims.Subject
		}

		result, err := sweeper.RunOnce(c.Request.Context())
		if err != nil {
			zap.L().Error("manual sweep", zap.String("subject", subject), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep failed"})
			return
		}
		zap.L().Info("manual sweep",
			zap.String("subject", subject),
			zap.Int("removed", result.Removed),
			zap.Int("temp_removed", result.TempRemoved),
		)
		c.JSON(http.StatusOK, result)
	})
}
