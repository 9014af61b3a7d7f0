package api

import (
	"github.com/codemaster/backend/internal/api/handlers"
	"github.com/codemaster/backend/internal/game"
	"github.com/codemaster/backend/internal/record"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures the admin API. It is read-only: game state is
// mutated over the TCP protocol, never over HTTP.
func SetupRoutes(router *gin.Engine, coord *game.Coordinator, recorder record.Recorder) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)
		v1.GET("/status", handlers.GetStatus(coord))
		v1.GET("/matches/recent", handlers.GetRecentMatches(recorder))
	}
}
