package handlers

import (
	"net/http"

	"github.com/codemaster/backend/internal/game"
	"github.com/gin-gonic/gin"
)

// GetStatus returns lobby population and the current game, if any.
func GetStatus(coord *game.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, coord.StatusSnapshot())
	}
}
