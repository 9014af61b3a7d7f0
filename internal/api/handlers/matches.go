package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/codemaster/backend/internal/record"
	"github.com/gin-gonic/gin"
)

const defaultRecentLimit = 10

type matchResponse struct {
	GameID     string                `json:"game_id"`
	StartTime  string                `json:"start_time"`
	EndTime    string                `json:"end_time"`
	SecretCode string                `json:"secret_code"`
	Winner     *string               `json:"winner"`
	Players    []record.PlayerResult `json:"players"`
}

// GetRecentMatches returns the most recently finished matches, newest first.
func GetRecentMatches(recorder record.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultRecentLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		matches, err := recorder.Recent(c.Request.Context(), limit)
		if err != nil {
			log.Printf("[API] Failed to load recent matches: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load match records"})
			return
		}

		out := make([]matchResponse, 0, len(matches))
		for _, m := range matches {
			resp := matchResponse{
				GameID:     m.GameID,
				StartTime:  m.StartTime.Format(time.RFC3339),
				EndTime:    m.EndTime.Format(time.RFC3339),
				SecretCode: m.SecretCode,
				Players:    m.Players,
			}
			if m.Winner != "" {
				w := m.Winner
				resp.Winner = &w
			}
			out = append(out, resp)
		}

		c.JSON(http.StatusOK, gin.H{"matches": out, "count": len(out)})
	}
}
