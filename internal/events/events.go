// Package events publishes match lifecycle notifications to Redis so
// external consumers (dashboards, bots) can follow games without touching
// the game server itself.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel is the pub/sub channel match events are published on.
const Channel = "game_events"

// Publisher sends match events to Redis. A nil Publisher (or one built from
// a nil client) is a no-op, so callers never guard their publish calls.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// MatchStarted announces a new match and its participants.
func (p *Publisher) MatchStarted(gameID string, players []string) {
	p.publish(map[string]any{
		"type":    "match_started",
		"game_id": gameID,
		"players": players,
	})
}

// MatchEnded announces a finished match. Winner is empty when nobody won.
func (p *Publisher) MatchEnded(gameID, winner, secret string) {
	p.publish(map[string]any{
		"type":        "match_ended",
		"game_id":     gameID,
		"winner":      winner,
		"secret_code": secret,
	})
}

func (p *Publisher) publish(payload map[string]any) {
	if p == nil || p.rdb == nil {
		return
	}

	payload["ts"] = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[EVENTS] Failed to marshal event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.rdb.Publish(ctx, Channel, data).Err(); err != nil {
		log.Printf("[EVENTS] Publish to %s failed: %v", Channel, err)
	}
}
