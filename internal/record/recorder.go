// Package record persists finished matches and enumerates recent ones.
package record

import (
	"context"
	"time"
)

// PlayerResult is one player's attempt count in a finished match.
type PlayerResult struct {
	ID       string `xml:"id" json:"id" db:"player_id"`
	Attempts int    `xml:"attempts" json:"attempts" db:"attempts"`
}

// Match is one finished game. Winner is "" when nobody guessed the code.
type Match struct {
	GameID     string
	StartTime  time.Time
	EndTime    time.Time
	SecretCode string
	Winner     string
	Players    []PlayerResult
}

// Recorder is the durable sink for finished matches. Record returns a
// locator (file path or row id) for the stored document; Recent returns up
// to limit records, newest first, skipping anything malformed.
//
// The interface stays narrow on purpose: the coordinator only ever records,
// the admin API only ever reads, and tests swap in the in-memory
// implementation.
type Recorder interface {
	Record(ctx context.Context, m Match) (string, error)
	Recent(ctx context.Context, limit int) ([]Match, error)
}
