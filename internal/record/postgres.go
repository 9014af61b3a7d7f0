package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// PostgresRecorder stores finished matches as rows in match_records. Each
// match is a single INSERT.
type PostgresRecorder struct {
	db *sqlx.DB
}

func NewPostgresRecorder(db *sqlx.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

type matchRow struct {
	ID         int            `db:"id"`
	GameID     string         `db:"game_id"`
	StartTime  sql.NullTime   `db:"start_time"`
	EndTime    sql.NullTime   `db:"end_time"`
	SecretCode string         `db:"secret_code"`
	Winner     sql.NullString `db:"winner"`
	Players    []byte         `db:"players"`
}

func (r *PostgresRecorder) Record(ctx context.Context, m Match) (string, error) {
	players, err := json.Marshal(m.Players)
	if err != nil {
		return "", fmt.Errorf("marshaling players for %s: %w", m.GameID, err)
	}

	winner := sql.NullString{String: m.Winner, Valid: m.Winner != ""}

	var id int
	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO match_records (game_id, start_time, end_time, secret_code, winner, players, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, NOW())
		RETURNING id
	`, m.GameID, m.StartTime, m.EndTime, m.SecretCode, winner, string(players)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("inserting match %s: %w", m.GameID, err)
	}

	return fmt.Sprintf("match_records/%d", id), nil
}

func (r *PostgresRecorder) Recent(ctx context.Context, limit int) ([]Match, error) {
	var rows []matchRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, game_id, start_time, end_time, secret_code, winner, players
		FROM match_records
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying match records: %w", err)
	}

	var results []Match
	for _, row := range rows {
		var players []PlayerResult
		if err := json.Unmarshal(row.Players, &players); err != nil {
			log.Printf("[RECORD] Skipping malformed record match_records/%d: %v", row.ID, err)
			continue
		}
		m := Match{
			GameID:     row.GameID,
			SecretCode: row.SecretCode,
			Winner:     row.Winner.String,
			Players:    players,
		}
		if row.StartTime.Valid {
			m.StartTime = row.StartTime.Time
		}
		if row.EndTime.Valid {
			m.EndTime = row.EndTime.Time
		}
		results = append(results, m)
	}
	return results, nil
}
