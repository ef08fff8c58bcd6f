// Package snapshots records periodic summaries of each user's holdings.
package snapshots

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
)

// DefaultLimit caps List when the caller gives no limit
const DefaultLimit = 30

// Snapshot is a PortfolioSummary as it stood at TakenAt
type Snapshot struct {
	TakenAt    time.Time               `json:"taken_at"`
	Summary    domain.PortfolioSummary `json:"summary"`
	UserID     string                  `json:"user_id"`
	ID         int64                   `json:"id"`
	TotalValue float64                 `json:"total_value"`
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository stores snapshots in the summary_snapshots table.
// The summary is stored as a msgpack blob keyed by its JSON field names.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a snapshot repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Record stores summary as userID's snapshot at takenAt
func (r *Repository) Record(ctx context.Context, userID string, takenAt time.Time, summary domain.PortfolioSummary) (Snapshot, error) {
	return r.record(ctx, r.db, userID, takenAt, summary)
}

// RecordAndPrune stores a snapshot and deletes userID's snapshots taken
// before cutoff in one transaction. Either both happen or neither does.
func (r *Repository) RecordAndPrune(ctx context.Context, userID string, takenAt time.Time, summary domain.PortfolioSummary, cutoff time.Time) (Snapshot, int64, error) {
	var (
		snapshot Snapshot
		pruned   int64
	)
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		if snapshot, err = r.record(ctx, tx, userID, takenAt, summary); err != nil {
			return err
		}
		pruned, err = r.prune(ctx, tx, userID, cutoff)
		return err
	})
	if err != nil {
		return Snapshot{}, 0, err
	}
	return snapshot, pruned, nil
}

func (r *Repository) record(ctx context.Context, db execer, userID string, takenAt time.Time, summary domain.PortfolioSummary) (Snapshot, error) {
	payload, err := encode(summary)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	takenAt = takenAt.UTC()
	result, err := db.ExecContext(ctx,
		`INSERT INTO summary_snapshots (user_id, taken_at, total_value, payload) VALUES (?, ?, ?, ?)`,
		userID, takenAt.Format(time.RFC3339Nano), summary.TotalValue, payload)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot id: %w", err)
	}

	r.log.Debug().Str("user_id", userID).Int64("id", id).Msg("Snapshot recorded")
	return Snapshot{
		ID:         id,
		UserID:     userID,
		TakenAt:    takenAt,
		TotalValue: summary.TotalValue,
		Summary:    summary,
	}, nil
}

// List returns userID's most recent snapshots, newest first
func (r *Repository) List(ctx context.Context, userID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, taken_at, total_value, payload FROM summary_snapshots
		WHERE user_id = ? ORDER BY taken_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, limit)
	for rows.Next() {
		var (
			s       Snapshot
			takenAt string
			payload []byte
		)
		if err := rows.Scan(&s.ID, &takenAt, &s.TotalValue, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if s.TakenAt, err = time.Parse(time.RFC3339Nano, takenAt); err != nil {
			return nil, fmt.Errorf("invalid snapshot timestamp %q: %w", takenAt, err)
		}
		if err := decode(payload, &s.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %d: %w", s.ID, err)
		}
		s.UserID = userID
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// Prune deletes userID's snapshots taken before cutoff
func (r *Repository) Prune(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	return r.prune(ctx, r.db, userID, cutoff)
}

func (r *Repository) prune(ctx context.Context, db execer, userID string, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM summary_snapshots WHERE user_id = ? AND taken_at < ?`,
		userID, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return result.RowsAffected()
}

func encode(summary domain.PortfolioSummary) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(summary); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(payload []byte, summary *domain.PortfolioSummary) error {
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	dec.SetCustomStructTag("json")
	return dec.Decode(summary)
}
