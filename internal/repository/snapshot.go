package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNoSnapshot = errors.New("no catalog snapshot stored")

// Snapshot is a catalog document that passed validation, kept verbatim so that a
// restarted engine can serve it before the source is reachable again.
type Snapshot struct {
	Digest   string
	Source   string
	Format   string
	Data     []byte
	Entities int
	LoadedAt time.Time
}

type SnapshotRepository interface {
	EnsureSchema(ctx context.Context) error
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
	LatestSnapshot(ctx context.Context) (*Snapshot, error)
}

// DB is the part of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type snapshotRepository struct {
	db DB
}

func NewSnapshotRepository(db DB) SnapshotRepository {
	return &snapshotRepository{
		db: db,
	}
}

func (r *snapshotRepository) EnsureSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS catalog_snapshots (
		digest     TEXT PRIMARY KEY,
		source     TEXT NOT NULL DEFAULT '',
		format     TEXT NOT NULL,
		data       BYTEA NOT NULL,
		entities   INT NOT NULL DEFAULT 0,
		loaded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_catalog_snapshots_loaded_at ON catalog_snapshots (loaded_at DESC);`
	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create catalog_snapshots: %w", err)
	}
	return nil
}

// SaveSnapshot stores a document keyed by its digest. Saving the same document again
// only refreshes loaded_at.
func (r *snapshotRepository) SaveSnapshot(ctx context.Context, s *Snapshot) error {
	query := `
	INSERT INTO catalog_snapshots (digest, source, format, data, entities, loaded_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (digest)
	DO UPDATE SET source = $2, loaded_at = $6`
	_, err := r.db.Exec(ctx, query, s.Digest, s.Source, s.Format, s.Data, s.Entities, s.LoadedAt)
	if err != nil {
		return fmt.Errorf("failed to save catalog snapshot: %w", err)
	}

	return nil
}

func (r *snapshotRepository) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	query := `
	SELECT digest, source, format, data, entities, loaded_at
	FROM catalog_snapshots
	ORDER BY loaded_at DESC
	LIMIT 1`

	var s Snapshot
	err := r.db.QueryRow(ctx, query).Scan(&s.Digest, &s.Source, &s.Format, &s.Data, &s.Entities, &s.LoadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to load latest catalog snapshot: %w", err)
	}

	return &s, nil
}
