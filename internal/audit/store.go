package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertEntrySQL = `INSERT INTO console_activity (actor, action, entity, entity_id, meta, at)
VALUES ($1, $2, $3, $4, $5, $6)`

const recentEntriesSQL = `SELECT actor, action, entity, entity_id, meta, at
FROM console_activity
ORDER BY at DESC, id DESC
LIMIT $1`

// PGStore keeps entries in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps a pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Write inserts one entry.
func (s *PGStore) Write(ctx context.Context, e Entry) error {
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("audit: encode meta: %w", err)
	}
	if _, err := s.pool.Exec(ctx, insertEntrySQL, e.Actor, e.Action, e.Entity, e.EntityID, meta, e.At); err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// Recent lists the newest entries.
func (s *PGStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, recentEntriesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("audit: scan recent: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.CollectableRow) (Entry, error) {
	var (
		e    Entry
		meta []byte
	)
	if err := row.Scan(&e.Actor, &e.Action, &e.Entity, &e.EntityID, &meta, &e.At); err != nil {
		return Entry{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Meta); err != nil {
			return Entry{}, err
		}
	}
	return e, nil
}
