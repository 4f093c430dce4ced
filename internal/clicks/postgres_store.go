package clicks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists clicks in PostgreSQL. The unique index on token
// turns a duplicate record into an error instead of a second row.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed click store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, c *Click) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clicks (id, link_id, actor_id, token, ts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		c.ID,
		c.LinkID,
		c.ActorID,
		c.Token,
		c.Timestamp,
		c.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("click token already recorded")
		}
		return fmt.Errorf("failed to record click: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Click, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, link_id, actor_id, token, ts, created_at
		FROM clicks
		WHERE id = $1
	`, id)

	var c Click
	if err := row.Scan(&c.ID, &c.LinkID, &c.ActorID, &c.Token, &c.Timestamp, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get click: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) ListByActor(ctx context.Context, actorID string, limit int) ([]*Click, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, link_id, actor_id, token, ts, created_at
		FROM clicks
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	var result []*Click
	for rows.Next() {
		var c Click
		if err := rows.Scan(&c.ID, &c.LinkID, &c.ActorID, &c.Token, &c.Timestamp, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}
