package abuse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/earnlink/earnlink/internal/pagination"
)

// PostgresStore persists violations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed violation store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, v *Violation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO violations (id, actor_id, type, severity, click_interval, pattern_match, click_count, ts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		v.ID,
		v.ActorID,
		string(v.Type),
		string(v.Severity),
		v.ClickInterval,
		v.PatternMatch,
		v.ClickCount,
		v.Timestamp,
		v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record violation: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Violation, error) {
	return s.query(ctx, `
		SELECT id, actor_id, type, severity, click_interval, pattern_match, click_count, ts, created_at
		FROM violations
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
}

func (s *PostgresStore) ListByActor(ctx context.Context, actorID string, limit int) ([]*Violation, error) {
	return s.query(ctx, `
		SELECT id, actor_id, type, severity, click_interval, pattern_match, click_count, ts, created_at
		FROM violations
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, actorID, limit)
}

func (s *PostgresStore) ListPage(ctx context.Context, before *pagination.Cursor, limit int) ([]*Violation, error) {
	if before == nil {
		return s.List(ctx, limit)
	}
	return s.query(ctx, `
		SELECT id, actor_id, type, severity, click_interval, pattern_match, click_count, ts, created_at
		FROM violations
		WHERE (created_at, id) < ($1, $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, before.CreatedAt, before.ID, limit)
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]*Violation, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Violation
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.ID, &v.ActorID, &v.Type, &v.Severity,
			&v.ClickInterval, &v.PatternMatch, &v.ClickCount, &v.Timestamp, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		result = append(result, &v)
	}
	return result, rows.Err()
}
