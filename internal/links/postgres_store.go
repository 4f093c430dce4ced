package links

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore persists the link catalog in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed link store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, link *Link) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO links (id, title, url, icon, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, link.ID, link.Title, link.URL, link.Icon, link.Active, link.CreatedAt, link.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Link, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, url, icon, active, created_at, updated_at
		FROM links WHERE id = $1
	`, id)

	var l Link
	err := row.Scan(&l.ID, &l.Title, &l.URL, &l.Icon, &l.Active, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return &l, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, url, icon, active, created_at, updated_at
		FROM links
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.Title, &l.URL, &l.Icon, &l.Active, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		result = append(result, &l)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, link *Link) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE links SET title = $2, url = $3, icon = $4, active = $5, updated_at = $6
		WHERE id = $1
	`, link.ID, link.Title, link.URL, link.Icon, link.Active, link.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
