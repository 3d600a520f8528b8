package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresBlobStore struct {
	db *sql.DB
}

func NewPostgresBlobStore(db *sql.DB) *PostgresBlobStore {
	return &PostgresBlobStore{db: db}
}

func (s *PostgresBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM blobs WHERE key=$1`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return data, nil
}

func (s *PostgresBlobStore) Put(ctx context.Context, key string, data []byte) error {
	query := `INSERT INTO blobs (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("put blob: %w", err)
	}
	return nil
}
