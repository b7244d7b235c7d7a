package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dixieflatline76/ProductScene/pkg/record"
	_ "github.com/lib/pq"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS generations (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	payload    JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS favorites (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	payload    JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// PostgresStore keeps each collection in its own table.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens a connection, creates the tables if needed and
// returns a store instance.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// LoadHistory implements Store.
func (s *PostgresStore) LoadHistory(ctx context.Context) ([]record.Generation, error) {
	var history []record.Generation
	err := s.loadAll(ctx, `SELECT payload FROM generations ORDER BY created_at DESC`, func(raw []byte) error {
		var g record.Generation
		if err := json.Unmarshal(raw, &g); err != nil {
			return err
		}
		history = append(history, g)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}

// SaveHistory implements Store.
func (s *PostgresStore) SaveHistory(ctx context.Context, history []record.Generation) error {
	rows := make([]row, len(history))
	for i, g := range history {
		rows[i] = row{id: g.ID, createdAt: g.CreatedAt, payload: g}
	}
	if err := s.replaceAll(ctx, "generations", rows); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// LoadFavorites implements Store.
func (s *PostgresStore) LoadFavorites(ctx context.Context) ([]record.Favorite, error) {
	var favorites []record.Favorite
	err := s.loadAll(ctx, `SELECT payload FROM favorites ORDER BY created_at DESC`, func(raw []byte) error {
		var f record.Favorite
		if err := json.Unmarshal(raw, &f); err != nil {
			return err
		}
		favorites = append(favorites, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	return favorites, nil
}

// SaveFavorites implements Store.
func (s *PostgresStore) SaveFavorites(ctx context.Context, favorites []record.Favorite) error {
	rows := make([]row, len(favorites))
	for i, f := range favorites {
		rows[i] = row{id: f.ID, createdAt: f.CreatedAt, payload: f}
	}
	if err := s.replaceAll(ctx, "favorites", rows); err != nil {
		return fmt.Errorf("save favorites: %w", err)
	}
	return nil
}

// LoadBrandKit implements Store.
func (s *PostgresStore) LoadBrandKit(ctx context.Context) (*record.BrandKit, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, BrandKitKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load brand kit: %w", err)
	}
	var kit record.BrandKit
	if err := json.Unmarshal(raw, &kit); err != nil {
		return nil, fmt.Errorf("decode brand kit: %w", err)
	}
	return &kit, nil
}

// SaveBrandKit implements Store.
func (s *PostgresStore) SaveBrandKit(ctx context.Context, kit record.BrandKit) error {
	raw, err := json.Marshal(kit)
	if err != nil {
		return fmt.Errorf("encode brand kit: %w", err)
	}
	query := `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, query, BrandKitKey, string(raw)); err != nil {
		return fmt.Errorf("save brand kit: %w", err)
	}
	return nil
}

type row struct {
	id        string
	createdAt time.Time
	payload   any
}

// replaceAll clears table and inserts rows in one transaction.
func (s *PostgresStore) replaceAll(ctx context.Context, table string, rows []row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (id, created_at, payload) VALUES ($1, $2, $3)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		raw, err := json.Marshal(r.payload)
		if err != nil {
			return fmt.Errorf("encode %s: %w", r.id, err)
		}
		if _, err := stmt.ExecContext(ctx, r.id, r.createdAt, string(raw)); err != nil {
			return fmt.Errorf("insert %s: %w", r.id, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) loadAll(ctx context.Context, query string, scan func([]byte) error) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		if err := scan(raw); err != nil {
			return err
		}
	}
	return rows.Err()
}
