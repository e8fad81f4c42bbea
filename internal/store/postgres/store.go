// Package postgres backs the leads.Store contract with a Postgres table,
// for deployments that have outgrown the spreadsheet.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/skillverse/leadgen/internal/leads"
	"github.com/skillverse/leadgen/internal/phone"
)

// DB is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS leads (
	id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	phone_digits TEXT,
	profession   TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'New',
	email        TEXT NOT NULL DEFAULT '',
	website      TEXT NOT NULL DEFAULT '',
	address      TEXT NOT NULL DEFAULT '',
	query        TEXT NOT NULL DEFAULT '',
	rating       TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS leads_phone_digits_key ON leads (phone_digits);
`

// insertLead refuses rows whose normalized phone digits or lowercased name
// already exist, so dedup holds even when two runs race.
const insertLead = `
INSERT INTO leads (name, phone, phone_digits, profession, email, website, address, query, rating)
SELECT $1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9
WHERE NOT EXISTS (
	SELECT 1 FROM leads WHERE $1 <> '' AND lower(name) = lower($1)
)
ON CONFLICT (phone_digits) DO NOTHING`

// Store implements leads.Store on Postgres.
type Store struct {
	db     DB
	logger *zap.Logger
}

// New connects a pool and ensures the schema.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	return NewWithDB(ctx, pool, logger)
}

// NewWithDB wraps an existing connection, applying the schema.
func NewWithDB(ctx context.Context, db DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.db.Close()
}

// LoadExisting implements leads.Store.
func (s *Store) LoadExisting(ctx context.Context) (map[string]struct{}, map[string]struct{}, error) {
	rows, err := s.db.Query(ctx, `SELECT COALESCE(phone_digits, ''), lower(name) FROM leads`)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: load existing: %w", err)
	}
	defer rows.Close()

	phones := make(map[string]struct{})
	names := make(map[string]struct{})
	for rows.Next() {
		var digits, name string
		if err := rows.Scan(&digits, &name); err != nil {
			return nil, nil, fmt.Errorf("postgres: scan existing: %w", err)
		}
		if digits != "" {
			phones[digits] = struct{}{}
		}
		if name = strings.TrimSpace(name); name != "" {
			names[name] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("postgres: load existing: %w", err)
	}
	return phones, names, nil
}

// AppendIfNew implements leads.Store. Uniqueness is enforced in the insert
// itself, so the result reflects the table at commit time.
func (s *Store) AppendIfNew(ctx context.Context, lead leads.Lead) (bool, error) {
	tag, err := s.db.Exec(ctx, insertLead,
		lead.Name, lead.Phone, phone.Digits(lead.Phone),
		lead.Profession, lead.Email, lead.Website,
		lead.Address, lead.Query, lead.Rating)
	if err != nil {
		return false, fmt.Errorf("postgres: insert lead: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListRows implements leads.Store.
func (s *Store) ListRows(ctx context.Context) ([]leads.Row, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, phone, profession, status, email, website, address, query, rating
		FROM leads ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list rows: %w", err)
	}
	defer rows.Close()

	var out []leads.Row
	for rows.Next() {
		var r leads.Row
		var status string
		if err := rows.Scan(&r.ID, &r.Lead.Name, &r.Lead.Phone, &r.Lead.Profession, &status,
			&r.Lead.Email, &r.Lead.Website, &r.Lead.Address, &r.Lead.Query, &r.Lead.Rating); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		r.Status = leads.Status(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list rows: %w", err)
	}
	return out, nil
}

// UpdateStatus implements leads.Store.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status leads.Status) error {
	if _, err := s.db.Exec(ctx, `UPDATE leads SET status = $2 WHERE id = $1`, id, string(status)); err != nil {
		return fmt.Errorf("postgres: update status row %d: %w", id, err)
	}
	return nil
}
