package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"escuela/internal/registration/models"
	"escuela/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS registrations (
	id                 TEXT PRIMARY KEY,
	id_number          TEXT NOT NULL,
	full_name          TEXT NOT NULL,
	phone              TEXT NOT NULL,
	city               TEXT NOT NULL,
	department         TEXT NOT NULL,
	profession         TEXT NOT NULL,
	venture_name       TEXT NOT NULL,
	social_media       TEXT NOT NULL,
	venture_challenges TEXT NOT NULL,
	registered_at      TIMESTAMPTZ NOT NULL,
	status             TEXT NOT NULL,
	CONSTRAINT registrations_id_number_key UNIQUE (id_number)
);
CREATE INDEX IF NOT EXISTS registrations_department_registered_at_idx
	ON registrations (department, registered_at DESC);
CREATE INDEX IF NOT EXISTS registrations_registered_at_idx
	ON registrations (registered_at DESC);
`

const selectColumns = `id, id_number, full_name, phone, city, department, profession,
	venture_name, social_media, venture_challenges, registered_at, status`

// PostgresStore persists registrations in PostgreSQL. The UNIQUE constraint
// on id_number makes the INSERT the uniqueness arbiter.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store on an open pool.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a pool, pings it, and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgres(db)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the table and indexes when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure registrations schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (id, id_number, full_name, phone, city, department, profession,
			venture_name, social_media, venture_challenges, registered_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		reg.ID,
		reg.IDNumber,
		reg.FullName,
		reg.Phone,
		reg.City,
		reg.Department,
		reg.Profession,
		reg.VentureName,
		reg.SocialMedia,
		reg.VentureChallenges,
		reg.RegisteredAt,
		string(reg.Status),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("insert registration %s: %w", reg.IDNumber, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE id_number = $1)`, idNumber,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check id number: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) List(ctx context.Context, department string) ([]*models.Registration, error) {
	if department == "" {
		return s.query(ctx, `SELECT `+selectColumns+` FROM registrations ORDER BY registered_at DESC`)
	}
	return s.query(ctx,
		`SELECT `+selectColumns+` FROM registrations WHERE department = $1 ORDER BY registered_at DESC`,
		department,
	)
}

func (s *PostgresStore) CountByDepartment(ctx context.Context) ([]models.GroupCount, error) {
	return s.groupCounts(ctx,
		`SELECT department, COUNT(*) FROM registrations GROUP BY department ORDER BY department ASC`,
	)
}

func (s *PostgresStore) CountByProfession(ctx context.Context, limit int) ([]models.GroupCount, error) {
	query := `SELECT profession, COUNT(*) AS total FROM registrations
		GROUP BY profession ORDER BY total DESC, profession ASC`
	if limit > 0 {
		return s.groupCounts(ctx, query+` LIMIT $1`, limit)
	}
	return s.groupCounts(ctx, query)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Latest(ctx context.Context, limit int) ([]*models.Registration, error) {
	if limit <= 0 {
		return s.List(ctx, "")
	}
	return s.query(ctx,
		`SELECT `+selectColumns+` FROM registrations ORDER BY registered_at DESC LIMIT $1`, limit,
	)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Close(context.Context) error {
	return s.db.Close()
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Registration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	out := []*models.Registration{}
	for rows.Next() {
		var r models.Registration
		var status string
		if err := rows.Scan(
			&r.ID,
			&r.IDNumber,
			&r.FullName,
			&r.Phone,
			&r.City,
			&r.Department,
			&r.Profession,
			&r.VentureName,
			&r.SocialMedia,
			&r.VentureChallenges,
			&r.RegisteredAt,
			&status,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		r.Status = models.Status(status)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) groupCounts(ctx context.Context, query string, args ...any) ([]models.GroupCount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("group registrations: %w", err)
	}
	defer rows.Close()

	out := []models.GroupCount{}
	for rows.Next() {
		var g models.GroupCount
		if err := rows.Scan(&g.Key, &g.Total); err != nil {
			return nil, fmt.Errorf("scan group count: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group counts: %w", err)
	}
	return out, nil
}
