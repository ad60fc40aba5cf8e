// Package store holds the registration record store adapters. Every adapter
// enforces ID-number uniqueness itself and reports violations as
// sentinel.ErrConflict, so the insert is the single arbiter under concurrent
// submissions.
package store

import (
	"context"
	"fmt"
	"strings"

	"escuela/internal/registration/models"
)

// CollectionName is the document collection (or table) holding registrations.
const CollectionName = "inscripcion-escuela"

// Backend is the full surface of a record store, including lifecycle.
type Backend interface {
	Create(ctx context.Context, reg *models.Registration) error
	ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error)
	// List returns records ordered by RegisteredAt descending. An empty
	// department selects every record.
	List(ctx context.Context, department string) ([]*models.Registration, error)
	CountByDepartment(ctx context.Context) ([]models.GroupCount, error)
	CountByProfession(ctx context.Context, limit int) ([]models.GroupCount, error)
	Count(ctx context.Context) (int, error)
	Latest(ctx context.Context, limit int) ([]*models.Registration, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open selects an adapter by the connection string scheme:
// mongodb:// and mongodb+srv:// use MongoDB, postgres:// and postgresql://
// use PostgreSQL, memory:// keeps records in process.
func Open(ctx context.Context, uri, database string) (Backend, error) {
	scheme, _, _ := strings.Cut(uri, "://")
	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return NewMongo(ctx, uri, database)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, uri)
	case "memory":
		return NewInMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", scheme)
	}
}
