package server

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wingservice/privateschool/pkg/form"
)

// DB is the subset of pgxpool.Pool the store depends on.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store persists registrations.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// SchoolCodeExists reports whether a registration with the code is already
// stored.
func (s *Store) SchoolCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE school_code = $1)`,
		code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check school code: %w", err)
	}
	return exists, nil
}

// InsertRegistration stores one registration under id.
func (s *Store) InsertRegistration(ctx context.Context, id string, rec form.Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO registrations (
			id, school_name, school_code, block, district, level,
			principal_name, trust_name, phone, email,
			school_photo, principal_photo,
			certificate_primary, certificate_upper_primary
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		id, rec.SchoolName, rec.SchoolCode, rec.Block, rec.District, rec.Level,
		rec.PrincipalName, rec.TrustName, rec.Phone, rec.Email,
		rec.SchoolPhoto, rec.PrincipalPhoto,
		rec.CertPrimary, rec.CertUpperPrimary,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}
