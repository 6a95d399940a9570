package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"server/internal/domain"
)

// errorSQL fails every statement with the same error, standing in for a
// connection that rejects a bad argument before the query runs.
type errorSQL struct {
	err error
}

func (s *errorSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, s.err
}

func (s *errorSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return failRow{err: s.err}
}

func (s *errorSQL) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, s.err
}

type failRow struct {
	err error
}

func (r failRow) Scan(dest ...any) error {
	return r.err
}

// A job id that is not a uuid fails the uuid cast with SQLSTATE 22P02
// rather than ErrNoRows; callers still expect a plain not-found.
func TestJobLookupMalformedIDIsNotFound(t *testing.T) {
	castErr := &pgconn.PgError{
		Code:    "22P02",
		Message: `invalid input syntax for type uuid: "not-a-uuid"`,
	}
	r := NewJobRepository(&errorSQL{err: castErr})
	ctx := context.Background()

	if _, err := r.GetByID(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID: got %v, want ErrNotFound", err)
	}
	if _, err := r.Cancel(ctx, "not-a-uuid", "stop"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Cancel: got %v, want ErrNotFound", err)
	}
}

func TestJobLookupOtherErrorsSurface(t *testing.T) {
	dbErr := &pgconn.PgError{Code: "57P01", Message: "terminating connection"}
	r := NewJobRepository(&errorSQL{err: dbErr})

	_, err := r.GetByID(context.Background(), "4f9c2d6e-1b2a-4c3d-8e5f-6a7b8c9d0e1f")
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("connection error mapped to not-found: %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "57P01" {
		t.Fatalf("got %v, want the driver error through unchanged", err)
	}
}
