package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/datrigen/internal/errs"
)

// PostgreSQL SQLSTATE codes and classes that need a specific kind.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection     = "08"
	pgErrInsufficientPriv = "42501"
	pgClassInvalidAuth    = "28"
	pgErrUndefinedTable   = "42P01"
	pgErrUndefinedColumn  = "42703"
	pgErrInvalidSchema    = "3F000"
	pgErrQueryCanceled    = "57014"
	pgErrInvalidTextRep   = "22P02"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline exceeded
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	// No rows
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifyCode(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyCode maps a SQLSTATE code to an ErrKind.
func classifyCode(code string) errs.ErrKind {
	switch {
	case strings.HasPrefix(code, pgClassConnection):
		return errs.ErrKindConnectionFailed
	case strings.HasPrefix(code, pgClassInvalidAuth), code == pgErrInsufficientPriv:
		return errs.ErrKindPermissionDenied
	case code == pgErrUndefinedTable, code == pgErrInvalidSchema:
		return errs.ErrKindNotFound
	case code == pgErrUndefinedColumn, code == pgErrInvalidTextRep:
		return errs.ErrKindInvalidInput
	case code == pgErrQueryCanceled:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
