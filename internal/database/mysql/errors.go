package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/datrigen/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDBAccessDenied     = 1044
	errAccessDenied       = 1045
	errUnknownDatabase    = 1049
	errTooManyConnections = 1040
	errTooManyUserConns   = 1203
	errBadField           = 1054
	errTableAccessDenied  = 1142
	errColumnAccessDenied = 1143
	errNoSuchTable        = 1146
	errQueryInterrupted   = 1317
	errMaxExecutionTime   = 3024
	errConnRefused        = 2003
)

// mapError translates go-sql-driver/mysql errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyCode maps MySQL error numbers to ErrKind.
func classifyCode(code uint16) errs.ErrKind {
	switch code {
	case errDBAccessDenied, errAccessDenied, errTableAccessDenied, errColumnAccessDenied:
		return errs.ErrKindPermissionDenied
	case errUnknownDatabase, errNoSuchTable:
		return errs.ErrKindNotFound
	case errTooManyConnections, errTooManyUserConns, errConnRefused:
		return errs.ErrKindConnectionFailed
	case errBadField:
		return errs.ErrKindInvalidInput
	case errQueryInterrupted, errMaxExecutionTime:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
