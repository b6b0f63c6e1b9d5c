package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/dbpilot/internal/errs"
)

// PostgreSQL SQLSTATE classes worth naming.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection = "08"
	pgCodeCanceled    = "57014"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgCodeCanceled {
			return errs.Wrap(errs.ErrKindTimeout, msg, err)
		}
		detail := pgErr.Message
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == pgClassConnection {
			detail = "connection failure: " + detail
		}
		return errs.Wrap(errs.ErrKindDatabase, fmt.Sprintf("%s: %s", msg, detail), err)
	}

	// Network, TLS and authentication failures before a server error exists.
	return errs.Wrap(errs.ErrKindDatabase, msg, err)
}
