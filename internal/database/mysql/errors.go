package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/dbpilot/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDuplicateEntry  = 1062
	errNoReferencedRow = 1452
	errRowIsReferenced = 1451
	errBadFieldError   = 1054
	errNoSuchTable     = 1146
	errParseError      = 1064
	errAccessDenied    = 1045
	errDBAccessDenied  = 1044
	errUnknownDatabase = 1049
	errTooManyConns    = 1040
	errQueryTimeout    = 3024
)

// mapError translates driver errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, gomysql.ErrInvalidConn) {
		return errs.Wrap(errs.ErrKindDatabase, msg+": connection lost", err)
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if mysqlErr.Number == errQueryTimeout {
			return errs.Wrap(errs.ErrKindTimeout, msg, err)
		}
		return errs.Wrap(errs.ErrKindDatabase,
			fmt.Sprintf("%s: %s%s", msg, classifyMySQLCode(mysqlErr.Number), mysqlErr.Message), err)
	}

	return errs.Wrap(errs.ErrKindDatabase, msg, err)
}

// classifyMySQLCode returns a short prefix naming the failure family.
func classifyMySQLCode(code uint16) string {
	switch code {
	case errAccessDenied, errDBAccessDenied, errUnknownDatabase, errTooManyConns:
		return "connection error: "
	case errDuplicateEntry:
		return "conflict: "
	case errNoReferencedRow, errRowIsReferenced:
		return "foreign key violation: "
	case errBadFieldError, errNoSuchTable, errParseError:
		return "invalid query: "
	default:
		return ""
	}
}
