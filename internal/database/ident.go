package database

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/koustreak/dbpilot/internal/errs"
)

// MaxIdentifierLength is the longest schema, table or column name accepted.
const MaxIdentifierLength = 128

// Dialect controls identifier quoting and the placeholder style the
// statement constructors emit.
type Dialect int

const (
	// DialectPostgres uses "ident" quoting and $1, $2, … placeholders.
	DialectPostgres Dialect = iota

	// DialectMySQL uses `ident` quoting and ? placeholders.
	DialectMySQL
)

// Placeholder returns the bind placeholder for the 1-based parameter idx.
func (d Dialect) Placeholder(idx int) string {
	if d == DialectMySQL {
		return "?"
	}
	return fmt.Sprintf("$%d", idx)
}

// QuoteIdent wraps an already validated name in the dialect's delimiters.
// No escaping is attempted: ValidateIdentifier guarantees the name holds no
// delimiter characters.
func (d Dialect) QuoteIdent(name string) string {
	if d == DialectMySQL {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

// ValidateIdentifier accepts a non-empty name of at most 128 characters
// that starts with a letter or underscore and continues with letters,
// digits or underscores. Anything else is an InvalidConfig error.
func ValidateIdentifier(name string) (string, error) {
	if name == "" {
		return "", errs.InvalidConfig("identifier cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxIdentifierLength {
		return "", errs.InvalidConfig("identifier too long (max %d characters)", MaxIdentifierLength)
	}

	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i == 0 {
			return "", errs.InvalidConfig("invalid identifier %q: must start with a letter or underscore", name)
		}
		if !unicode.IsNumber(r) {
			return "", errs.InvalidConfig("invalid identifier %q: contains invalid character %q", name, r)
		}
	}
	return name, nil
}

// SafeIdentifier validates and quotes name in one step.
func SafeIdentifier(d Dialect, name string) (string, error) {
	if _, err := ValidateIdentifier(name); err != nil {
		return "", err
	}
	return d.QuoteIdent(name), nil
}

// SafeTableRef validates and quotes a schema.table reference.
func SafeTableRef(d Dialect, schema, table string) (string, error) {
	s, err := SafeIdentifier(d, schema)
	if err != nil {
		return "", err
	}
	t, err := SafeIdentifier(d, table)
	if err != nil {
		return "", err
	}
	return s + "." + t, nil
}
