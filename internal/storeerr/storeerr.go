// Package storeerr classifies PostgreSQL errors returned by the repository.
//
// The repository hands driver errors back untouched; callers that need to
// react to a constraint violation (the bot, the CLI) use these helpers
// instead of matching SQLSTATE strings themselves.
package storeerr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

type Code string

const (
	Other               Code = "other"
	UniqueViolation     Code = "unique_violation"
	ForeignKeyViolation Code = "foreign_key_violation"
	NotNullViolation    Code = "not_null_violation"
	CheckViolation      Code = "check_violation"
	StringTooLong       Code = "string_data_right_truncation"
	NumericOutOfRange   Code = "numeric_value_out_of_range"
)

var sqlStates = map[string]Code{
	"23505": UniqueViolation,
	"23503": ForeignKeyViolation,
	"23502": NotNullViolation,
	"23514": CheckViolation,
	"22001": StringTooLong,
	"22003": NumericOutOfRange,
}

// CodeOf maps the first *pgconn.PgError in err's chain to a Code.
func CodeOf(err error) Code {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return Other
	}
	if code, ok := sqlStates[pgErr.Code]; ok {
		return code
	}
	return Other
}

// Constraint returns the violated constraint name, if any.
func Constraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func IsForeignKeyViolation(err error) bool { return CodeOf(err) == ForeignKeyViolation }

func IsUniqueViolation(err error) bool { return CodeOf(err) == UniqueViolation }
