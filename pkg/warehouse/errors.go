package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ExecError is a database execution failure classified for the retry loop.
// Retryable errors (bad SQL, missing columns) are worth regenerating the
// query for; non-retryable ones (connection, auth) abort the run.
type ExecError struct {
	Message   string
	SQLState  string
	retryable bool
}

func (e *ExecError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("warehouse execution failed (SQLSTATE %s): %s", e.SQLState, e.Message)
	}
	return "warehouse execution failed: " + e.Message
}

// Retryable reports whether regenerating the SQL could fix the failure.
func (e *ExecError) Retryable() bool {
	return e.retryable
}

// classify wraps a database error with its retry classification.
func classify(err error) *ExecError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &ExecError{
			Message:   pgErr.Message,
			SQLState:  pgErr.Code,
			retryable: retryableSQLState(pgErr.Code),
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// Statement timeout: a narrower regenerated query may succeed.
		return &ExecError{Message: "statement timed out", retryable: true}
	}
	// Connection-level failures: the database is unreachable, retrying the
	// generation cannot help.
	return &ExecError{Message: err.Error(), retryable: false}
}

// retryableSQLState maps SQLSTATE classes to the retry decision.
func retryableSQLState(code string) bool {
	if len(code) < 2 {
		return false
	}
	switch code[:2] {
	case "42": // syntax error or access rule violation (undefined column/table)
		return true
	case "22": // data exception (bad cast, date format)
		return true
	case "54": // program limit exceeded (statement too complex)
		return true
	case "08": // connection exception
		return false
	case "28": // invalid authorization
		return false
	case "3D", "3F": // invalid catalog/schema name
		return false
	case "57": // operator intervention (query_canceled, shutdown)
		return strings.HasPrefix(code, "5701") // 57014 query_canceled
	default:
		return false
	}
}
