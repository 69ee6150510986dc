package warehouse

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_SQLStates(t *testing.T) {
	tests := []struct {
		name          string
		code          string
		wantRetryable bool
	}{
		{name: "undefined column", code: "42703", wantRetryable: true},
		{name: "syntax error", code: "42601", wantRetryable: true},
		{name: "undefined table", code: "42P01", wantRetryable: true},
		{name: "bad cast", code: "22P02", wantRetryable: true},
		{name: "statement too complex", code: "54001", wantRetryable: true},
		{name: "query canceled", code: "57014", wantRetryable: true},
		{name: "connection failure", code: "08006", wantRetryable: false},
		{name: "invalid password", code: "28P01", wantRetryable: false},
		{name: "invalid catalog", code: "3D000", wantRetryable: false},
		{name: "invalid schema", code: "3F000", wantRetryable: false},
		{name: "admin shutdown", code: "57P01", wantRetryable: false},
		{name: "unknown class", code: "XX000", wantRetryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execErr := classify(&pgconn.PgError{Code: tt.code, Message: "boom"})
			assert.Equal(t, tt.wantRetryable, execErr.Retryable())
			assert.Equal(t, tt.code, execErr.SQLState)
		})
	}
}

func TestClassify_WrappedPgError(t *testing.T) {
	wrapped := fmt.Errorf("query failed: %w", &pgconn.PgError{Code: "42703", Message: "column does not exist"})
	execErr := classify(wrapped)
	assert.True(t, execErr.Retryable())
	assert.Equal(t, "42703", execErr.SQLState)
	assert.Equal(t, "column does not exist", execErr.Message)
}

func TestClassify_DeadlineExceeded(t *testing.T) {
	execErr := classify(context.DeadlineExceeded)
	assert.True(t, execErr.Retryable())
	assert.Contains(t, execErr.Error(), "timed out")
}

func TestClassify_ConnectionError(t *testing.T) {
	execErr := classify(errors.New("dial tcp: connection refused"))
	assert.False(t, execErr.Retryable())
	assert.Contains(t, execErr.Error(), "connection refused")
}

func TestExecError_RetryClassifierSurface(t *testing.T) {
	// The retry loop upstream discovers the classification through errors.As,
	// so classify must return an error that survives wrapping.
	var target interface{ Retryable() bool }
	wrapped := fmt.Errorf("query: %w", classify(&pgconn.PgError{Code: "42601"}))
	require.True(t, errors.As(wrapped, &target))
	assert.True(t, target.Retryable())
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	require.Error(t, cfg.Validate())

	cfg = Config{DSN: "postgres://wrds@example.edu/wrds"}
	require.NoError(t, cfg.Validate())
	assert.NotZero(t, cfg.StatementTimeout)
}
