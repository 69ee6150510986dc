// Package agent implements the multi-agent loop that turns a natural-language
// request for financial data into a validated, executed SQL query: a
// documentation agent grounds the request against the schema corpus, a SQL
// agent generates and executes a candidate query, a validator judges the
// result, and the administrator drives the sequence with bounded retries.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/srbutler1/WRDS-Agents/pkg/schema"
)

// Role identifies which agent a prompt template belongs to. Each role has a
// fixed system prompt; there is no runtime persona assembly.
type Role string

const (
	RoleDocumentation Role = "documentation"
	RoleSQL           Role = "sql"
	RoleValidator     Role = "validator"
	RoleAdministrator Role = "administrator"
)

// ErrMalformedGeneration means the gateway response did not contain the
// labeled SQL/explanation sections. The attempt is recorded as failed and
// never reaches the database.
var ErrMalformedGeneration = errors.New("malformed generation output")

// Request is one natural-language request for financial data. Immutable once
// created; owned by the administrator for the duration of one run.
type Request struct {
	Text     string
	IssuedAt time.Time
}

// SchemaBrief is the documentation agent's grounding of a request: candidate
// tables ranked most relevant first, plus a natural-language rationale. An
// empty candidate list is a valid low-confidence brief, not an error.
type SchemaBrief struct {
	CandidateTables []*schema.Entry
	Rationale       string
}

// ErrorClass tells the administrator whether a failed execution is worth
// regenerating the SQL for.
type ErrorClass string

const (
	Retryable    ErrorClass = "retryable"
	NonRetryable ErrorClass = "non_retryable"
)

// ExecutionError records why an attempt produced no result.
type ExecutionError struct {
	Reason string
	Class  ErrorClass
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error (%s): %s", e.Class, e.Reason)
}

// TabularResult holds an executed query's rows. RowCount is computed from
// the rows, never trusted from the source.
type TabularResult struct {
	Columns  []string
	Rows     [][]any
	RowCount int
}

// QueryAttempt is one generate-execute cycle. Exactly one of Result and
// ExecErr is set. HintUsed carries the corrective hint the generation prompt
// included, empty on the first attempt.
type QueryAttempt struct {
	Number      int
	SQL         string
	Explanation string
	Result      *TabularResult
	ExecErr     *ExecutionError
	HintUsed    string
}

// Verdict is the validator's judgement of one attempt. CorrectiveHint is
// fed into the next generation attempt on rejection.
type Verdict struct {
	Accepted       bool
	Reason         string
	CorrectiveHint string
}

// SessionOutcome is the unit returned to the caller and handed to
// persistence: the final attempt, its verdict, and the full attempt history
// for diagnostics.
type SessionOutcome struct {
	Request       Request
	Attempts      []QueryAttempt
	FinalAttempt  QueryAttempt
	Verdict       Verdict
	AttemptsMade  int
	Aborted       bool
	OutputHint    string
	PersistedPath string
}

// LLMClient is the completion interface the agents consume, satisfied by
// the gateway package.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Querier executes SQL against the data source and returns column names
// plus row tuples. Satisfied by the warehouse package.
type Querier interface {
	Query(ctx context.Context, sqlText string) (columns []string, rows [][]any, err error)
}

// SchemaLookup is the read-only schema store surface the documentation
// agent consumes.
type SchemaLookup interface {
	Lookup(term string) ([]*schema.Entry, error)
	AllEntries() ([]*schema.Entry, error)
}

// Persister writes a finished run to durable storage and returns the path
// of the exported result.
type Persister interface {
	Persist(ctx context.Context, outcome *SessionOutcome) (string, error)
}

// retryClassifier is implemented by warehouse execution errors.
type retryClassifier interface {
	Retryable() bool
}

// classifyExecError converts a querier failure into an ExecutionError,
// defaulting to non-retryable when the error carries no classification.
func classifyExecError(err error) *ExecutionError {
	class := NonRetryable
	var rc retryClassifier
	if errors.As(err, &rc) && rc.Retryable() {
		class = Retryable
	}
	return &ExecutionError{Reason: err.Error(), Class: class}
}
