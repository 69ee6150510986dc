package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/srbutler1/WRDS-Agents/pkg/schema"
)

// llmCall records one completion request the mock received.
type llmCall struct {
	role Role
	user string
}

// mockLLM scripts completions per role. Responses are consumed in order;
// the last one repeats when the queue runs dry.
type mockLLM struct {
	t       *testing.T
	prompts *Prompts

	mu        sync.Mutex
	calls     []llmCall
	responses map[Role][]string
	errs      map[Role]error
}

func newMockLLM(t *testing.T) *mockLLM {
	t.Helper()
	prompts, err := LoadPrompts()
	require.NoError(t, err)
	return &mockLLM{
		t:         t,
		prompts:   prompts,
		responses: map[Role][]string{},
		errs:      map[Role]error{},
	}
}

func (m *mockLLM) respond(role Role, responses ...string) {
	m.responses[role] = append(m.responses[role], responses...)
}

func (m *mockLLM) fail(role Role, err error) {
	m.errs[role] = err
}

func (m *mockLLM) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	role := m.roleFor(systemPrompt)
	m.calls = append(m.calls, llmCall{role: role, user: userPrompt})

	if err := m.errs[role]; err != nil {
		return "", err
	}
	queue := m.responses[role]
	if len(queue) == 0 {
		return "", fmt.Errorf("mock llm: no scripted response for role %s", role)
	}
	response := queue[0]
	if len(queue) > 1 {
		m.responses[role] = queue[1:]
	}
	return response, nil
}

func (m *mockLLM) roleFor(systemPrompt string) Role {
	for _, role := range []Role{RoleDocumentation, RoleSQL, RoleValidator} {
		if systemPrompt == m.prompts.For(role) {
			return role
		}
	}
	m.t.Fatalf("mock llm: unknown system prompt %q", systemPrompt)
	return ""
}

// callsFor returns the user prompts sent for one role, in order.
func (m *mockLLM) callsFor(role Role) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.calls {
		if c.role == role {
			out = append(out, c.user)
		}
	}
	return out
}

// mockQuerier returns fixed rows, or a scripted error per call.
type mockQuerier struct {
	mu      sync.Mutex
	calls   []string
	columns []string
	rows    [][]any
	errs    []error
}

func (q *mockQuerier) Query(_ context.Context, sqlText string) ([]string, [][]any, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, sqlText)
	if len(q.errs) > 0 {
		err := q.errs[0]
		q.errs = q.errs[1:]
		if err != nil {
			return nil, nil, err
		}
	}
	return q.columns, q.rows, nil
}

func (q *mockQuerier) callCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.calls)
}

// retryableError mimics a warehouse execution error worth retrying.
type retryableError struct{ msg string }

func (e *retryableError) Error() string   { return e.msg }
func (e *retryableError) Retryable() bool { return true }

// nonRetryableError mimics a warehouse connection failure.
type nonRetryableError struct{ msg string }

func (e *nonRetryableError) Error() string   { return e.msg }
func (e *nonRetryableError) Retryable() bool { return false }

// mockPersister records the outcomes it saw.
type mockPersister struct {
	mu       sync.Mutex
	outcomes []*SessionOutcome
	path     string
	err      error
}

func (p *mockPersister) Persist(_ context.Context, outcome *SessionOutcome) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, outcome)
	return p.path, p.err
}

// builtinStore is the shared read-only corpus for tests.
func builtinStore() *schema.Store {
	return schema.New(schema.Builtin())
}

// validGeneration is a well-formed SQL generation response.
func validGeneration(sqlText string) string {
	return "```sql\n" + sqlText + "\n```\n\nExplanation: pulls the requested rows."
}

const acceptJudgement = `{"valid": true, "explanation": "result matches the request"}`

func rejectJudgement(hint string) string {
	return fmt.Sprintf(`{"valid": false, "explanation": "wrong shape", "hint": %q}`, hint)
}
