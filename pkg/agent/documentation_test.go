package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srbutler1/WRDS-Agents/pkg/schema"
)

func testRequest(text string) Request {
	return Request{Text: text, IssuedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestDocumentationAgent_GroundsPriceRequest(t *testing.T) {
	llm := newMockLLM(t)
	llm.respond(RoleDocumentation, "crsp.dsf holds daily prices; filter by ticker via dsenames.")

	docAgent := NewDocumentationAgent(nil, llm, builtinStore(), llm.prompts)
	brief, err := docAgent.Ground(context.Background(), testRequest("Get daily stock prices for AAPL from 2020 to 2021"))
	require.NoError(t, err)

	require.NotEmpty(t, brief.CandidateTables)
	assert.Equal(t, "crsp.dsf", brief.CandidateTables[0].Table)
	assert.Equal(t, "crsp.dsf holds daily prices; filter by ticker via dsenames.", brief.Rationale)

	// The rationale prompt carries the request and the top candidate.
	calls := llm.callsFor(RoleDocumentation)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "Get daily stock prices for AAPL")
	assert.Contains(t, calls[0], "crsp.dsf")
}

func TestDocumentationAgent_CapsCandidates(t *testing.T) {
	var entries []*schema.Entry
	for _, name := range []string{"a.t1", "a.t2", "a.t3", "a.t4", "a.t5", "a.t6", "a.t7"} {
		entries = append(entries, &schema.Entry{Table: name, Aliases: []string{"fundamentals"}})
	}
	llm := newMockLLM(t)
	llm.respond(RoleDocumentation, "rationale")

	docAgent := NewDocumentationAgent(nil, llm, schema.New(entries), llm.prompts)
	brief, err := docAgent.Ground(context.Background(), testRequest("show fundamentals"))
	require.NoError(t, err)
	assert.Len(t, brief.CandidateTables, maxCandidateTables)
}

func TestDocumentationAgent_NoMatchSkipsGateway(t *testing.T) {
	llm := newMockLLM(t)

	docAgent := NewDocumentationAgent(nil, llm, builtinStore(), llm.prompts)
	brief, err := docAgent.Ground(context.Background(), testRequest("zzz qqq xxx"))
	require.NoError(t, err)

	assert.Empty(t, brief.CandidateTables)
	assert.Equal(t, "No schema match was found for this request.", brief.Rationale)
	assert.Empty(t, llm.callsFor(RoleDocumentation))
}

func TestDocumentationAgent_CorpusUnavailableDegrades(t *testing.T) {
	llm := newMockLLM(t)
	broken := schema.NewLazy(func() ([]*schema.Entry, error) {
		return nil, errors.New("corpus file missing")
	})

	docAgent := NewDocumentationAgent(nil, llm, broken, llm.prompts)
	brief, err := docAgent.Ground(context.Background(), testRequest("daily stock prices"))
	require.NoError(t, err)

	assert.Empty(t, brief.CandidateTables)
	assert.Contains(t, brief.Rationale, "unavailable")
	assert.Empty(t, llm.callsFor(RoleDocumentation))
}

func TestDocumentationAgent_GatewayFailurePropagates(t *testing.T) {
	llm := newMockLLM(t)
	llm.fail(RoleDocumentation, errors.New("gateway unavailable"))

	docAgent := NewDocumentationAgent(nil, llm, builtinStore(), llm.prompts)
	_, err := docAgent.Ground(context.Background(), testRequest("daily stock prices for AAPL"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway unavailable")
}

func TestExtractTerms(t *testing.T) {
	llm := newMockLLM(t)
	docAgent := NewDocumentationAgent(nil, llm, builtinStore(), llm.prompts)

	terms := docAgent.extractTerms("Get daily stock prices for AAPL from 2020 to 2021")

	assert.Contains(t, terms, "daily stock prices")
	assert.Contains(t, terms, "AAPL")
	// Stop words and short tokens never become terms.
	assert.NotContains(t, terms, "Get")
	assert.NotContains(t, terms, "for")
	assert.NotContains(t, terms, "from")
}

func TestExtractTerms_LongestAliasWins(t *testing.T) {
	llm := newMockLLM(t)
	docAgent := NewDocumentationAgent(nil, llm, builtinStore(), llm.prompts)

	terms := docAgent.extractTerms("daily stock returns for MSFT")
	require.NotEmpty(t, terms)
	assert.Equal(t, "daily stock returns", terms[0])
}
