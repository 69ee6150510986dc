package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/srbutler1/WRDS-Agents/pkg/schema"
)

// maxCandidateTables caps how many tables a brief carries forward.
const maxCandidateTables = 5

// rationaleTables is how many top candidates the rationale prompt covers.
const rationaleTables = 3

// DocumentationAgent grounds a request against the schema corpus: it
// extracts candidate terms from the request text, looks each up in the
// store, and asks the gateway for a short rationale covering the top
// candidates.
type DocumentationAgent struct {
	log     *slog.Logger
	llm     LLMClient
	store   SchemaLookup
	prompts *Prompts
}

// NewDocumentationAgent creates a documentation agent.
func NewDocumentationAgent(log *slog.Logger, llm LLMClient, store SchemaLookup, prompts *Prompts) *DocumentationAgent {
	return &DocumentationAgent{log: log, llm: llm, store: store, prompts: prompts}
}

// Ground produces the schema brief for a request. A corpus that failed to
// load degrades to an empty brief rather than failing the run; a gateway
// failure is returned to the caller.
func (a *DocumentationAgent) Ground(ctx context.Context, req Request) (SchemaBrief, error) {
	terms := a.extractTerms(req.Text)
	if a.log != nil {
		a.log.Debug("documentation: extracted terms", "terms", strings.Join(terms, ", "))
	}

	candidates, unavailable := a.lookupAll(terms)
	if unavailable {
		return SchemaBrief{
			Rationale: "The schema corpus is unavailable; no table candidates could be identified.",
		}, nil
	}
	if len(candidates) == 0 {
		return SchemaBrief{
			Rationale: "No schema match was found for this request.",
		}, nil
	}
	if len(candidates) > maxCandidateTables {
		candidates = candidates[:maxCandidateTables]
	}

	top := candidates
	if len(top) > rationaleTables {
		top = top[:rationaleTables]
	}
	userPrompt := fmt.Sprintf("Request: %s\n\nCandidate tables:\n%s",
		req.Text, schema.FormatEntries(top))

	rationale, err := a.llm.Complete(ctx, a.prompts.For(RoleDocumentation), userPrompt)
	if err != nil {
		return SchemaBrief{}, fmt.Errorf("documentation rationale failed: %w", err)
	}

	if a.log != nil {
		names := make([]string, len(candidates))
		for i, e := range candidates {
			names[i] = e.Table
		}
		a.log.Info("documentation: grounded request", "tables", strings.Join(names, ", "))
	}

	return SchemaBrief{
		CandidateTables: candidates,
		Rationale:       strings.TrimSpace(rationale),
	}, nil
}

// lookupAll merges the per-term lookups, deduplicating by table while
// preserving the best rank a table achieved: tables keep the earliest
// position they reached in any term's ranked result, with the number of
// matching terms breaking ties.
func (a *DocumentationAgent) lookupAll(terms []string) (candidates []*schema.Entry, unavailable bool) {
	type merged struct {
		entry   *schema.Entry
		bestPos int
		hits    int
		order   int
	}
	byTable := make(map[string]*merged)
	var all []*merged

	for _, term := range terms {
		entries, err := a.store.Lookup(term)
		if err != nil {
			if errors.Is(err, schema.ErrUnavailable) {
				if a.log != nil {
					a.log.Warn("documentation: schema store unavailable", "error", err)
				}
				return nil, true
			}
			continue
		}
		for pos, e := range entries {
			m, ok := byTable[e.Table]
			if !ok {
				m = &merged{entry: e, bestPos: pos, order: len(all)}
				byTable[e.Table] = m
				all = append(all, m)
			}
			m.hits++
			if pos < m.bestPos {
				m.bestPos = pos
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].bestPos != all[j].bestPos {
			return all[i].bestPos < all[j].bestPos
		}
		if all[i].hits != all[j].hits {
			return all[i].hits > all[j].hits
		}
		return all[i].order < all[j].order
	})

	out := make([]*schema.Entry, len(all))
	for i, m := range all {
		out[i] = m.entry
	}
	return out, false
}

var tickerPattern = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

// stopTerms are all-caps tokens and filler words that never identify a
// table.
var stopTerms = map[string]bool{
	"A": true, "I": true, "THE": true, "AND": true, "FOR": true, "FROM": true,
	"GET": true, "TO": true, "OF": true, "IN": true, "ON": true, "SQL": true,
	"get": true, "the": true, "and": true, "for": true, "from": true,
	"with": true, "data": true, "show": true, "find": true, "give": true,
	"list": true, "between": true, "during": true, "year": true, "years": true,
}

// extractTerms pulls lookup candidates from the request: alias phrases the
// corpus knows, ticker-like all-caps tokens, and remaining significant
// words.
func (a *DocumentationAgent) extractTerms(text string) []string {
	var terms []string
	seen := map[string]bool{}
	add := func(t string) {
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		terms = append(terms, t)
	}

	// Alias phrases from the corpus, longest first so "daily stock returns"
	// wins over "returns".
	lower := strings.ToLower(text)
	if entries, err := a.store.AllEntries(); err == nil {
		var aliases []string
		for _, e := range entries {
			aliases = append(aliases, e.Aliases...)
		}
		sort.SliceStable(aliases, func(i, j int) bool { return len(aliases[i]) > len(aliases[j]) })
		for _, alias := range aliases {
			if strings.Contains(lower, strings.ToLower(alias)) {
				add(alias)
			}
		}
	}

	// Ticker-like tokens from the original text.
	for _, tok := range tickerPattern.FindAllString(text, -1) {
		if !stopTerms[tok] {
			add(tok)
		}
	}

	// Remaining significant words.
	for _, word := range strings.Fields(lower) {
		word = strings.Trim(word, ".,;:()'\"")
		if len(word) > 3 && !stopTerms[word] {
			add(word)
		}
	}

	return terms
}
