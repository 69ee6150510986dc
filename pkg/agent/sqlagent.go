package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/srbutler1/WRDS-Agents/pkg/schema"
)

// SQLAgent turns a request plus schema brief into a candidate SQL statement,
// executes it against the data source, and records the attempt. A nil
// querier runs in generation-only mode: every attempt fails with a
// non-retryable execution error instead of reaching a database.
type SQLAgent struct {
	log     *slog.Logger
	llm     LLMClient
	querier Querier
	prompts *Prompts
}

// NewSQLAgent creates a SQL agent. querier may be nil when no data source
// is configured.
func NewSQLAgent(log *slog.Logger, llm LLMClient, querier Querier, prompts *Prompts) *SQLAgent {
	return &SQLAgent{log: log, llm: llm, querier: querier, prompts: prompts}
}

// GenerateAndExecute runs one generate-execute cycle. hint carries the prior
// verdict's corrective hint, empty on the first attempt. The returned error
// is non-nil only for gateway-level failures that should abort the run;
// database and parse failures are recorded on the attempt itself.
func (a *SQLAgent) GenerateAndExecute(ctx context.Context, req Request, brief SchemaBrief, hint string, attemptNumber int) (QueryAttempt, error) {
	attempt := QueryAttempt{Number: attemptNumber, HintUsed: hint}

	userPrompt := a.buildGenerationPrompt(req, brief, hint)
	response, err := a.llm.Complete(ctx, a.prompts.For(RoleSQL), userPrompt)
	if err != nil {
		return attempt, fmt.Errorf("sql generation failed: %w", err)
	}

	sqlText, explanation, err := parseGenerateResponse(response)
	if err != nil {
		if a.log != nil {
			a.log.Warn("sql: generation output malformed", "attempt", attemptNumber, "error", err)
		}
		attempt.ExecErr = &ExecutionError{
			Reason: fmt.Sprintf("malformed generation: %v", err),
			Class:  Retryable,
		}
		return attempt, nil
	}

	sqlText = fixKnownColumnNames(sqlText)
	attempt.SQL = sqlText
	attempt.Explanation = explanation

	if a.querier == nil {
		attempt.ExecErr = &ExecutionError{
			Reason: "no data source configured",
			Class:  NonRetryable,
		}
		return attempt, nil
	}

	columns, rows, err := a.querier.Query(ctx, sqlText)
	if err != nil {
		attempt.ExecErr = classifyExecError(err)
		if a.log != nil {
			a.log.Info("sql: execution failed",
				"attempt", attemptNumber,
				"class", attempt.ExecErr.Class,
				"error", attempt.ExecErr.Reason)
		}
		return attempt, nil
	}

	attempt.Result = &TabularResult{
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
	}
	if a.log != nil {
		a.log.Info("sql: query executed", "attempt", attemptNumber, "rows", attempt.Result.RowCount)
	}
	return attempt, nil
}

// buildGenerationPrompt assembles the user prompt: request, schema brief,
// and the prior corrective hint as an explicit negative constraint.
func (a *SQLAgent) buildGenerationPrompt(req Request, brief SchemaBrief, hint string) string {
	var sb strings.Builder
	sb.WriteString("Request: " + req.Text + "\n\n")

	if len(brief.CandidateTables) > 0 {
		sb.WriteString("Candidate tables:\n")
		sb.WriteString(schema.FormatEntries(brief.CandidateTables))
		sb.WriteString("\n\n")
	} else {
		sb.WriteString("No candidate tables were identified in the schema corpus.\n\n")
	}
	if brief.Rationale != "" {
		sb.WriteString("Schema rationale: " + brief.Rationale + "\n\n")
	}
	if hint != "" {
		sb.WriteString("The previous attempt failed because " + hint + ", avoid this.\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// parseGenerateResponse extracts SQL and explanation from the gateway
// response using the labeled-section contract.
func parseGenerateResponse(response string) (sqlText, explanation string, err error) {
	response = strings.TrimSpace(response)

	sqlText = extractSQLFromCodeBlocks(response)
	if sqlText == "" {
		// Older labeled format without code fences.
		if _, rest, found := strings.Cut(response, "SQL QUERY:"); found {
			section, _, _ := strings.Cut(rest, "EXPLANATION:")
			sqlText = cleanSQL(section)
		}
	}
	if sqlText == "" {
		return "", "", fmt.Errorf("%w: missing SQL section", ErrMalformedGeneration)
	}

	for _, label := range []string{"Explanation:", "EXPLANATION:"} {
		if _, rest, found := strings.Cut(response, label); found {
			explanation = strings.TrimSpace(rest)
			break
		}
	}
	return sqlText, explanation, nil
}

// extractSQLFromCodeBlocks finds SQL in markdown code blocks.
func extractSQLFromCodeBlocks(response string) string {
	if start := strings.Index(response, "```sql"); start != -1 {
		start += len("```sql")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return cleanSQL(response[start : start+end])
		}
	}
	if start := strings.Index(response, "```"); start != -1 {
		start += 3
		if end := strings.Index(response[start:], "```"); end != -1 {
			content := strings.TrimSpace(response[start : start+end])
			if looksLikeSQL(content) {
				return cleanSQL(content)
			}
		}
	}
	return ""
}

// looksLikeSQL checks if text appears to be a read query.
func looksLikeSQL(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	return strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH")
}

// cleanSQL trims whitespace and trailing semicolons.
func cleanSQL(sqlText string) string {
	return strings.TrimSuffix(strings.TrimSpace(sqlText), ";")
}

// fixKnownColumnNames repairs column names the model habitually gets wrong.
// The CRSP name history tables spell the end date column nameendt.
func fixKnownColumnNames(sqlText string) string {
	for _, table := range []string{"crsp.dsenames", "crsp.msenames", "crsp.stocknames"} {
		if strings.Contains(sqlText, table) {
			sqlText = strings.ReplaceAll(sqlText, "nameenddt", "nameendt")
		}
	}
	return sqlText
}
