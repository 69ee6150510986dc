package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// sampleRowLimit is how many rows the validator shows the gateway.
const sampleRowLimit = 5

// ValidatorAgent judges whether an attempt's result satisfies the request.
// Deterministic checks (execution errors, empty results) short-circuit
// before any gateway call.
type ValidatorAgent struct {
	log     *slog.Logger
	llm     LLMClient
	prompts *Prompts
}

// NewValidatorAgent creates a validator agent.
func NewValidatorAgent(log *slog.Logger, llm LLMClient, prompts *Prompts) *ValidatorAgent {
	return &ValidatorAgent{log: log, llm: llm, prompts: prompts}
}

// validateResponse is the expected JSON shape of the gateway's judgement.
type validateResponse struct {
	Valid       bool   `json:"valid"`
	Explanation string `json:"explanation"`
	Hint        string `json:"hint"`
}

// Validate produces the verdict for one attempt. The returned error is
// non-nil only for gateway-level failures.
func (a *ValidatorAgent) Validate(ctx context.Context, req Request, attempt QueryAttempt) (Verdict, error) {
	if attempt.ExecErr != nil {
		return Verdict{
			Accepted:       false,
			Reason:         attempt.ExecErr.Reason,
			CorrectiveHint: hintForExecError(attempt.ExecErr),
		}, nil
	}

	if attempt.Result == nil || attempt.Result.RowCount == 0 {
		return Verdict{
			Accepted:       false,
			Reason:         "empty result",
			CorrectiveHint: "the query returned no rows; the filters may be too restrictive (check ticker spelling, date ranges, and join conditions)",
		}, nil
	}

	userPrompt := buildValidationPrompt(req, attempt)
	response, err := a.llm.Complete(ctx, a.prompts.For(RoleValidator), userPrompt)
	if err != nil {
		return Verdict{}, fmt.Errorf("validation failed: %w", err)
	}

	parsed, ok := parseValidateResponse(response)
	if !ok {
		// The judgement could not be parsed. The deterministic checks above
		// already passed, so accept rather than burn an attempt on a
		// formatting hiccup.
		if a.log != nil {
			a.log.Warn("validator: unparseable judgement, accepting", "attempt", attempt.Number)
		}
		return Verdict{
			Accepted: true,
			Reason:   "validator judgement unparseable; result passed deterministic checks",
		}, nil
	}

	verdict := Verdict{Accepted: parsed.Valid, Reason: parsed.Explanation}
	if !parsed.Valid {
		verdict.CorrectiveHint = parsed.Hint
		if verdict.CorrectiveHint == "" {
			verdict.CorrectiveHint = parsed.Explanation
		}
	}
	return verdict, nil
}

// hintForExecError describes the failure class for the next generation
// attempt.
func hintForExecError(execErr *ExecutionError) string {
	if strings.HasPrefix(execErr.Reason, "malformed generation") {
		return "the previous response did not follow the required format; return the SQL inside a ```sql code block followed by an Explanation section"
	}
	if execErr.Class == Retryable {
		return "the previous SQL failed to execute: " + execErr.Reason
	}
	return "the data source is unavailable: " + execErr.Reason
}

func buildValidationPrompt(req Request, attempt QueryAttempt) string {
	var sb strings.Builder
	sb.WriteString("Request: " + req.Text + "\n\n")
	sb.WriteString("SQL:\n" + attempt.SQL + "\n\n")
	sb.WriteString("Columns: " + strings.Join(attempt.Result.Columns, ", ") + "\n")
	sb.WriteString(fmt.Sprintf("Row count: %d\n\n", attempt.Result.RowCount))

	sb.WriteString("Sample rows:\n")
	limit := min(sampleRowLimit, len(attempt.Result.Rows))
	for i := 0; i < limit; i++ {
		values := make([]string, len(attempt.Result.Rows[i]))
		for j, v := range attempt.Result.Rows[i] {
			values[j] = formatValueForLLM(v)
		}
		sb.WriteString(strings.Join(values, " | ") + "\n")
	}
	return sb.String()
}

func parseValidateResponse(response string) (validateResponse, bool) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return validateResponse{}, false
	}
	var parsed validateResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return validateResponse{}, false
	}
	return parsed, true
}

// formatValueForLLM renders a single value for the judgement prompt.
// Floats are rounded so long decimals do not read as encoded values.
func formatValueForLLM(v any) string {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%.4f", val)
	case nil:
		return ""
	default:
		s := fmt.Sprintf("%v", v)
		if len(s) > 100 {
			s = s[:97] + "..."
		}
		return s
	}
}

// extractJSON returns the first top-level JSON object in text, or "".
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
