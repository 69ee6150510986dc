package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/srbutler1/WRDS-Agents/pkg/metrics"
)

// State is a phase of the orchestration state machine.
type State string

const (
	StateGrounding  State = "grounding"
	StateGenerating State = "generating"
	StateValidating State = "validating"
	StateAccepted   State = "accepted"
	StateRetrying   State = "retrying"
	StateExhausted  State = "exhausted"
	StateAborted    State = "aborted"
)

const defaultMaxAttempts = 3

// Config holds everything the administrator needs to drive a run.
type Config struct {
	Logger  *slog.Logger
	LLM     LLMClient
	Schema  SchemaLookup
	Querier Querier // nil runs generation-only

	// Prompts defaults to the embedded role prompts.
	Prompts *Prompts

	// Persister, when set, receives every finished outcome.
	Persister Persister

	// Clock defaults to the real clock; tests inject a fake.
	Clock clockwork.Clock

	// MaxAttempts bounds the generate-execute-validate loop (default 3).
	MaxAttempts int

	// RegroundOnRetry re-runs schema grounding before each retry, for when
	// a rejected attempt suggests the original table choice was wrong.
	RegroundOnRetry bool
}

// Validate applies defaults and checks required fields.
func (cfg *Config) Validate() error {
	if cfg.LLM == nil {
		return errors.New("LLM client is required")
	}
	if cfg.Schema == nil {
		return errors.New("schema store is required")
	}
	if cfg.Prompts == nil {
		p, err := LoadPrompts()
		if err != nil {
			return err
		}
		cfg.Prompts = p
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	return nil
}

// Administrator coordinates the documentation, SQL, and validator agents
// for one request at a time. Each run owns its request and attempt history
// exclusively; concurrent runs share only the read-only schema store and
// the gateway.
type Administrator struct {
	log       *slog.Logger
	cfg       Config
	docAgent  *DocumentationAgent
	sqlAgent  *SQLAgent
	validator *ValidatorAgent
}

// New creates an administrator and its sub-agents.
func New(cfg Config) (*Administrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate administrator config: %w", err)
	}
	return &Administrator{
		log:       cfg.Logger,
		cfg:       cfg,
		docAgent:  NewDocumentationAgent(cfg.Logger, cfg.LLM, cfg.Schema, cfg.Prompts),
		sqlAgent:  NewSQLAgent(cfg.Logger, cfg.LLM, cfg.Querier, cfg.Prompts),
		validator: NewValidatorAgent(cfg.Logger, cfg.LLM, cfg.Prompts),
	}, nil
}

// Run drives one request through grounding, generation, and validation with
// bounded retries, and returns exactly one SessionOutcome. outputHint, when
// non-empty, names the persisted export. The outcome is always populated,
// including on abort; a non-nil error means the run did not reach a
// validated terminal state on its own (gateway failure or cancellation).
func (ad *Administrator) Run(ctx context.Context, requestText, outputHint string) (*SessionOutcome, error) {
	req := Request{Text: requestText, IssuedAt: ad.cfg.Clock.Now().UTC()}
	outcome := &SessionOutcome{Request: req, OutputHint: outputHint}

	state, err := ad.run(ctx, req, outcome)
	if ad.log != nil {
		ad.log.Info("administrator: run finished",
			"state", string(state),
			"attempts", outcome.AttemptsMade,
			"accepted", outcome.Verdict.Accepted)
	}
	metrics.RunsTotal.WithLabelValues(string(state)).Inc()
	metrics.AttemptsTotal.Add(float64(outcome.AttemptsMade))

	if state == StateAborted {
		outcome.Aborted = true
	}
	ad.persist(ctx, outcome)
	return outcome, err
}

func (ad *Administrator) run(ctx context.Context, req Request, outcome *SessionOutcome) (State, error) {
	if ad.log != nil {
		ad.log.Info("administrator: grounding request", "request", req.Text)
	}
	brief, err := ad.docAgent.Ground(ctx, req)
	if err != nil {
		return StateAborted, fmt.Errorf("grounding aborted: %w", err)
	}

	hint := ""
	for attemptNum := 1; attemptNum <= ad.cfg.MaxAttempts; attemptNum++ {
		if ctx.Err() != nil {
			return StateAborted, fmt.Errorf("run aborted: %w", ctx.Err())
		}

		if attemptNum > 1 && ad.cfg.RegroundOnRetry {
			if ad.log != nil {
				ad.log.Info("administrator: re-grounding before retry", "attempt", attemptNum)
			}
			if regrounded, err := ad.docAgent.Ground(ctx, req); err == nil {
				brief = regrounded
			}
		}

		if ad.log != nil {
			ad.log.Info("administrator: generating", "attempt", attemptNum, "hint", hint)
		}
		attempt, err := ad.sqlAgent.GenerateAndExecute(ctx, req, brief, hint, attemptNum)
		outcome.Attempts = append(outcome.Attempts, attempt)
		outcome.FinalAttempt = attempt
		outcome.AttemptsMade = attempt.Number
		if err != nil {
			return StateAborted, fmt.Errorf("generation aborted: %w", err)
		}

		verdict, err := ad.validator.Validate(ctx, req, attempt)
		if err != nil {
			return StateAborted, fmt.Errorf("validation aborted: %w", err)
		}
		outcome.Verdict = verdict

		if verdict.Accepted {
			return StateAccepted, nil
		}
		if attempt.ExecErr != nil && attempt.ExecErr.Class == NonRetryable {
			if ad.log != nil {
				ad.log.Warn("administrator: non-retryable execution error, ending run",
					"attempt", attemptNum, "error", attempt.ExecErr.Reason)
			}
			return StateExhausted, nil
		}

		hint = verdict.CorrectiveHint
		if ad.log != nil && attemptNum < ad.cfg.MaxAttempts {
			ad.log.Info("administrator: attempt rejected, retrying",
				"attempt", attemptNum, "reason", verdict.Reason)
		}
	}

	if ad.log != nil {
		ad.log.Warn("administrator: attempts exhausted, returning last attempt un-validated",
			"attempts", outcome.AttemptsMade)
	}
	return StateExhausted, nil
}

// persist hands the finished outcome to the persistence collaborator.
// Persistence failures never fail the run.
func (ad *Administrator) persist(ctx context.Context, outcome *SessionOutcome) {
	if ad.cfg.Persister == nil {
		return
	}
	path, err := ad.cfg.Persister.Persist(ctx, outcome)
	if err != nil {
		if ad.log != nil {
			ad.log.Warn("administrator: failed to persist outcome", "error", err)
		}
		return
	}
	outcome.PersistedPath = path
}
