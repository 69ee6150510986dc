package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/srbutler1/WRDS-Agents/pkg/agent"
	"github.com/srbutler1/WRDS-Agents/pkg/gateway"
	"github.com/srbutler1/WRDS-Agents/pkg/logger"
	"github.com/srbutler1/WRDS-Agents/pkg/metrics"
	"github.com/srbutler1/WRDS-Agents/pkg/schema"
	"github.com/srbutler1/WRDS-Agents/pkg/store"
	"github.com/srbutler1/WRDS-Agents/pkg/warehouse"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultDataDir     = ".wrds-agent"
	defaultMaxAttempts = 3
	// sampleRows is how many result rows the CLI prints before truncating.
	sampleRows = 20
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	requestFlag := flag.StringP("request", "r", "", "natural-language data request (omit for interactive mode)")
	outputFlag := flag.StringP("output", "o", "", "base name for the exported CSV (defaults to a slug of the request)")
	dataDirFlag := flag.String("data-dir", defaultDataDir, "directory for the run log and CSV exports")
	schemaFileFlag := flag.String("schema-file", "", "JSON schema corpus file (defaults to the builtin corpus)")
	modelFlag := flag.String("model", "", "model identifier (or set WRDS_AGENT_MODEL env var)")
	dsnFlag := flag.String("wrds-dsn", "", "WRDS PostgreSQL DSN (or set WRDS_DSN env var; empty runs generation-only)")
	maxAttemptsFlag := flag.Int("max-attempts", defaultMaxAttempts, "maximum generate-execute-validate attempts per request")
	regroundFlag := flag.Bool("reground-on-retry", false, "re-run schema grounding before each retry")
	metricsAddrFlag := flag.String("metrics-addr", "", "address to listen on for prometheus metrics (empty disables)")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("wrds-agent %s (%s, %s)\n", version, commit, date)
		return nil
	}

	_ = godotenv.Load()

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if *modelFlag == "" {
		*modelFlag = os.Getenv("WRDS_AGENT_MODEL")
	}
	if *dsnFlag == "" {
		*dsnFlag = os.Getenv("WRDS_DSN")
	}

	log := logger.New(*verboseFlag)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigCh
		log.Info("received signal", "signal", sig.String())
		cancel()
	}()

	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
			}
		}()
	}

	llm, err := gateway.New(gateway.Config{
		Logger: log,
		APIKey: apiKey,
		Model:  *modelFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway client: %w", err)
	}
	if apiKey == "" {
		log.Warn("ANTHROPIC_API_KEY not set, using stub completions")
	}

	var schemaStore *schema.Store
	if *schemaFileFlag != "" {
		schemaStore = schema.NewFromFile(*schemaFileFlag, schema.WithLogger(log))
	} else {
		schemaStore = schema.New(schema.Builtin(), schema.WithLogger(log))
	}

	var querier agent.Querier
	if *dsnFlag != "" {
		wh, err := warehouse.New(ctx, warehouse.Config{Logger: log, DSN: *dsnFlag})
		if err != nil {
			return fmt.Errorf("failed to connect to WRDS: %w", err)
		}
		defer wh.Close()
		querier = wh
	} else {
		log.Warn("no WRDS DSN configured, queries will not be executed")
	}

	runStore, err := store.New(store.Config{Logger: log, Dir: *dataDirFlag})
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer func() {
		if err := runStore.Close(); err != nil {
			log.Error("failed to close run store", "error", err)
		}
	}()

	admin, err := agent.New(agent.Config{
		Logger:          log,
		LLM:             llm,
		Schema:          schemaStore,
		Querier:         querier,
		Persister:       runStore,
		MaxAttempts:     *maxAttemptsFlag,
		RegroundOnRetry: *regroundFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create administrator: %w", err)
	}

	if *requestFlag != "" {
		return handleRequest(ctx, admin, *requestFlag, *outputFlag)
	}
	return interactive(ctx, admin)
}

// interactive reads requests from stdin until EOF or cancellation.
func interactive(ctx context.Context, admin *agent.Administrator) error {
	fmt.Println("Enter a data request (empty line or Ctrl-D to quit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			break
		}
		if err := handleRequest(ctx, admin, text, ""); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return scanner.Err()
}

func handleRequest(ctx context.Context, admin *agent.Administrator, text, outputHint string) error {
	outcome, err := admin.Run(ctx, text, outputHint)
	if err != nil {
		return err
	}
	printOutcome(outcome)
	return nil
}

func printOutcome(outcome *agent.SessionOutcome) {
	final := outcome.FinalAttempt

	if final.SQL != "" {
		fmt.Println("\nSQL:")
		fmt.Println(final.SQL)
	}
	if final.Explanation != "" {
		fmt.Println("\nExplanation:")
		fmt.Println(final.Explanation)
	}

	switch {
	case outcome.Verdict.Accepted && final.Result != nil:
		fmt.Printf("\nResult (%d rows, %d attempt(s)):\n", final.Result.RowCount, outcome.AttemptsMade)
		printTable(final.Result)
		if outcome.PersistedPath != "" {
			fmt.Println("\nSaved to:", outcome.PersistedPath)
		}
	case final.ExecErr != nil:
		fmt.Printf("\nFailed after %d attempt(s): %s\n", outcome.AttemptsMade, final.ExecErr.Reason)
	default:
		fmt.Printf("\nNot validated after %d attempt(s): %s\n", outcome.AttemptsMade, outcome.Verdict.Reason)
	}
}

func printTable(result *agent.TabularResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(result.Columns)

	limit := len(result.Rows)
	if limit > sampleRows {
		limit = sampleRows
	}
	for _, row := range result.Rows[:limit] {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprintf("%v", v)
		}
		table.Append(record)
	}
	table.Render()
	if len(result.Rows) > sampleRows {
		fmt.Printf("... %d more rows\n", len(result.Rows)-sampleRows)
	}
}
