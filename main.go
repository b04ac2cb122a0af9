package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/richipal/tmsagent/pkg/audit"
	"github.com/richipal/tmsagent/pkg/config"
	"github.com/richipal/tmsagent/pkg/database"
	"github.com/richipal/tmsagent/pkg/extract"
	"github.com/richipal/tmsagent/pkg/llm"
	"github.com/richipal/tmsagent/pkg/models"
	"github.com/richipal/tmsagent/pkg/services"
	"github.com/richipal/tmsagent/pkg/session"
	"github.com/richipal/tmsagent/pkg/vector"
	"github.com/richipal/tmsagent/pkg/warehouse"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `tmsagent - natural language queries over the time management warehouse

Usage:
  tmsagent [flags] index [-category person|place|activity|department] [-reset]
  tmsagent [flags] validate
  tmsagent [flags] ask [-session ID] [question]

Flags:
  -config PATH   configuration file (default "config.yaml")
  -debug         verbose development logging
  -migrations    migrations directory (default "migrations")

With no question argument, ask starts an interactive prompt.
`

func main() {
	var (
		configPath     = flag.String("config", "config.yaml", "configuration file")
		debug          = flag.Bool("debug", false, "verbose development logging")
		migrationsPath = flag.String("migrations", "migrations", "migrations directory")
	)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(*configPath, Version)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	report := cfg.Validate()
	for _, w := range report.Warnings {
		logger.Warn("Configuration warning", zap.String("detail", w))
	}
	if !report.Valid {
		for _, e := range report.Errors {
			logger.Error("Invalid configuration", zap.String("problem", e))
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, *migrationsPath, logger)
	if err != nil {
		logger.Fatal("Startup failed", zap.Error(err))
	}
	defer app.Close()

	var exitErr error
	switch cmd := flag.Arg(0); cmd {
	case "index":
		exitErr = runIndex(ctx, app, flag.Args()[1:])
	case "validate":
		exitErr = runValidate(ctx, app)
	case "ask":
		exitErr = runAsk(ctx, app, flag.Args()[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if exitErr != nil {
		logger.Error("Command failed", zap.Error(exitErr))
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopmentConfig().Build()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}

// app holds the wired object graph shared by every subcommand.
type app struct {
	cfg      *config.Config
	db       *database.DB
	indexer  services.EntityIndexer
	pipeline services.Pipeline
	resolver services.EntityResolver
	store    vector.Store
	logger   *zap.Logger
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, migrationsPath string, logger *zap.Logger) (*app, error) {
	// Migrations first: the pool registers pgvector types on connect,
	// which needs the extension installed.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}
	if err := database.RunMigrations(migrationDB, migrationsPath, logger); err != nil {
		migrationDB.Close()
		return nil, err
	}
	migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: db, logger: logger}
	a.closers = append(a.closers, db.Close)

	llmClient, err := llm.NewClient(&llm.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store = vector.NewPGStore(db.Pool, llmClient, cfg.Resolution.AcceptThreshold, logger)
	wh := warehouse.NewPostgresWarehouse(db.Pool, cfg.Database.Schema, logger)

	extractor := extract.NewChainExtractor(
		extract.NewLLMExtractor(llmClient, logger),
		extract.NewHeuristicExtractor(logger),
		logger,
	)

	a.resolver = services.NewEntityResolver(extractor, a.store, services.ResolverConfig{
		QueryTrustThreshold:  cfg.Resolution.QueryTrustThreshold,
		ExploratoryThreshold: cfg.Resolution.ExploratoryThreshold,
		TopK:                 cfg.Resolution.TopK,
		MaxSuggestions:       cfg.Resolution.MaxSuggestions,
	}, logger)

	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: cfg.Indexer.EmbedWorkers}, logger)
	a.indexer = services.NewEntityIndexer(wh, a.store, pool, logger)

	generator := services.NewSQLGenerator(a.resolver, wh, llmClient,
		services.GeneratorConfig{RowCap: cfg.Executor.RowCap}, logger)

	auditor := audit.NewSecurityAuditor(logger)
	executor := services.NewQueryExecutor(wh, a.resolver, auditor, services.ExecutorConfig{
		RowCap:       cfg.Executor.RowCap,
		QueryTimeout: time.Duration(cfg.Executor.QueryTimeoutSeconds) * time.Second,
	}, logger)

	sessions, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.pipeline = services.NewPipeline(generator, executor, a.resolver, sessions, logger)
	return a, nil
}

// newSessionStore picks Redis when configured, in-process memory otherwise.
func newSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, error) {
	client, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		logger.Info("Redis not configured, using in-memory session store")
		return session.NewMemoryStore(), nil
	}
	ttl := time.Duration(cfg.Redis.SessionTTLMinutes) * time.Minute
	return session.NewRedisStore(client, ttl), nil
}

func runIndex(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	category := fs.String("category", "", "single category to build (default: all)")
	reset := fs.Bool("reset", false, "clear existing index entries first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var reports map[models.EntityCategory]models.IndexReport
	if *category != "" {
		cat, err := models.ParseCategory(*category)
		if err != nil {
			return err
		}
		reports = map[models.EntityCategory]models.IndexReport{
			cat: a.indexer.BuildIndex(ctx, cat, *reset),
		}
	} else {
		reports = a.indexer.BuildAllIndexes(ctx, *reset)
	}

	failed := false
	for _, cat := range models.AllCategories() {
		report, ok := reports[cat]
		if !ok {
			continue
		}
		fmt.Printf("%-12s extracted=%d indexed=%d duplicates=%d errors=%d\n",
			report.Category, report.TotalExtracted, report.SuccessfullyIndexed,
			report.DuplicatesSkipped, len(report.Errors))
		for _, e := range report.Errors {
			fmt.Printf("  error: %s\n", e)
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("index build finished with errors")
	}
	return nil
}

func runValidate(ctx context.Context, a *app) error {
	report := a.indexer.ValidateExtractionConfig(ctx)
	for _, w := range report.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, e := range report.Errors {
		fmt.Printf("error: %s\n", e)
	}
	if !report.Valid {
		return fmt.Errorf("extraction configuration is invalid")
	}

	for _, cat := range models.AllCategories() {
		count, err := a.store.Count(ctx, cat)
		if err != nil {
			return err
		}
		fmt.Printf("%-12s %d indexed entities\n", cat, count)
	}
	fmt.Println("ok")
	return nil
}

func runAsk(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	sessionID := fs.String("session", "", "session ID for follow-up questions (default: random)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionID == "" {
		*sessionID = uuid.NewString()
	}

	if a.cfg.Indexer.AutoIndexOnStartup {
		if err := ensureIndexes(ctx, a); err != nil {
			return err
		}
	}

	if question := strings.TrimSpace(strings.Join(fs.Args(), " ")); question != "" {
		return askOnce(ctx, a, question, *sessionID)
	}

	fmt.Printf("session %s - empty line exits\n", *sessionID)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("? ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			return nil
		}
		if err := askOnce(ctx, a, question, *sessionID); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

// ensureIndexes builds any category whose index is still empty.
func ensureIndexes(ctx context.Context, a *app) error {
	for _, cat := range models.AllCategories() {
		count, err := a.store.Count(ctx, cat)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		a.logger.Info("Index empty, building on startup", zap.String("category", string(cat)))
		report := a.indexer.BuildIndex(ctx, cat, false)
		if len(report.Errors) > 0 {
			a.logger.Warn("Startup index build had errors",
				zap.String("category", string(cat)),
				zap.Int("errors", len(report.Errors)))
		}
	}
	return nil
}

func askOnce(ctx context.Context, a *app, question, sessionID string) error {
	result, err := a.pipeline.Ask(ctx, question, sessionID)
	if err != nil {
		return err
	}

	if result.Resolution.EnhancedQuery != result.Resolution.OriginalQuery {
		fmt.Printf("interpreted as: %s\n", result.Resolution.EnhancedQuery)
	}
	fmt.Printf("sql: %s\n", result.Result.SQL)

	if result.Result.RowCount == 0 {
		fmt.Println("no results")
		if analysis := result.Result.NoResultsAnalysis; analysis != nil {
			for _, issue := range analysis.LikelyIssues {
				fmt.Printf("  %s\n", issue)
			}
			for _, s := range analysis.Suggestions {
				fmt.Printf("  did you mean %q? (%s, %.0f%%)\n", s.Suggestion, s.Category, s.Confidence*100)
			}
			for _, action := range analysis.RecommendedActions {
				fmt.Printf("  - %s\n", action)
			}
		}
		return nil
	}

	out, err := json.MarshalIndent(result.Result.Rows, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if result.Result.Truncated {
		fmt.Printf("(truncated to %d rows)\n", a.cfg.Executor.RowCap)
	}
	return nil
}
