package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/zoobzio/arbor"
	"github.com/zoobzio/arbor/openai"
	"github.com/zoobzio/pipz"
	"go.uber.org/zap"
)

// directSystem is sent when answering a problem the classifier judged simple.
const directSystem = "You are a smart and analytical assistant."

// traceTimeout bounds how long the report waits for the trace to drain.
const traceTimeout = 2 * time.Second

// archiver is an Archive that owns a connection.
type archiver interface {
	arbor.Archive
	Close() error
}

// app holds the collaborators of the root command. Tests replace them.
type app struct {
	out         io.Writer
	logger      *zap.Logger
	newProvider func(cfg Config) arbor.Provider
	openArchive func(ctx context.Context, dsn string) (archiver, error)
}

func newApp(out io.Writer) *app {
	return &app{
		out:         out,
		newProvider: openAIProvider,
		openArchive: soyArchive,
	}
}

func openAIProvider(cfg Config) arbor.Provider {
	opts := []openai.Option{
		openai.WithModel(cfg.ModelName),
		openai.WithJSONMode(cfg.JSONMode),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(cfg.APIKey, opts...)
}

func soyArchive(ctx context.Context, dsn string) (archiver, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to archive: %w", err)
	}
	archive, err := arbor.NewSoyArchive(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return archive, nil
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arbor [problem]",
		Short: "Solve a problem with graph-of-thoughts reasoning",
		Long: `arbor grows a graph of candidate thoughts for a problem. It seeds
initial ideas, scores each one, and then repeatedly refines the best thought
and merges the top two. The highest-scoring thought is reported.`,
		Example: `
# Solve a problem with the defaults
arbor "How can a small team cut cloud costs by 30%?"

# Read settings from a file and export the graph
arbor --config arbor.yaml --export graph.yaml

# Point at a local OpenAI-compatible server
arbor --base-url http://localhost:11434/v1 --model llama3 "Plan a product launch"
`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, args)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringP("config", "c", "", "YAML config file")
	flags.String("env-file", ".env", "dotenv file to load before reading the environment")
	flags.StringP("model", "m", "", "model name")
	flags.IntP("thoughts", "n", arbor.DefaultInitialThoughts, "number of initial thoughts")
	flags.IntP("cycles", "k", arbor.DefaultCycles, "number of reasoning cycles")
	flags.String("base-url", "", "OpenAI-compatible API base URL")
	flags.Float32("temperature", arbor.DefaultTemperature, "temperature for generative calls")
	flags.Bool("json-mode", true, "request native JSON output for structured calls")
	flags.String("archive-dsn", "", "PostgreSQL DSN to archive the finished session")
	flags.StringP("export", "o", "", "write the finished graph to a .json or .yaml file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("direct", false, "ask the oracle directly when the problem needs no expansion")

	return cmd
}

// resolveConfig merges, in increasing precedence: defaults, the config file,
// the environment, flags, and the positional problem.
func resolveConfig(cmd *cobra.Command, args []string) (Config, error) {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	if err := loadEnv(envFile); err != nil {
		return Config{}, err
	}

	path, _ := flags.GetString("config")
	cfg, err := LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	cfg.APIKey = os.Getenv("OPENAI_API_KEY")

	if flags.Changed("model") {
		cfg.ModelName, _ = flags.GetString("model")
	}
	if flags.Changed("thoughts") {
		cfg.InitialThoughtCount, _ = flags.GetInt("thoughts")
	}
	if flags.Changed("cycles") {
		cfg.Cycles, _ = flags.GetInt("cycles")
	}
	if flags.Changed("base-url") {
		cfg.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("temperature") {
		cfg.Temperature, _ = flags.GetFloat32("temperature")
	}
	if flags.Changed("json-mode") {
		cfg.JSONMode, _ = flags.GetBool("json-mode")
	}
	if flags.Changed("archive-dsn") {
		cfg.ArchiveDSN, _ = flags.GetString("archive-dsn")
	}
	if flags.Changed("export") {
		cfg.ExportPath, _ = flags.GetString("export")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("direct") {
		cfg.Direct, _ = flags.GetBool("direct")
	}
	if len(args) == 1 {
		cfg.ProblemStatement = args[0]
	}

	return cfg, cfg.Validate()
}

// loadEnv loads a dotenv file if it exists. Variables already set win.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func (a *app) run(ctx context.Context, cfg Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := a.logger
	if logger == nil {
		var err error
		logger, err = newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
	}

	provider := a.newProvider(cfg)
	generator := arbor.NewProviderOracle(provider).WithTemperature(cfg.Temperature)
	judge := arbor.NewProviderOracle(provider).WithTemperature(arbor.DefaultJudgementTemperature)

	reasoner := arbor.NewReasoner().
		WithOracle(generator).
		WithJudge(judge).
		WithInitialThoughts(cfg.InitialThoughtCount).
		WithCycles(cfg.Cycles)

	var archive archiver
	if cfg.ArchiveDSN != "" {
		var err error
		archive, err = a.openArchive(ctx, cfg.ArchiveDSN)
		if err != nil {
			return err
		}
		defer archive.Close()
	}

	processors := []pipz.Chainable[*arbor.Session]{reasoner}
	if archive != nil {
		processors = append(processors, arbor.Archived(archive))
	}
	pipeline := arbor.Sequence("arbor-cli", processors...)

	session := arbor.NewSessionWithTrace(ctx, cfg.ProblemStatement, uuid.New().String())
	trace := newTracer(logger, session.TraceID)
	defer trace.Close()

	printHeader(a.out, cfg.ModelName, cfg.ProblemStatement)

	if _, err := pipeline.Process(ctx, session); err != nil {
		return err
	}
	if !trace.Wait(traceTimeout) {
		logger.Warn("trace incomplete", zap.String("trace_id", session.TraceID))
	}
	if archive != nil {
		logger.Info("session archived", zap.String("trace_id", session.TraceID))
	}

	if session.Outcome() == arbor.OutcomeDirect && cfg.Direct {
		printDirect(a.out, generator.Generate(ctx, cfg.ProblemStatement, directSystem, false))
	} else {
		printReport(a.out, session)
	}
	printUsage(a.out, generator.Calls()+judge.Calls(), addUsage(generator.Usage(), judge.Usage()))

	if cfg.ExportPath != "" {
		if err := exportSnapshot(cfg.ExportPath, session.Snapshot()); err != nil {
			return err
		}
		logger.Info("graph exported", zap.String("path", cfg.ExportPath))
	}

	return nil
}
