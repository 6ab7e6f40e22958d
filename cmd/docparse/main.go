package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/batch"
	"github.com/fwojciec/docparse/fs"
	"github.com/fwojciec/docparse/gemini"
	"github.com/fwojciec/docparse/goquery"
	"github.com/fwojciec/docparse/htmltomarkdown"
	"github.com/fwojciec/docparse/normalize"
	dpslog "github.com/fwojciec/docparse/slog"
	"github.com/fwojciec/docparse/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// Getenv looks up environment variables. Defaults to os.Getenv.
	Getenv func(string) string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services for end-to-end testing.
	RunService docparse.RunService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
		Getenv: os.Getenv,
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Initialize dependencies struct for Kong binding
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	// Create Kong parser with dependency binding
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docparse"),
		kong.Description("Extract documents through cloud document-understanding backends into markdown."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Handle help flags using Kong
	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docparse --help' to see available commands")
	}

	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	// Parse arguments first to know which command and its flags
	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	deps.Logger = logger

	cfg, err := LoadConfig(cli.Config)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", docparse.ErrorMessage(err))
		return err
	}
	deps.Credentials = cfg.Credentials(m.getenv)

	// Open database for commands that read or record runs
	if cmd == "runs" || (cmd == "run" && !cli.Run.DryRun) {
		m.DB = sqlite.NewDB(m.DBPath)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(stderr, "Hint: Set DOCPARSE_DB to use a different database path\n")
			return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
		}
		defer m.Close()

		m.RunService = sqlite.NewRunService(m.DB)
		deps.Runs = m.RunService
	}

	// Wire command-specific dependencies based on command
	if cmd == "run" && !cli.Run.DryRun {
		limiter := batch.NewProviderLimiter(cli.Run.Rate)
		deps.NewBackend = func(provider docparse.Provider) (docparse.Backend, error) {
			b, err := newBackend(provider, cfg)
			if err != nil {
				return nil, err
			}
			return wrapBackend(b, limiter, logger), nil
		}

		normalizer := normalize.NewNormalizer(htmltomarkdown.NewConverter(), goquery.NewTableParser())
		deps.Runner = &batch.Runner{
			Normalizer:  dpslog.NewLoggingNormalizer(normalizer, logger),
			Writer:      dpslog.NewLoggingWriter(fs.NewWriter(), logger),
			Credentials: deps.Credentials,
			Concurrency: cli.Run.Concurrency,
		}

		if cli.Run.CountTokens {
			tokenCounter, err := gemini.NewTokenCounter(tokenizerModel)
			if err != nil {
				return fmt.Errorf("failed to create token counter: %w", err)
			}
			deps.TokenCounter = tokenCounter
		}
	}

	return kongCtx.Run(deps)
}

// tokenizerModel is the model whose tokenizer counts extracted text.
const tokenizerModel = "gemini-2.5-flash"

func (m *Main) getenv(key string) string {
	if m.Getenv != nil {
		return m.Getenv(key)
	}
	return os.Getenv(key)
}

func defaultDBPath() string {
	if path := os.Getenv("DOCPARSE_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "docparse.db"
	}
	dir := filepath.Join(home, ".docparse")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "docparse.db")
}
