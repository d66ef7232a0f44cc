package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hpungsan/binder/internal/collection"
	"github.com/hpungsan/binder/internal/config"
	"github.com/hpungsan/binder/internal/db"
	"github.com/hpungsan/binder/internal/mcp"
	"github.com/hpungsan/binder/internal/ops"
	"github.com/hpungsan/binder/internal/tcgapi"
	"github.com/hpungsan/binder/internal/viewer"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"search": true, "show": true, "save": true, "saved": true,
	"export": true, "serve": true,
	"help": true,
}

// env holds the components every surface shares.
type env struct {
	cfg    *config.Config
	db     *sql.DB
	mgr    *collection.Manager
	search ops.Searcher
	logger *zap.Logger
}

// commandArg returns the first argument that is not the global --verbose flag.
func commandArg(args []string) string {
	for _, a := range args[1:] {
		if a != "--verbose" {
			return a
		}
	}
	return ""
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	arg := commandArg(os.Args)
	if arg == "" {
		return false // No args → MCP server
	}
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	arg := commandArg(os.Args)
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _     _           _
  | |__ (_)_ __   __| | ___ _ __
  | '_ \| | '_ \ / _' |/ _ \ '__|
  | |_) | | | | | (_| |  __/ |
  |_.__/|_|_| |_|\__,_|\___|_|

  Pokémon card viewer and collection

  Usage: binder <command> [options]
         binder serve
         binder --help

  MCP server mode requires piped input.`)
}

// newLogger builds a JSON logger on stderr. stdout is reserved for command
// output and the MCP transport.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// openEnv loads config, opens the database under baseDir and loads the
// saved collection.
func openEnv(baseDir, workDir string, logger *zap.Logger) (*env, error) {
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cfg, err := config.LoadWithRepo(baseDir, workDir)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	db.ConfigurePool(database, cfg)

	store := collection.NewKVStore(db.NewKV(database), cfg.StorageKey, logger)
	client := tcgapi.NewClient(cfg, Version, logger)

	return &env{
		cfg:    cfg,
		db:     database,
		mgr:    collection.NewManager(context.Background(), store, logger),
		search: tcgapi.NewExecutor(client, logger),
		logger: logger,
	}, nil
}

func (e *env) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger, err := newLogger(slices.Contains(os.Args[1:], "--verbose"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	workDir, err := os.Getwd()
	if err != nil {
		workDir = homeDir
	}

	rt, err := openEnv(filepath.Join(homeDir, ".binder"), workDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(rt)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if commandArg(os.Args) != "" && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", commandArg(os.Args))
		fmt.Fprintf(os.Stderr, "Run 'binder --help' for usage.\n")
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(rt.cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
	}

	// MCP server mode (default)
	sess := viewer.NewSession("mcp", rt.search, logger)
	defer sess.Close()
	err = mcp.Run(mcp.Deps{
		Manager:  rt.mgr,
		Session:  sess,
		Searcher: rt.search,
		Config:   rt.cfg,
		Logger:   logger,
	}, Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
