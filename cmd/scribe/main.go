package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hpungsan/scribe/internal/config"
	"github.com/hpungsan/scribe/internal/db"
	"github.com/hpungsan/scribe/internal/docs"
	"github.com/hpungsan/scribe/internal/llm"
	"github.com/hpungsan/scribe/internal/logging"
	"github.com/hpungsan/scribe/internal/mcp"
	"github.com/hpungsan/scribe/internal/ops"
	"github.com/hpungsan/scribe/internal/retrieval"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"split": true, "topics": true, "format": true,
	"assemble": true, "ask": true,
	"index": true, "unindex": true, "search": true,
	"docs": true, "import": true, "export": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
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
   ___  ___ _ __(_) |__   ___
  / __|/ __| '__| | '_ \ / _ \
  \__ \ (__| |  | | |_) |  __/
  |___/\___|_|  |_|_.__/ \___|

  Transcript chunking, topics and context assembly

  Usage: scribe <command> [options]
         scribe --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any setup
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode() && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'scribe --help' for usage.\n")
		os.Exit(1)
	}

	env, closeEnv, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeEnv()

	if isCLIMode() {
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			closeEnv()
			os.Exit(1)
		}
		return
	}

	// MCP server mode (default)
	if err := mcp.Run(env, Version); err != nil {
		env.Logger.Error("mcp server stopped", zap.Error(err))
		closeEnv()
		os.Exit(1)
	}
}

// setup loads configuration and opens the stores under ~/.scribe.
func setup() (*ops.Env, func(), error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, ".scribe")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = baseDir
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := cfg.Log
	if logCfg.File.Filename != "" && !filepath.IsAbs(logCfg.File.Filename) {
		logCfg.File.Filename = filepath.Join(baseDir, logCfg.File.Filename)
	}
	log, err := logging.New(&logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
	}

	database, err := db.Init(baseDir)
	if err != nil {
		_ = log.Sync()
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	env := &ops.Env{
		Config: cfg,
		Docs:   docs.NewStore(cfg.ResolveDocsDir(baseDir), log),
		Index:  retrieval.NewIndex(database, log),
		Logger: log,
	}

	// Without an API key, format and ask report TRANSFORM_UNCONFIGURED
	// while every other operation keeps working.
	if client, err := llm.FromConfig(cfg.LLM, log); err == nil {
		env.LLM = client
	} else {
		log.Debug("llm client disabled", zap.Error(err))
	}

	closeEnv := func() {
		database.Close()
		_ = log.Sync()
	}
	return env, closeEnv, nil
}
