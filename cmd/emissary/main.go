// Emissary is a personal representative chatbot.
//
// It answers questions about one person in the first person, grounded
// in that person's summary and profile documents, and pushes a
// notification whenever a visitor leaves contact details or asks
// something the persona context cannot answer. Unanswered questions
// accumulate in a local SQLite store for later review.
//
// Usage:
//
//	emissary serve                   Start the API server
//	emissary init [dir]              Initialize a working directory with defaults
//	emissary ask <message>           Run a single chat turn (for testing)
//	emissary questions <subcommand>  Manage the unanswered-question store
//	emissary version                 Print version and build information
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/micdig/emissary/internal/agent"
	"github.com/micdig/emissary/internal/api"
	"github.com/micdig/emissary/internal/buildinfo"
	"github.com/micdig/emissary/internal/config"
	"github.com/micdig/emissary/internal/eval"
	"github.com/micdig/emissary/internal/llm"
	"github.com/micdig/emissary/internal/notify"
	"github.com/micdig/emissary/internal/persona"
	"github.com/micdig/emissary/internal/questions"
	"github.com/micdig/emissary/internal/tools"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main constructs the OS-level environment and delegates to [run], so
// that the full lifecycle can be driven from tests without os.Exit.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the emissary command. Arguments are
// parsed by hand; the flag package's global state makes run impossible
// to call concurrently from tests, and the surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// Secrets like OPENAI_API_KEY and PUSHOVER_TOKEN commonly live in a
	// .env file next to the config; load it before config expansion so
	// ${VAR} references in the YAML resolve. Absence is not an error.
	_ = godotenv.Load()

	var configPath string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: emissary ask <message>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "questions":
		return runQuestions(ctx, stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Emissary - Personal Representative Chatbot")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: emissary [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve                      Start the API server")
	fmt.Fprintln(w, "  init [dir]                 Initialize a working directory (default: .)")
	fmt.Fprintln(w, "  ask <message>              Run a single chat turn (for testing)")
	fmt.Fprintln(w, "  questions list             List unanswered questions, newest first")
	fmt.Fprintln(w, "  questions search <kw>      Full-text search of unanswered questions")
	fmt.Fprintln(w, "  questions category <c>     List questions in a category")
	fmt.Fprintln(w, "  questions add <text>       Record a question by hand")
	fmt.Fprintln(w, "  questions delete <id>      Delete a question")
	fmt.Fprintln(w, "  questions note <id> <txt>  Attach notes to a question")
	fmt.Fprintln(w, "  questions stats            Question counts per category")
	fmt.Fprintln(w, "  version                    Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>   Path to config file (default: auto-discover)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./emissary.yaml, ~/.config/emissary/config.yaml, /etc/emissary/config.yaml")
	return nil
}

func runVersion(w io.Writer) error {
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := buildinfo.Info()[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// buildAgent assembles the full chat pipeline from configuration. Both
// serve and ask go through here so they behave identically.
func buildAgent(cfg *config.Config, logger *slog.Logger) (*agent.Agent, error) {
	p, err := persona.Load(cfg.Persona.Name, cfg.Persona.Dir)
	if err != nil {
		return nil, fmt.Errorf("load persona: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("llm.api_key is required")
	}

	notifier := notify.New(cfg.Pushover.Token, cfg.Pushover.User, cfg.Pushover.Endpoint, logger)
	registry := tools.NewRegistry(notifier, logger)
	client := llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, logger)
	evaluator := eval.New(client, cfg.LLM.EvalModel, p, logger)

	return agent.New(client, cfg.LLM.ChatModel, registry, evaluator, p, logger), nil
}

// runServe is the primary operating mode: load config, assemble the
// agent, start the API server, and block until SIGINT or SIGTERM.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting emissary", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"chat_model", cfg.LLM.ChatModel,
		"eval_model", cfg.LLM.EvalModel,
		"persona", cfg.Persona.Name,
	)

	a, err := buildAgent(cfg, logger)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, a, logger)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		_ = server.Shutdown(context.Background())
	}()

	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("emissary stopped")
	return nil
}

// runAsk processes one message with empty history and prints the reply.
// Useful for smoke tests without starting the server.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn)

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	a, err := buildAgent(cfg, logger)
	if err != nil {
		return err
	}

	reply, err := a.Chat(ctx, strings.Join(args, " "), nil)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, reply)
	return nil
}

// runQuestions dispatches the "questions" subcommands against the
// unanswered-question store. The store is independent of the chat
// pipeline, so no LLM or persona configuration is needed here.
func runQuestions(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: emissary questions <list|search|category|add|delete|note|stats>")
	}

	logger := newLogger(stdout, slog.LevelWarn)

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := questions.NewStore(cfg.Questions.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open question store: %w", err)
	}
	defer store.Close()

	switch args[0] {
	case "list":
		qs, err := store.ListAll(ctx)
		if err != nil {
			return err
		}
		return printQuestions(stdout, qs)

	case "search":
		if len(args) < 2 {
			return fmt.Errorf("usage: emissary questions search <keyword>")
		}
		qs, err := store.Search(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		return printQuestions(stdout, qs)

	case "category":
		if len(args) < 2 {
			return fmt.Errorf("usage: emissary questions category <category>")
		}
		qs, err := store.ListByCategory(ctx, args[1])
		if err != nil {
			return err
		}
		return printQuestions(stdout, qs)

	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: emissary questions add <text>")
		}
		id, err := store.Add(ctx, strings.Join(args[1:], " "), "", "cli", "")
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Added question %d\n", id)
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: emissary questions delete <id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %s", args[1])
		}
		deleted, err := store.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("question %d not found", id)
		}
		fmt.Fprintf(stdout, "Deleted question %d\n", id)
		return nil

	case "note":
		if len(args) < 3 {
			return fmt.Errorf("usage: emissary questions note <id> <text>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %s", args[1])
		}
		updated, err := store.UpdateNotes(ctx, id, strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("question %d not found", id)
		}
		fmt.Fprintf(stdout, "Updated question %d\n", id)
		return nil

	case "stats":
		stats, err := store.CategoryStats(ctx)
		if err != nil {
			return err
		}
		for _, s := range stats {
			category := s.Category
			if category == "" {
				category = "(uncategorized)"
			}
			fmt.Fprintf(stdout, "%-24s %d\n", category, s.Count)
		}
		return nil

	default:
		return fmt.Errorf("unknown questions subcommand: %s", args[0])
	}
}

func printQuestions(w io.Writer, qs []*questions.Question) error {
	if len(qs) == 0 {
		fmt.Fprintln(w, "No questions found.")
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(qs)
}

// loadConfig locates and parses the YAML configuration file. If
// explicit is non-empty that exact path is used; otherwise
// [config.FindConfig] searches the default locations.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}

// newLogger creates a structured text logger writing to w. All log
// output goes through slog; this helper standardizes handler options
// across subcommands.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}
