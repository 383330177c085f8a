package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"ragdesk/internal/app"
	"ragdesk/internal/console"
	"ragdesk/internal/theme"
	"ragdesk/internal/tui"
	"ragdesk/pkg/api"
	"ragdesk/pkg/config"
	"ragdesk/pkg/documents"
	"ragdesk/pkg/logging"
	"ragdesk/pkg/notify"
	"ragdesk/pkg/upload"
)

const (
	helpFlag = "--help"
)

// version is set during build time via ldflags
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "Config file (yaml, json or toml; overrides profile config)")
		backendURL  = flag.String("backend", "", "Backend URL (overrides profile config)")
		dbPath      = flag.String("db", "", "Session database path (overrides profile config)")
		logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
		help        = flag.Bool("help", false, "Show help")
		showVersion = flag.Bool("version", false, "Show version")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("ragdesk version %s\n", version)
		return nil
	}

	if *help {
		printUsage()
		return nil
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("no command specified")
	}

	command := args[0]

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// Override with command line flags
	if *backendURL != "" {
		cfg.Backend.URL = *backendURL
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}
	if *logLevel != "" {
		cfg.Logging.Level = logging.Level(*logLevel)
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	// config works on the file itself and must not need a valid backend
	if command == "config" {
		return handleConfig(cfg, args[1:])
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if cfg.Metrics.Addr != "" {
		serveMetrics(cfg.Metrics.Addr, logger)
	}

	interactive := command == "console" || command == "tui"
	var opts []app.Option
	if !interactive {
		opts = append(opts, app.WithDeleteScheduler(func(d time.Duration, fn func()) {
			time.Sleep(d)
			fn()
		}))
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a, err := app.New(baseCtx, cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.Close()

	styles := theme.DefaultTheme().Styles()

	if interactive {
		switch command {
		case "console":
			return console.New(a, os.Stdin, os.Stdout, styles).Run(baseCtx)
		default:
			notices := &notify.Recorder{}
			a.Notifier.Attach(notices)
			return tui.Run(tui.NewModel(baseCtx, a.Chat, a.Documents, a.Stats, notices, styles))
		}
	}

	notices := notify.NewWriter(os.Stdout)
	notices.Style = styles.Notice
	a.Notifier.Attach(notices)

	ctx, cancel := context.WithTimeout(baseCtx, 5*time.Minute)
	defer cancel()

	switch command {
	case "login":
		return a.Auth.Login(ctx, argAt(args, 1), argAt(args, 2))
	case "logout":
		return a.Auth.Logout(ctx)
	case "register":
		a.Auth.Register()
		return nil
	case "whoami":
		return handleWhoami(ctx, a)
	case "upload":
		return handleUpload(ctx, a, args[1:])
	case "documents", "docs":
		return handleDocuments(ctx, a, styles, args[1:])
	case "stats":
		return handleStats(ctx, a)
	case "view":
		return handleView(ctx, a, args[1:])
	case "delete", "rm":
		return handleDelete(ctx, a, args[1:])
	case "chat":
		return handleChat(ctx, a, styles, args[1:])
	case "history":
		return handleHistory(ctx, a, styles)
	case "export":
		return handleExport(ctx, a, args[1:])
	case "health":
		return handleHealth(ctx, a)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadProfile()
	if err != nil {
		return nil, fmt.Errorf("failed to load profile config: %w", err)
	}
	return cfg, nil
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func handleWhoami(ctx context.Context, a *app.App) error {
	user, err := a.Auth.User(ctx)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if user == nil {
		fmt.Println("Not logged in")
		return nil
	}
	fmt.Printf("Logged in as %s <%s>\n", user.Username, user.Email)
	return nil
}

func handleUpload(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 || args[0] == helpFlag {
		fmt.Println("Usage: ragdesk upload <file>...")
		fmt.Println("")
		fmt.Printf("Upload documents. Allowed types: %s\n", strings.Join(a.Config.Upload.AllowedExtensions, ", "))
		fmt.Printf("Maximum size: %s\n", a.Config.Upload.MaxSize)
		return nil
	}

	files := make([]upload.File, 0, len(args))
	for _, path := range args {
		f, err := upload.OpenLocal(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		files = append(files, f)
	}

	report := a.Uploads.HandleFiles(ctx, files)
	if failed := report.Count(upload.Failed); failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(files))
	}
	return nil
}

func handleDocuments(ctx context.Context, a *app.App, styles *theme.Styles, args []string) error {
	if len(args) > 0 && args[0] == helpFlag {
		fmt.Println("Usage: ragdesk documents [filter]")
		fmt.Println("")
		fmt.Println("List uploaded documents, optionally filtered by name or type.")
		return nil
	}

	if err := a.Documents.Load(ctx); err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	a.Documents.Filter(strings.Join(args, " "))
	return a.Documents.Render(os.Stdout, styles.Header)
}

func handleStats(ctx context.Context, a *app.App) error {
	if err := a.Stats.Load(ctx); err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	return a.Stats.Render(os.Stdout)
}

func handleView(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: ragdesk view <document-id>")
	}
	if err := a.Documents.Load(ctx); err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	row, err := a.Documents.Preview(api.DocumentID(args[0]))
	if errors.Is(err, api.ErrNotImplemented) {
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %s\n", row.ID)
	fmt.Printf("Name:     %s\n", row.Filename)
	fmt.Printf("Type:     %s\n", row.Type())
	fmt.Printf("Size:     %s\n", row.Size())
	fmt.Printf("Chunks:   %d\n", row.Chunks)
	fmt.Printf("Uploaded: %s\n", row.Uploaded())
	fmt.Printf("Status:   %s\n", row.Status())
	return nil
}

func handleDelete(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: ragdesk delete <document-id> [--force]")
	}

	if args[0] == helpFlag {
		fmt.Println("Usage: ragdesk delete <document-id> [--force]")
		fmt.Println("")
		fmt.Println("Delete a document from the backend.")
		fmt.Println("")
		fmt.Println("Options:")
		fmt.Println("  --force    Skip confirmation prompt")
		return nil
	}

	id := api.DocumentID(args[0])

	// Check if --force flag is provided
	force := false
	for _, arg := range args[1:] {
		if arg == "--force" {
			force = true
			break
		}
	}

	if err := a.Documents.Load(ctx); err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	row, ok := a.Documents.Find(id)
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}

	a.Delete.Open(row.ID, row.Filename)

	if !force {
		fmt.Printf("Are you sure you want to delete '%s'? This cannot be undone. (y/N): ", row.Filename)
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			a.Delete.Dismiss()
			return fmt.Errorf("failed to read input")
		}

		response := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if response != "y" && response != "yes" {
			a.Delete.Cancel()
			fmt.Println("Operation canceled.")
			return nil
		}
	}

	return a.Delete.Confirm(ctx)
}

func handleChat(ctx context.Context, a *app.App, styles *theme.Styles, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: ragdesk chat <message>")
	}

	ex, err := a.Chat.Start(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Println(styles.Bubble(ex.User))

	reply := ex.Finish(ctx)
	fmt.Println(styles.Bubble(reply))
	return nil
}

func handleHistory(ctx context.Context, a *app.App, styles *theme.Styles) error {
	if err := a.Chat.LoadHistory(ctx); err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	bubbles := a.Chat.Transcript().Bubbles()
	if len(bubbles) == 0 {
		fmt.Println("No messages in this session.")
		return nil
	}
	for _, b := range bubbles {
		fmt.Println(styles.Bubble(b))
	}
	return nil
}

func handleExport(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: ragdesk export <file.csv|file.xlsx|file.html> [filter]")
	}

	if err := a.Documents.Load(ctx); err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	a.Documents.Filter(strings.Join(args[1:], " "))

	rows := a.Documents.Visible()
	if err := documents.ExportFile(args[0], rows); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	fmt.Printf("Exported %d documents to %s\n", len(rows), args[0])
	return nil
}

func handleHealth(ctx context.Context, a *app.App) error {
	fmt.Printf("Checking backend at %s...\n", a.Client.BaseURL())

	health, err := a.Client.Health(ctx)
	if err != nil {
		fmt.Println("Backend is not reachable")
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Printf("Status:  %s\n", health.Status)
	fmt.Printf("Service: %s\n", health.Service)
	fmt.Printf("Version: %s\n", health.Version)
	return nil
}

func handleConfig(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: ragdesk config <init|show|set>")
	}

	command := args[0]

	switch command {
	case "init":
		if err := config.DefaultProfile().SaveProfile(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		path, err := config.ProfilePath()
		if err != nil {
			fmt.Println("Profile config initialized successfully")
		} else {
			fmt.Printf("Profile config initialized at: %s\n", path)
		}
		return nil

	case "show":
		path, err := config.ProfilePath()
		if err != nil {
			fmt.Printf("# Config file: <error getting path: %v>\n", err)
		} else {
			fmt.Printf("# Config file: %s\n", path)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		fmt.Print(string(data))
		return nil

	case "set":
		if len(args) < 3 {
			fmt.Println("Usage: ragdesk config set <key> <value>")
			fmt.Println("")
			fmt.Println("Keys:")
			for _, key := range config.Keys() {
				fmt.Printf("  %s\n", key)
			}
			return fmt.Errorf("missing key or value")
		}
		key, value := args[1], args[2]
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.SaveProfile(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("Config updated: %s = %s\n", key, value)
		return nil

	default:
		return fmt.Errorf("unknown config command: %s", command)
	}
}

func printUsage() {
	fmt.Printf("ragdesk - terminal client for the RAG chatbot backend (version %s)\n", version)
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  ragdesk [flags] <command> [args]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  login [user] [password]      Start a demo session (blank fields use demo/demo123)")
	fmt.Println("  logout                       End the session")
	fmt.Println("  register                     Show how to get an account")
	fmt.Println("  whoami                       Show the logged in user")
	fmt.Println("  upload <file>...             Upload pdf, txt or md documents")
	fmt.Println("  documents [filter]           List uploaded documents")
	fmt.Println("  stats                        Show document statistics")
	fmt.Println("  view <id>                    Show one document")
	fmt.Println("  delete <id> [--force]        Delete a document")
	fmt.Println("  chat <message>               Send a chat message")
	fmt.Println("  history                      Show this session's chat history")
	fmt.Println("  export <path> [filter]       Export the document list to csv, xlsx or html")
	fmt.Println("  health                       Check the backend")
	fmt.Println("  console                      Interactive shell")
	fmt.Println("  tui                          Full-screen chat")
	fmt.Println("  config <init|show|set>       Manage user profile configuration")
	fmt.Println("")
	fmt.Println("Flags:")
	fmt.Println("  -config string        Config file (overrides profile config)")
	fmt.Println("  -backend string       Backend URL (overrides profile config)")
	fmt.Println("  -db string            Session database path (overrides profile config)")
	fmt.Println("  -log-level string     Log level (overrides profile config)")
	fmt.Println("  -metrics-addr string  Serve Prometheus metrics on this address")
	fmt.Println("  -help                 Show this help")
	fmt.Println("  -version              Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  ragdesk config set backend.url http://localhost:8000")
	fmt.Println("  ragdesk login alice secret")
	fmt.Println("  ragdesk upload report.pdf notes.md")
	fmt.Println("  ragdesk documents report")
	fmt.Println("  ragdesk chat \"what is in the report?\"")
	fmt.Println("  ragdesk export documents.xlsx")
}
