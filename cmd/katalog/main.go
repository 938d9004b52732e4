package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iskra-katalog/katalog/cmd/katalog/cli"
	"github.com/iskra-katalog/katalog/internal/app"
	"github.com/iskra-katalog/katalog/internal/auth"
	"github.com/iskra-katalog/katalog/internal/catalog"
	cataloghttp "github.com/iskra-katalog/katalog/internal/catalog/http"
	"github.com/iskra-katalog/katalog/internal/observability"
	"github.com/iskra-katalog/katalog/internal/platform/cache"
	"github.com/iskra-katalog/katalog/internal/shared"
	"github.com/iskra-katalog/katalog/internal/view"
)

const usage = `usage:
  katalog                                         run the HTTP server
  katalog import [-mode merge|replace] [-json] FILE
  katalog export [-format xlsx|csv|pdf] FILE
  katalog seed
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	var code int
	if args := os.Args[1:]; len(args) > 0 {
		code = runCommand(ctx, args, os.Stdout, os.Stderr)
	} else {
		code = serve(ctx)
	}
	stop()
	os.Exit(code)
}

func serve(ctx context.Context) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("open catalog", slog.Any("error", err))
		return 1
	}
	if err := store.EnsureInitialized(ctx); err != nil {
		logger.Error("initialise catalog", slog.Any("error", err), slog.String("path", cfg.CatalogPath))
		return 1
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, shared.SessionOptions{
		TTL:    cfg.SessionTTL,
		Secure: cfg.IsProduction(),
	})
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		return 1
	}

	authService, err := auth.NewService(auth.Credentials{
		Username:     cfg.Username,
		Password:     cfg.Password,
		PasswordHash: cfg.PasswordHash,
	})
	if err != nil {
		logger.Error("configure operator login", slog.Any("error", err))
		return 1
	}
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	metrics := observability.NewMetrics()
	catalogHandler := cataloghttp.NewHandler(logger, store, templates, csrfManager, metrics.Catalog(), cataloghttp.Config{
		BaseURL:         cfg.AppBaseURL,
		RequiredColumns: cfg.ImportRequired,
		MaxUploadBytes:  cfg.UploadMaxBytes,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		CatalogHandler: catalogHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("catalog", cfg.CatalogPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return 1
	}
	return 0
}

func openStore(cfg *app.Config, logger *slog.Logger) (*catalog.Store, error) {
	schema, err := cfg.Schema()
	if err != nil {
		return nil, err
	}
	storeCfg := cfg.StoreConfig(schema)
	storeCfg.Logger = logger
	return catalog.NewStore(storeCfg)
}

func runCommand(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := app.LoadToolConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return cli.ExitFailure
	}
	store, err := openStore(cfg, app.NewLoggerTo(stderr, cfg))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "open catalog: %v\n", err)
		return cli.ExitFailure
	}
	commands, err := cli.NewCatalogCLI(store, cfg.ImportRequired)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return cli.ExitFailure
	}

	name, rest := args[0], args[1:]
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	switch name {
	case "import":
		mode := fs.String("mode", "merge", "merge or replace")
		jsonOut := fs.Bool("json", false, "print the summary as JSON")
		if err := fs.Parse(rest); err != nil {
			return cli.ExitFailure
		}
		return commands.ImportCommand(ctx, cli.ImportOptions{
			Path:       fs.Arg(0),
			Mode:       *mode,
			JSONOutput: *jsonOut,
			Stdout:     stdout,
			Stderr:     stderr,
		})
	case "export":
		format := fs.String("format", "", "xlsx, csv or pdf (default from FILE extension)")
		if err := fs.Parse(rest); err != nil {
			return cli.ExitFailure
		}
		return commands.ExportCommand(ctx, cli.ExportOptions{
			Path:    fs.Arg(0),
			Format:  *format,
			BaseURL: cfg.AppBaseURL,
			Stdout:  stdout,
			Stderr:  stderr,
		})
	case "seed":
		if err := fs.Parse(rest); err != nil {
			return cli.ExitFailure
		}
		return commands.SeedCommand(ctx, stdout, stderr)
	case "help", "-h", "--help":
		_, _ = fmt.Fprint(stdout, usage)
		return cli.ExitOK
	}
	_, _ = fmt.Fprintf(stderr, "unknown command %q\n%s", name, usage)
	return cli.ExitFailure
}
