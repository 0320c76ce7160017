package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tomasmach/himekuri/bot"
	"github.com/tomasmach/himekuri/config"
	"github.com/tomasmach/himekuri/dialog"
	"github.com/tomasmach/himekuri/diary"
	"github.com/tomasmach/himekuri/dispatch"
	"github.com/tomasmach/himekuri/llm"
	"github.com/tomasmach/himekuri/logstore"
	"github.com/tomasmach/himekuri/notify"
	"github.com/tomasmach/himekuri/sheets"
	"github.com/tomasmach/himekuri/store"
	"github.com/tomasmach/himekuri/web"
)

func main() {
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// .env is optional; env vars override config file values either way.
	_ = godotenv.Load()

	// Config path: --config flag > HIMEKURI_CONFIG env > default
	cfgPath := config.Resolve()
	if *configPath != "" {
		cfgPath = *configPath
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}

	logs := setupLogger(*logLevel, *logFormat, cfg.Data.LogDBPath)
	if logs != nil {
		defer logs.Close()
	}
	slog.Info("config loaded", "path", cfgPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rowStore, err := sheets.NewGoogle(ctx, cfg.Sheets.CredentialsFile)
	if err != nil {
		slog.Error("failed to open spreadsheet client", "error", err)
		os.Exit(1)
	}
	st := store.New(rowStore, cfg.Sheets.UserDataID, cfg.Sheets.TemplatesID)

	llmClient := llm.New(cfg.LLM.OpenAIKey, cfg.LLM.Model,
		time.Duration(cfg.LLM.RequestTimeoutSeconds)*time.Second)
	engine := diary.NewEngine(st, llmClient)

	sessions := dialog.NewManager(st)
	dispatcher := dispatch.New(sessions, st, engine, cfg.Limits.FreeDailyCap, cfg.Data.FeedbackDir)

	b, err := bot.New(cfg.Line.ChannelSecret, cfg.Line.ChannelToken)
	if err != nil {
		slog.Error("failed to create bot client", "error", err)
		os.Exit(1)
	}
	b.SetHandler(dispatcher)

	notifier := notify.New(st, b, time.Duration(cfg.Notify.IntervalSeconds)*time.Second)
	go notifier.Run(ctx)

	srv := web.New(cfg.Server.Addr, http.HandlerFunc(b.ServeWebhook), logs)
	go func() {
		slog.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	// Block until SIGTERM or SIGINT, or until the server dies.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	slog.Info("shutdown complete")
}

// setupLogger installs the default slog logger and, when dbPath is set,
// tees records into the SQLite log store. Returns the store (nil when
// disabled or unopenable).
func setupLogger(level, format, dbPath string) *logstore.Store {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: l}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}

	var logs *logstore.Store
	if dbPath != "" {
		var err error
		logs, err = logstore.Open(dbPath)
		if err != nil {
			slog.New(h).Warn("log store disabled", "error", err, "path", dbPath)
		} else {
			h = logstore.NewHandler(h, logs)
		}
	}

	slog.SetDefault(slog.New(h))
	return logs
}
