package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pattayaone/tidal/app/api"
	"github.com/pattayaone/tidal/app/cfg"
	"github.com/pattayaone/tidal/app/classify"
	"github.com/pattayaone/tidal/app/content"
	"github.com/pattayaone/tidal/app/database"
	"github.com/pattayaone/tidal/app/notify"
	"github.com/pattayaone/tidal/app/pipeline"
	"github.com/pattayaone/tidal/app/search"
	"github.com/pattayaone/tidal/app/sources"
	"github.com/pattayaone/tidal/app/tasks"
)

const mentionSubject = "tidal.mentions"

// firstPartyEntities are the platform's own businesses whose mention in an
// ingested post triggers the notification side channel.
var firstPartyEntities = []string{
	"PattayaOne",
	"Pattaya One News",
}

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Tidal server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	configCache := content.NewConfigCache(appCfg.SourcesDir, appCfg.DefaultMaxItems)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load collection configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Collection configurations loaded", "count", configCache.GetConfigCount())

	recordRepo := database.NewRecords(db)
	ruleRepo := database.NewRules(db)
	collectionRepo := database.NewCollections(db)

	indexer := buildIndexer(appCfg)
	notifier := buildNotifier(appCfg)
	defer notifier.Close()

	classifier := buildClassifier(appCfg)
	filterer := content.NewFilterer(classifier)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	registry := sources.NewRegistry(httpClient, appCfg.UserAgent)

	enforcer := pipeline.NewEnforcer(recordRepo, indexer)
	rulesTTL := time.Duration(appCfg.SchedulerInterval) * time.Second
	runner := pipeline.NewRunner(registry, filterer, recordRepo, ruleRepo,
		collectionRepo, enforcer, indexer, notifier, rulesTTL, nil)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount,
		"interval", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(configCache, collectionRepo, runner, enforcer,
		time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount, appCfg.PurgeRetentionDays)
	scheduler.Start()
	defer scheduler.Stop()

	triggerTask := func(collection string) tasks.TaskInterface {
		return tasks.NewIngestCollectionTask(collection, configCache, runner)
	}
	apiHandler := api.NewHandler(configCache, recordRepo, collectionRepo, scheduler, triggerTask)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Tidal server started")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Shutdown complete")
}

func buildIndexer(appCfg *cfg.Cfg) search.Indexer {
	if appCfg.SearchIndexURL == "" {
		slog.Info("Search indexing disabled (SEARCH_INDEX_URL not set)")
		return search.Noop{}
	}
	slog.Info("Search indexing enabled", "url", appCfg.SearchIndexURL)
	return search.NewHTTPIndexer(appCfg.SearchIndexURL, appCfg.SearchIndexKey)
}

func buildNotifier(appCfg *cfg.Cfg) notify.Notifier {
	if appCfg.NATSURL == "" {
		slog.Info("Mention notifications disabled (NATS_URL not set)")
		return notify.Noop{}
	}

	notifier, err := notify.NewNATSNotifier(appCfg.NATSURL, mentionSubject)
	if err != nil {
		slog.Warn("Failed to connect to NATS, mention notifications disabled", "error", err)
		return notify.Noop{}
	}
	slog.Info("Mention notifications enabled", "url", appCfg.NATSURL, "subject", mentionSubject)
	return notifier
}

func buildClassifier(appCfg *cfg.Cfg) content.Classifier {
	if appCfg.GeminiAPIKey != "" {
		client, err := classify.NewGeminiClient(context.Background(), appCfg.GeminiAPIKey)
		if err == nil {
			slog.Info("Gemini classifier enabled", "model", appCfg.GeminiModel)
			return classify.NewGemini(client, appCfg.GeminiModel, firstPartyEntities)
		}
		slog.Warn("Failed to initialize Gemini client, falling back to heuristic classifier", "error", err)
	}

	slog.Info("Heuristic classifier enabled")
	return classify.NewHeuristic(defaultUnsafeTerms, nil, firstPartyEntities)
}

// defaultUnsafeTerms backs the heuristic classifier's safety check when no
// Gemini key is configured. Operator-managed safety keywords in the store
// are a separate, earlier filter stage.
var defaultUnsafeTerms = []string{
	"onlyfans",
	"escort",
	"xxx",
}
