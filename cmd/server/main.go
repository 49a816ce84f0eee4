package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alienxp03/arena/internal/analyzer"
	"github.com/alienxp03/arena/internal/battle"
	"github.com/alienxp03/arena/internal/config"
	"github.com/alienxp03/arena/internal/conversation"
	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/debate"
	"github.com/alienxp03/arena/internal/discussion"
	"github.com/alienxp03/arena/internal/memory"
	"github.com/alienxp03/arena/internal/provider"
	"github.com/alienxp03/arena/internal/roster"
	"github.com/alienxp03/arena/internal/storage"
	"github.com/alienxp03/arena/internal/turns"
	"github.com/alienxp03/arena/web/handlers"
)

func main() {
	port := flag.Int("port", 0, "Server port (default: from config)")
	dbPath := flag.String("db", "", "Database path (default: ~/.arena/arena.db)")
	configPath := flag.String("config", "", "Config path (default: ~/.arena/config.yaml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Initialize slog
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if *debug {
		opts.Level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	slog.SetDefault(logger)

	// Load configuration
	path := *configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = storage.DefaultDBPath()
	}

	// Initialize storage
	slog.Info("Initializing storage", "path", cfg.Storage.Path)
	store, err := storage.NewSQLiteStorage(cfg.Storage.Path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Initialize(); err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}

	deps, err := buildDiscussion(cfg, store, logger)
	if err != nil {
		slog.Error("Failed to wire discussion pipeline", "error", err)
		os.Exit(1)
	}

	h := handlers.New(deps.state, deps.orchestrator, store, deps.providers, deps.roster, logger)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: h.Router(),
	}

	// Handle shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		slog.Info("Shutting down...")
		server.Close()
	}()

	slog.Info("Starting arena server", "url", fmt.Sprintf("http://localhost%s", addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

type serverDeps struct {
	state        discussion.State
	orchestrator *discussion.Orchestrator
	providers    *provider.Registry
	roster       *roster.Service
}

// buildDiscussion wires the full pipeline from configuration and persisted
// state.
func buildDiscussion(cfg *config.Config, store storage.Storage, logger *slog.Logger) (*serverDeps, error) {
	providers := cfg.CreateRegistry()
	models := cfg.CreateModelRegistry()
	lookup := cfg.ProviderLookup(providers, models)

	taskAnalyzer := analyzer.New(lookup, cfg.Defaults.AnalyzerModel, logger)
	runner := battle.NewRunner(lookup)
	judge := battle.NewJudge(lookup, cfg.Defaults.JudgeModel, logger)
	battleOrch := battle.NewOrchestrator(taskAnalyzer, runner, judge)

	entries, err := store.LoadLeaderboardEntries()
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	leaderboard := battle.NewFromEntries(entries, nil)

	rosterService := roster.NewService(store.Roster())
	detector := debate.NewDetector(lookup, cfg.Defaults.JudgeModel)
	debateEngine := debate.NewEngine(lookup, rosterService, detector, debate.Config{
		MaxRounds:            cfg.Debate.MaxRounds,
		ConsensusThreshold:   cfg.Debate.ConsensusThreshold,
		EnableConsensusCheck: cfg.Debate.EnableConsensusCheck,
		TurnOrder:            cfg.DebateRoles(),
	}, logger)

	turnManager := turns.NewManager(turns.Config{
		MaxRespondersPerTurn: cfg.Turns.MaxRespondersPerTurn,
		EnableFollowUp:       cfg.Turns.EnableFollowUp,
		FollowUpThreshold:    cfg.Turns.FollowUpThreshold,
	})

	conversations := conversation.NewManager()
	persisted, err := store.ListConversations(100, 0)
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	for _, conv := range persisted {
		msgs, err := store.GetMessages(conv.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("load messages for %s: %w", conv.ID, err)
		}
		history := make([]core.ChatMessage, 0, len(msgs))
		for _, msg := range msgs {
			history = append(history, *msg)
		}
		conversations = conversations.Load(*conv, history)
	}

	orchestrator := discussion.NewOrchestrator(battleOrch, turnManager, debateEngine, rosterService, battle.Options{
		CandidateCount: cfg.Battle.CandidateCount,
		Timeout:        cfg.Battle.Timeout,
	}, logger)

	return &serverDeps{
		state: discussion.State{
			Conversations: conversations,
			Leaderboard:   leaderboard,
			Registry:      models,
			Memory:        memory.NewManager(),
		},
		orchestrator: orchestrator,
		providers:    providers,
		roster:       rosterService,
	}, nil
}
