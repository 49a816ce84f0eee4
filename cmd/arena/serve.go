package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alienxp03/arena/internal/analyzer"
	"github.com/alienxp03/arena/internal/battle"
	"github.com/alienxp03/arena/internal/conversation"
	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/debate"
	"github.com/alienxp03/arena/internal/discussion"
	"github.com/alienxp03/arena/internal/memory"
	"github.com/alienxp03/arena/internal/roster"
	"github.com/alienxp03/arena/internal/storage"
	"github.com/alienxp03/arena/internal/turns"
	"github.com/alienxp03/arena/web/handlers"
)

// ============================================================================
// SERVE COMMAND
// ============================================================================

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("port") && appConfig != nil && appConfig.Server.Port != 0 {
			servePort = appConfig.Server.Port
		}

		store, err := getStorage()
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()

		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		slog.SetDefault(logger)

		fmt.Printf("\n🌐 Starting arena web server on http://localhost:%d\n\n", servePort)
		fmt.Println("Available endpoints:")
		fmt.Printf("  GET  http://localhost:%d/api/conversations  - List conversations\n", servePort)
		fmt.Printf("  POST http://localhost:%d/api/conversations  - Start a conversation\n", servePort)
		fmt.Printf("  GET  http://localhost:%d/api/leaderboard    - Model leaderboard\n", servePort)
		fmt.Println("\nPress Ctrl+C to stop the server")

		return startWebServer(store, logger, servePort)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8183, "Server port")
}

func startWebServer(store storage.Storage, logger *slog.Logger, port int) error {
	providers := appConfig.CreateRegistry()
	models := appConfig.CreateModelRegistry()
	lookup := appConfig.ProviderLookup(providers, models)

	taskAnalyzer := analyzer.New(lookup, appConfig.Defaults.AnalyzerModel, logger)
	battleOrch := battle.NewOrchestrator(taskAnalyzer, battle.NewRunner(lookup), battle.NewJudge(lookup, appConfig.Defaults.JudgeModel, logger))

	leaderboard, err := loadLeaderboard(store)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard: %w", err)
	}

	rosterService := roster.NewService(store.Roster())
	detector := debate.NewDetector(lookup, appConfig.Defaults.JudgeModel)
	debateEngine := debate.NewEngine(lookup, rosterService, detector, debate.Config{
		MaxRounds:            appConfig.Debate.MaxRounds,
		ConsensusThreshold:   appConfig.Debate.ConsensusThreshold,
		EnableConsensusCheck: appConfig.Debate.EnableConsensusCheck,
		TurnOrder:            appConfig.DebateRoles(),
	}, logger)

	turnManager := turns.NewManager(turns.Config{
		MaxRespondersPerTurn: appConfig.Turns.MaxRespondersPerTurn,
		EnableFollowUp:       appConfig.Turns.EnableFollowUp,
		FollowUpThreshold:    appConfig.Turns.FollowUpThreshold,
	})

	conversations := conversation.NewManager()
	persisted, err := store.ListConversations(100, 0)
	if err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}
	for _, conv := range persisted {
		msgs, err := store.GetMessages(conv.ID, 0)
		if err != nil {
			return fmt.Errorf("failed to load messages for %s: %w", conv.ID, err)
		}
		history := make([]core.ChatMessage, 0, len(msgs))
		for _, msg := range msgs {
			history = append(history, *msg)
		}
		conversations = conversations.Load(*conv, history)
	}

	orchestrator := discussion.NewOrchestrator(battleOrch, turnManager, debateEngine, rosterService, battle.Options{
		CandidateCount: appConfig.Battle.CandidateCount,
		Timeout:        appConfig.Battle.Timeout,
	}, logger)

	h := handlers.New(discussion.State{
		Conversations: conversations,
		Leaderboard:   leaderboard,
		Registry:      models,
		Memory:        memory.NewManager(),
	}, orchestrator, store, providers, rosterService, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: h.Router(),
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down...")
		server.Close()
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
