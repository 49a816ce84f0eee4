package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alienxp03/arena/internal/battle"
	"github.com/alienxp03/arena/internal/config"
	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/export"
	"github.com/alienxp03/arena/internal/roster"
	"github.com/alienxp03/arena/internal/storage"
)

var (
	dbPath    string
	cfgPath   string
	appConfig *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arena",
	Short: "Multi-model AI group chat",
	Long: `arena runs a group chat where multiple AI models compete to answer you.

Each message triggers a battle royale: candidate models answer in parallel,
a judge scores them, and the winner responds. A per-category leaderboard
tracks which models earn the right to compete. Assign models to advisory
roles and messages run as a structured multi-round debate instead.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config
		var err error
		if cfgPath != "" {
			appConfig, err = config.LoadFrom(cfgPath)
		} else {
			appConfig, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: ~/.arena/arena.db)")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file path (default: ~/.arena/config.yaml)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(rosterCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
}

func getStorage() (storage.Storage, error) {
	path := dbPath
	if path == "" {
		path = appConfig.Storage.Path
	}
	if path == "" {
		path = storage.DefaultDBPath()
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(); err != nil {
		return nil, err
	}

	return store, nil
}

func loadLeaderboard(store storage.Storage) (*battle.Leaderboard, error) {
	entries, err := store.LoadLeaderboardEntries()
	if err != nil {
		return nil, err
	}
	return battle.NewFromEntries(entries, nil), nil
}

// ============================================================================
// LIST COMMAND
// ============================================================================

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		conversations, err := store.ListConversations(50, 0)
		if err != nil {
			return err
		}

		if len(conversations) == 0 {
			fmt.Println("No conversations found. Start the server with: arena-server")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tMESSAGES\tUPDATED")

		for _, c := range conversations {
			shortID := c.ID
			if len(shortID) > 8 {
				shortID = shortID[:8]
			}
			title := c.Title
			if len(title) > 35 {
				title = title[:32] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				shortID,
				title,
				c.Status,
				c.MessageCount,
				c.UpdatedAt.Format("2006-01-02 15:04"),
			)
		}
		w.Flush()

		return nil
	},
}

// ============================================================================
// SHOW COMMAND
// ============================================================================

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		conversationID, err := findConversationByPrefix(store, args[0])
		if err != nil {
			return err
		}

		conv, err := store.GetConversation(conversationID)
		if err != nil {
			return err
		}

		messages, err := store.GetMessages(conversationID, 0)
		if err != nil {
			return err
		}

		fmt.Printf("\n💬 %s\n", conv.Title)
		fmt.Printf("   ID: %s\n", conv.ID)
		fmt.Printf("   Status: %s\n", conv.Status)
		fmt.Printf("   Messages: %d\n", conv.MessageCount)
		fmt.Printf("   Created: %s\n", conv.CreatedAt.Format(time.RFC3339))
		fmt.Println()
		fmt.Println(strings.Repeat("─", 60))

		for _, msg := range messages {
			speaker := string(msg.Role)
			if msg.Role == core.RoleModel {
				speaker = msg.ModelID
			}
			fmt.Printf("\n📢 %s (%s)\n", speaker, msg.CreatedAt.Format("15:04:05"))
			fmt.Println(strings.Repeat("─", 40))
			fmt.Println(msg.Content)
			if msg.EvaluationScore != nil {
				fmt.Printf("   score: %.1f/100\n", *msg.EvaluationScore)
			}
		}

		return nil
	},
}

// ============================================================================
// EXPORT COMMAND
// ============================================================================

var exportCmd = &cobra.Command{
	Use:   "export [id] [format]",
	Short: "Export a conversation to file",
	Long: `Export a conversation to markdown, PDF, or JSON.

Examples:
  arena export abc123 markdown
  arena export abc123 pdf
  arena export abc123 json -o conversation.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		conversationID, err := findConversationByPrefix(store, args[0])
		if err != nil {
			return err
		}

		conv, err := store.GetConversation(conversationID)
		if err != nil {
			return err
		}

		messages, err := store.GetMessages(conversationID, 0)
		if err != nil {
			return err
		}

		format := export.Format(strings.ToLower(args[1]))
		exporter, err := export.GetExporter(format)
		if err != nil {
			return err
		}

		outputPath, _ := cmd.Flags().GetString("output")
		if outputPath == "" {
			outputPath = export.GenerateFilename(conv, exporter.FileExtension())
		}

		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer file.Close()

		if err := exporter.Export(conv, messages, file); err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}

		fmt.Printf("Exported to: %s\n", outputPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output file path")
}

// ============================================================================
// LEADERBOARD COMMAND
// ============================================================================

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show model rankings per category",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		leaderboard, err := loadLeaderboard(store)
		if err != nil {
			return err
		}

		categoryFlag, _ := cmd.Flags().GetString("category")

		entries := leaderboard.Entries()
		if categoryFlag != "" {
			filtered := entries[:0]
			for _, e := range entries {
				if e.Category == categoryFlag {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}

		if len(entries) == 0 {
			fmt.Println("No evaluations recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tMODEL\tSCORE\tEVALS\tWINS\tWIN RATE\tTREND")

		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%.1f\t%d\t%d\t%.0f%%\t%s\n",
				e.Category,
				e.ModelID,
				e.AverageScore,
				e.TotalEvaluations,
				e.TotalWins,
				e.WinRate*100,
				e.Trend,
			)
		}
		w.Flush()

		return nil
	},
}

func init() {
	leaderboardCmd.Flags().StringP("category", "c", "", "Filter by task category")
}

// ============================================================================
// PROFILE COMMAND
// ============================================================================

var profileCmd = &cobra.Command{
	Use:   "profile [model-id]",
	Short: "Show a model's cross-category performance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		leaderboard, err := loadLeaderboard(store)
		if err != nil {
			return err
		}

		profile := leaderboard.Profile(args[0])

		fmt.Printf("\nModel: %s\n", profile.ModelID)
		fmt.Printf("Overall score: %.1f\n", profile.OverallAvgScore)
		fmt.Printf("Evaluations: %d\n", profile.TotalEvaluations)
		fmt.Printf("Wins: %d\n", profile.TotalWins)
		if len(profile.Specializations) > 0 {
			fmt.Printf("Specializations: %s\n", strings.Join(profile.Specializations, ", "))
		}

		if len(profile.Categories) > 0 {
			fmt.Println("\nPer-category:")
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tSCORE\tEVALS\tWINS\tTREND")
			for _, e := range profile.Categories {
				fmt.Fprintf(w, "%s\t%.1f\t%d\t%d\t%s\n",
					e.Category, e.AverageScore, e.TotalEvaluations, e.TotalWins, e.Trend)
			}
			w.Flush()
		}

		return nil
	},
}

// ============================================================================
// ROSTER COMMAND
// ============================================================================

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Manage debate role assignments",
	Long: `Assign models to advisory roles for debate mode.

When at least one role is assigned, new messages run as a structured
debate between the assigned advisors instead of a battle royale.

Roles: strategy, tech, product, execution`,
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List role assignments",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		service := roster.NewService(store.Roster())
		assignments, err := service.AllAssignments(cmd.Context())
		if err != nil {
			return err
		}

		if len(assignments) == 0 {
			fmt.Println("No roles assigned. Debate mode is off.")
			fmt.Println("Assign one with: arena roster assign strategy anthropic/claude-sonnet-4")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ROLE\tMODEL")
		for _, role := range appConfig.DebateRoles() {
			if modelID, ok := assignments[role]; ok {
				fmt.Fprintf(w, "%s\t%s\n", role, modelID)
			}
		}
		w.Flush()

		return nil
	},
}

var rosterAssignCmd = &cobra.Command{
	Use:   "assign [role] [model-id]",
	Short: "Assign a model to a debate role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := core.DebateRole(args[0])
		modelID := args[1]

		if !validRole(role) {
			return fmt.Errorf("unknown role: %s (valid: strategy, tech, product, execution)", role)
		}

		models := appConfig.CreateModelRegistry()
		if _, ok := models.Get(modelID); !ok {
			return fmt.Errorf("unknown model: %s (see: arena models)", modelID)
		}

		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		service := roster.NewService(store.Roster())
		if err := service.AssignModelToRole(cmd.Context(), role, modelID, roster.AssignmentManual); err != nil {
			return err
		}

		fmt.Printf("Assigned %s to %s\n", modelID, role)
		return nil
	},
}

var rosterRemoveCmd = &cobra.Command{
	Use:   "remove [role]",
	Short: "Remove a role assignment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := core.DebateRole(args[0])
		if !validRole(role) {
			return fmt.Errorf("unknown role: %s", role)
		}

		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		service := roster.NewService(store.Roster())
		if err := service.RemoveRole(cmd.Context(), role); err != nil {
			return err
		}

		fmt.Printf("Removed assignment for %s\n", role)
		return nil
	},
}

func init() {
	rosterCmd.AddCommand(rosterListCmd)
	rosterCmd.AddCommand(rosterAssignCmd)
	rosterCmd.AddCommand(rosterRemoveCmd)
}

func validRole(role core.DebateRole) bool {
	switch role {
	case core.RoleStrategy, core.RoleTech, core.RoleProduct, core.RoleExecution:
		return true
	}
	return false
}

// ============================================================================
// MODELS COMMAND
// ============================================================================

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured models",
	Run: func(cmd *cobra.Command, args []string) {
		models := appConfig.CreateModelRegistry()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tTIER\tACTIVE")

		for _, m := range models.All() {
			active := ""
			if m.Active {
				active = "✅"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Provider, m.Tier, active)
		}
		w.Flush()
	},
}

// ============================================================================
// PROVIDERS COMMAND
// ============================================================================

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List available AI providers",
	Run: func(cmd *cobra.Command, args []string) {
		registry := appConfig.CreateRegistry()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTATUS")

		for _, p := range registry.List() {
			status := "❌ Not installed"
			if p.Available() {
				status = "✅ Available"
			}
			fmt.Fprintf(w, "%s\t%s\n", p.Name(), status)
		}
		w.Flush()
	},
}

// ============================================================================
// CONFIG COMMAND
// ============================================================================

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Config file: %s\n\n", config.DefaultConfigPath())

		if appConfig != nil {
			fmt.Println("Current settings:")
			fmt.Printf("  Server port: %d\n", appConfig.Server.Port)
			fmt.Printf("  Judge model: %s\n", appConfig.Defaults.JudgeModel)
			fmt.Printf("  Analyzer model: %s\n", appConfig.Defaults.AnalyzerModel)
			fmt.Printf("  Battle candidates: %d\n", appConfig.Battle.CandidateCount)
			fmt.Printf("  Debate max rounds: %d\n", appConfig.Debate.MaxRounds)
			fmt.Printf("  Consensus threshold: %.2f\n", appConfig.Debate.ConsensusThreshold)
			fmt.Println("\nProviders:")
			for name, p := range appConfig.Providers {
				status := "disabled"
				if p.Enabled {
					status = "enabled"
				}
				fmt.Printf("  %s: %s (timeout: %s)\n", name, status, p.Timeout)
			}
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}

		if err := config.Default().SaveTo(path); err != nil {
			return err
		}

		fmt.Printf("Created config at: %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// ============================================================================
// HELPERS
// ============================================================================

func findConversationByPrefix(store storage.Storage, prefix string) (string, error) {
	conversations, _ := store.ListConversations(100, 0)
	for _, c := range conversations {
		if strings.HasPrefix(c.ID, prefix) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("conversation not found: %s", prefix)
}
