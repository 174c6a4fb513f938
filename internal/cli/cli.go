package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dhuruvm/brevia/internal/config"
	internal_http "github.com/Dhuruvm/brevia/internal/http"
	"github.com/Dhuruvm/brevia/internal/log"
	internal_storage "github.com/Dhuruvm/brevia/internal/storage"
	"github.com/Dhuruvm/brevia/pkg/agent"
	"github.com/Dhuruvm/brevia/pkg/completion"
	"github.com/Dhuruvm/brevia/pkg/orchestrator"
	"github.com/Dhuruvm/brevia/pkg/storage"
)

func SetupCLI(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Brevia HTTP server",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			store := initStore(cfg)
			defer store.Close()
			orch := buildOrchestrator(cfg, store)
			port, err := cmd.Flags().GetInt("port")
			if err != nil || port == 0 {
				port = cfg.Server.Port
			}
			if err := internal_http.Start(port, orch, store, log.GetLogger()); err != nil {
				log.GetLogger().Errorf("Server stopped: %v", err)
				os.Exit(1)
			}
		},
	}
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides config)")

	runCmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Execute a single task and print the result",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			store := initStore(cfg)
			defer store.Close()
			orch := buildOrchestrator(cfg, store)

			agentType, _ := cmd.Flags().GetString("agent")
			wf, err := orch.ExecuteTask(context.Background(), args[0], agentType, "")
			if err != nil {
				log.GetLogger().Errorf("Task failed: %v", err)
				fmt.Fprintf(os.Stderr, "Error: task failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Workflow %s completed (agent=%s, confidence=%.2f)\n\n", wf.ID, wf.AgentType, wf.Confidence)
			if wf.Result != nil {
				fmt.Fprintln(os.Stdout, wf.Result.Content)
			}
		},
	}
	runCmd.Flags().String("agent", "", "Agent type (research, notes, document, resume, presentation); detected when empty")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active workflows",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			store := initStore(cfg)
			defer store.Close()

			workflows, err := store.ListActiveWorkflows()
			if err != nil {
				log.GetLogger().Errorf("Failed to list workflows: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to list workflows: %v\n", err)
				os.Exit(1)
			}
			if len(workflows) == 0 {
				fmt.Fprintf(os.Stdout, "No active workflows.\n")
				return
			}
			fmt.Fprintf(os.Stdout, "Active workflows:\n")
			for _, wf := range workflows {
				fmt.Fprintf(os.Stdout, "- ID: %s, Agent: %s, Status: %s, Progress: %.0f%%, Started: %s\n",
					wf.ID, wf.AgentType, wf.Status, wf.Progress, wf.StartedAt.Format(time.RFC3339))
			}
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel [workflow-id]",
		Short: "Cancel a running workflow",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			store := initStore(cfg)
			defer store.Close()
			orch := buildOrchestrator(cfg, store)

			if err := orch.CancelWorkflow(args[0]); err != nil {
				log.GetLogger().Errorf("Failed to cancel workflow: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to cancel workflow: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Cancelled workflow %s\n", args[0])
		},
	}

	rootCmd.AddCommand(serveCmd, runCmd, listCmd, cancelCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.GetLogger().Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	return cfg
}

// initStore opens the postgres store when a DB is configured and falls
// back to the in-memory store otherwise.
func initStore(cfg *config.Config) storage.Store {
	connStr := cfg.ConnString()
	if connStr == "" {
		log.GetLogger().Infof("No database configured, using in-memory store")
		return storage.NewMemoryStore()
	}
	store, err := internal_storage.InitStore(connStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	return store
}

func buildOrchestrator(cfg *config.Config, store storage.Store) *orchestrator.Orchestrator {
	logger := log.GetLogger()
	client := completion.NewHTTPClient(cfg.Completion.Endpoint, cfg.Completion.APIKey, cfg.Completion.Model)
	registry := agent.NewRegistry(client, store, logger)
	return orchestrator.New(store, registry, client, logger, cfg.Workflow.Timeout, cfg.Workflow.StepTimeout)
}
