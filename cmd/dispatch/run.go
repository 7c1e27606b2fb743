package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/dispatch/internal/config"
	"github.com/ShayCichocki/dispatch/internal/host"
	"github.com/ShayCichocki/dispatch/internal/orchestrator"
	"github.com/ShayCichocki/dispatch/pkg/models"
)

var (
	runAgent    string
	runModel    string
	runDebugLog string
)

var runCmd = &cobra.Command{
	Use:   "run <task description>",
	Short: "Launch a task and track it to completion",
	Long: `Launch a delegated task and follow its lifecycle.

The task is admitted through the configured concurrency limits, executed
in a fresh context, and routed through quality gates when it reports
scores. Progress and routing decisions stream to stdout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runAgent, "agent", "researcher", "Agent identity to run the task as")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model override (defaults to the configured model)")
	runCmd.Flags().StringVar(&runDebugLog, "debug-log", "", "Path for the debug log (disabled when empty)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	apiKey, err := config.GetAPIKey(cfg)
	if err != nil {
		return fmt.Errorf("%w\n\nSet ANTHROPIC_API_KEY or add anthropic.api_key to %s", err, config.GetUserConfigPath())
	}

	client, err := host.NewClient(host.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	logger, err := orchestrator.NewDebugLogger(runDebugLog)
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}
	defer logger.Close()

	catalog, err := config.LoadAgentCatalog(cfg.Quality.CatalogPath)
	if err != nil {
		return fmt.Errorf("load agent catalog: %w", err)
	}
	if cfg.Quality.CatalogPath == "" {
		catalog.SetThresholds(cfg.Quality.PassThreshold, cfg.Quality.PolishThreshold, cfg.Quality.MaxRewrites)
	}

	orch := orchestrator.New(orchestrator.Options{
		Host:    host.NewAnthropicHost(client),
		Config:  cfg,
		Catalog: catalog,
		Logger:  logger,
	})
	defer orch.Close()

	if cfg.Quality.CatalogPath != "" {
		watcher, err := config.WatchAgentCatalog(cfg.Quality.CatalogPath, orch.SetCatalog, logger.Log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s catalog watcher unavailable: %v\n", color.YellowString("⚠"), err)
		} else {
			defer watcher.Close()
		}
	}

	sessionID := "cli-" + uuid.New().String()[:8]
	description := strings.Join(args, " ")

	task, err := orch.Launch(context.Background(), orchestrator.LaunchRequest{
		Description:   description,
		Prompt:        description,
		AgentIdentity: runAgent,
		SessionID:     sessionID,
		Model:         runModel,
	})
	if err != nil {
		return fmt.Errorf("launch: %w", err)
	}
	fmt.Printf("%s launched %s as %s\n", color.GreenString("✓"), task.ID, runAgent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case ev := <-orch.Events():
			printEvent(ev)
			if terminalEvent(ev, task.ID) {
				printOutcome(orch, task.ID)
				orch.EndSession(sessionID)
				return nil
			}
		case <-sigCh:
			fmt.Printf("\n%s cancelling...\n", color.YellowString("⚠"))
			orch.Cancel(task.ID)
			orch.CancelDescendants(task.ExecutionHandle)
		case <-time.After(5 * time.Second):
			if snap, ok := orch.Task(task.ID); ok && snap.Status == models.TaskStatusRunning {
				fmt.Print(orchestrator.RenderStatus(snap, time.Now()))
			}
		}
	}
}

func terminalEvent(ev orchestrator.Event, taskID string) bool {
	if ev.TaskID != taskID {
		return false
	}
	switch ev.Type {
	case orchestrator.EventTaskCompleted, orchestrator.EventTaskFailed, orchestrator.EventTaskCancelled:
		return true
	default:
		return false
	}
}

func printEvent(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventTaskLaunched:
		fmt.Printf("%s %s launched: %s\n", color.CyanString("→"), ev.TaskID, ev.Description)
	case orchestrator.EventTaskCompleted:
		fmt.Printf("%s %s completed\n", color.GreenString("✓"), ev.TaskID)
	case orchestrator.EventTaskFailed:
		fmt.Printf("%s %s failed: %v\n", color.RedString("✗"), ev.TaskID, ev.Error)
	case orchestrator.EventTaskCancelled:
		fmt.Printf("%s %s cancelled\n", color.YellowString("⚠"), ev.TaskID)
	case orchestrator.EventQualityRouted:
		fmt.Printf("%s %s quality: %s\n", color.CyanString("◆"), ev.TaskID, ev.Verdict)
	case orchestrator.EventEscalated:
		fmt.Printf("%s %s\n", color.RedString("⚑ escalated:"), ev.Message)
	case orchestrator.EventArtifactRecorded:
		fmt.Printf("%s recorded %s\n", color.CyanString("▣"), ev.ArtifactID)
	}
}

func printOutcome(orch *orchestrator.Orchestrator, taskID string) {
	snap, ok := orch.Task(taskID)
	if !ok {
		return
	}
	fmt.Println()
	fmt.Print(orchestrator.RenderStatus(snap, time.Now()))
}
