package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cadrehq/cadre/internal/agent"
	"github.com/cadrehq/cadre/internal/completion"
	"github.com/cadrehq/cadre/internal/config"
	"github.com/cadrehq/cadre/internal/engagement"
	"github.com/cadrehq/cadre/internal/event"
	"github.com/cadrehq/cadre/internal/logging"
	"github.com/cadrehq/cadre/internal/synthesis"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an engagement",
	Long: `Run a set of research agents to completion and print the synthesized
result. Each --objective spawns one agent; plans are confirmed and
approvals submitted automatically unless --hands-off is given, in which
case the bounded approval ceilings apply.`,
	RunE: runRun,
}

var (
	runObjectives []string
	runNames      []string
	runTools      []string
	runClarify    bool
	runDryRun     bool
	runHandsOff   bool
)

func init() {
	runCmd.Flags().StringArrayVarP(&runObjectives, "objective", "o", nil, "objective for one agent (repeatable)")
	runCmd.Flags().StringArrayVar(&runNames, "name", nil, "display name for the matching --objective (repeatable)")
	runCmd.Flags().StringArrayVar(&runTools, "tool", nil, "tool name passed through to the completion service (repeatable)")
	runCmd.Flags().BoolVar(&runClarify, "clarify", false, "ask clarifying questions before execution")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "use a scripted completion service instead of the real backend")
	runCmd.Flags().BoolVar(&runHandsOff, "hands-off", false, "leave plan confirmation and approval to their timeout ceilings")
	_ = runCmd.MarkFlagRequired("objective")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logger.Close()

	var svc completion.Service
	if runDryRun {
		svc = completion.NewScriptedService()
	} else {
		svc = completion.NewCLIService(completion.CLIConfig{
			Command:         cfg.Completion.Command,
			Model:           cfg.Completion.Model,
			SkipPermissions: cfg.Completion.SkipPermissions,
		})
	}

	runner := engagement.New(svc, logger, engagement.Config{
		Agent: agent.Config{
			PlanConfirmCeiling: cfg.Agent.PlanConfirmCeiling(),
			ApprovalCeiling:    cfg.Agent.ApprovalCeiling(),
			MaxTokens:          cfg.Completion.MaxTokens,
			Temperature:        cfg.Completion.Temperature,
		},
		Synthesis: synthesis.Config{
			Debounce:    cfg.Synthesis.Debounce(),
			MaxTokens:   cfg.Completion.MaxTokens,
			Temperature: cfg.Completion.Temperature,
		},
		SimilarityThreshold: cfg.Insight.SimilarityThreshold,
	})
	subscribeProgress(runner.Bus(), cmd)

	for i, objective := range runObjectives {
		name := ""
		if i < len(runNames) {
			name = runNames[i]
		}
		ctrl := runner.Submit(agent.Spec{
			Name:      name,
			Objective: objective,
			Tools:     runTools,
			Clarify:   runClarify,
		})
		if !runHandsOff {
			ctrl.ConfirmPlan()
			ctrl.SubmitApproval(nil)
		}
	}

	runErr := runner.Run(cmd.Context())
	printResult(cmd, runner)
	return runErr
}

// buildLogger creates the engagement logger from config, or a no-op
// logger when file logging is disabled.
func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(cfg.Paths.ResolveLogDir(cwd), cfg.Logging.Level)
}

// subscribeProgress prints a line per lifecycle event so a long run is
// observable from the terminal.
func subscribeProgress(bus *event.Bus, cmd *cobra.Command) {
	bus.SubscribeAll(func(e event.Event) {
		switch ev := e.(type) {
		case event.PhaseStartedEvent:
			cmd.Printf("[%s] phase: %s\n", short(ev.AgentID), ev.Name)
		case event.PlanGeneratedEvent:
			cmd.Printf("[%s] plan ready (%d steps)\n", short(ev.AgentID), ev.StepCount)
		case event.StepCompletedEvent:
			cmd.Printf("[%s] step %d done: %s\n", short(ev.AgentID), ev.Index+1, ev.Title)
		case event.StepFailedEvent:
			cmd.Printf("[%s] step failed: %s (%s)\n", short(ev.AgentID), ev.Title, ev.Reason)
		case event.InsightsReportedEvent:
			cmd.Printf("[%s] insights: %d reported, %d new\n", short(ev.AgentID), ev.Submitted, ev.Accepted)
		case event.CompletedEvent:
			cmd.Printf("[%s] completed\n", short(ev.AgentID))
		case event.ErrorEvent:
			cmd.Printf("[%s] error: %s\n", short(ev.AgentID), ev.Message)
		case event.SynthesisUpdatedEvent:
			cmd.Printf("synthesis updated: %d agents, %d contradictions\n", ev.AgentCount, ev.Contradictions)
		case event.SynthesisErrorEvent:
			cmd.Printf("synthesis failed: %s\n", ev.Message)
		}
	})
}

// printResult renders the final engagement state.
func printResult(cmd *cobra.Command, runner *engagement.Runner) {
	snap := runner.Orchestrator().Snapshot()

	if snap.ExecutiveSummary != "" {
		cmd.Println("\n=== Executive Summary ===")
		cmd.Println(snap.ExecutiveSummary)
	}
	if len(snap.Contradictions) > 0 {
		cmd.Println("\n=== Contradictions ===")
		for _, c := range snap.Contradictions {
			cmd.Printf("- %s\n", c)
		}
	}
	if len(snap.KeyFindings) > 0 {
		cmd.Println("\n=== Key Findings ===")
		for _, f := range snap.KeyFindings {
			cmd.Printf("- %s\n", f)
		}
	}

	entries := runner.Ledger().ListAll()
	if len(entries) > 0 {
		cmd.Println("\n=== Insights ===")
		for _, e := range entries {
			name := e.AgentName
			if name == "" {
				name = short(e.AgentID)
			}
			cmd.Printf("- [%s] %s\n", name, e.Text)
		}
	}
}

// short truncates an agent ID for terminal output.
func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
