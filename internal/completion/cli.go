package completion

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CLIConfig configures a CLIService.
type CLIConfig struct {
	// Command is the model runner binary. Defaults to "claude".
	Command string

	// Model selects the model variant, passed as --model when set.
	Model string

	// SkipPermissions passes the runner's permission-bypass flag.
	// Only meaningful for interactive runners driven non-interactively.
	SkipPermissions bool
}

// CLIService implements Service by shelling out to a local model runner
// in print mode. The full request (system instruction plus history) is
// flattened into a single prompt on stdin; the runner's stdout is the
// generated text.
type CLIService struct {
	command         string
	model           string
	skipPermissions bool
}

// NewCLIService creates a CLIService from config.
func NewCLIService(cfg CLIConfig) *CLIService {
	command := cfg.Command
	if command == "" {
		command = "claude"
	}
	return &CLIService{
		command:         command,
		model:           cfg.Model,
		skipPermissions: cfg.SkipPermissions,
	}
}

// Complete implements Service.
func (c *CLIService) Complete(ctx context.Context, req Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", ErrEmptyRequest
	}

	args := []string{"--print"}
	if c.skipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	if req.MaxTokens > 0 {
		args = append(args, "--max-tokens", strconv.Itoa(req.MaxTokens))
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Stdin = strings.NewReader(flattenRequest(req))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("completion command failed: %s", msg)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("completion command produced no output")
	}
	return out, nil
}

// flattenRequest renders a request as a single prompt for runners that
// take free-form text rather than structured message lists.
func flattenRequest(req Request) string {
	var sb strings.Builder

	if req.System != "" {
		sb.WriteString(req.System)
		sb.WriteString("\n\n")
	}
	if len(req.Tools) > 0 {
		sb.WriteString("Available tools: ")
		sb.WriteString(strings.Join(req.Tools, ", "))
		sb.WriteString("\n\n")
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleAssistant:
			sb.WriteString("Assistant: ")
		default:
			sb.WriteString("User: ")
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
