package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}

	if rootCmd.Use != "cadre" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "cadre")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"run", "config", "version"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}

	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	output, err := executeCommand(rootCmd, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(output, "cadre") {
		t.Errorf("unexpected version output: %q", output)
	}
}

func TestConfigPathCommand(t *testing.T) {
	output, err := executeCommand(rootCmd, "config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if !strings.Contains(output, "config.yaml") {
		t.Errorf("expected config.yaml in output, got %q", output)
	}
}

func TestConfigShowCommand(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	output, err := executeCommand(rootCmd, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"completion:", "agent:", "synthesis:", "insight:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in config output", want)
		}
	}
}

func TestConfigSetRejectsUnknownKey(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	if _, err := executeCommand(rootCmd, "config", "set", "bogus.key", "1"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestRunRequiresObjective(t *testing.T) {
	if _, err := executeCommand(rootCmd, "run"); err == nil {
		t.Error("expected error when --objective is missing")
	}
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"false", false},
		{"42", 42},
		{"0.7", 0.7},
		{"claude", "claude"},
	}
	for _, tt := range tests {
		if got := coerceValue(tt.in); got != tt.want {
			t.Errorf("coerceValue(%q) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
		}
	}
}
