// Command taskloop runs one autonomous coding task against a working
// directory.
//
// Usage:
//
//	taskloop perform-task "create a hello world script" --auto
//	taskloop perform-task -f task.md --cwd ./project --approve-all-commands
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/taskloop/taskloop/agent"
)

// CLI defines the command-line interface.
type CLI struct {
	PerformTask PerformTaskCmd `cmd:"" help:"Run one task to completion."`

	Verbose bool `short:"v" help:"Print model reasoning and recoverable errors."`
}

// PerformTaskCmd runs a single task.
type PerformTaskCmd struct {
	Instructions string `arg:"" optional:"" help:"Task instructions (or use --file)."`
	File         string `short:"f" help:"Read task instructions from a file." type:"path"`

	Model              string `help:"Model identifier (provider inferred from the id)."`
	Cwd                string `help:"Working directory for the task." type:"path"`
	Auto               bool   `help:"Run without interactive prompts (ask_followup_question disabled)."`
	ApproveAllCommands bool   `name:"approve-all-commands" help:"Run shell commands without per-command confirmation."`
	MaxTurns           int    `name:"max-turns" help:"Assistant-turn ceiling before the task fails."`
}

func (c *PerformTaskCmd) Run(cli *CLI) error {
	instructions, err := c.resolveInstructions()
	if err != nil {
		return err
	}

	// Credentials may live in a .env next to the task.
	loadDotenv(c.Cwd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("interrupted, stopping task")
		cancel()
	}()

	task := agent.Task{
		Instructions:       instructions,
		WorkingDir:         c.Cwd,
		Model:              c.Model,
		Auto:               c.Auto,
		ApproveAllCommands: c.ApproveAllCommands,
		MaxTurns:           c.MaxTurns,
	}

	loop, err := agent.New(task, agent.WithApproval(agent.NewTerminalApproval(os.Stdin, os.Stderr)))
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		printEvents(loop.Events(), cli.Verbose)
	}()

	result, err := loop.Run(ctx)
	<-done
	if err != nil {
		return err
	}

	fmt.Println(result)
	return nil
}

// resolveInstructions picks between inline instructions and --file; exactly
// one must be given.
func (c *PerformTaskCmd) resolveInstructions() (string, error) {
	switch {
	case c.File != "" && c.Instructions != "":
		return "", errors.New("give instructions inline or with --file, not both")
	case c.File != "":
		data, err := os.ReadFile(c.File)
		if err != nil {
			return "", fmt.Errorf("reading instruction file: %w", err)
		}
		return string(data), nil
	case strings.TrimSpace(c.Instructions) != "":
		return c.Instructions, nil
	default:
		return "", errors.New("no task instructions given")
	}
}

// loadDotenv loads a .env from the task's working directory, then the
// current directory. Absence is not an error; the loop validates the API
// key itself.
func loadDotenv(cwd string) {
	if cwd != "" {
		if err := godotenv.Load(filepath.Join(cwd, ".env")); err == nil {
			return
		}
	}
	_ = godotenv.Load()
}

// printEvents renders the loop's event stream for the terminal.
func printEvents(events <-chan agent.Event, verbose bool) {
	for e := range events {
		switch e.Kind {
		case agent.EventTaskStart:
			fmt.Fprintf(os.Stderr, "* task started (model %v) in %v\n", e.Data["model"], e.Data["working_dir"])
		case agent.EventThinking:
			if verbose {
				fmt.Fprintf(os.Stderr, "~ %v\n", e.Data["text"])
			}
		case agent.EventToolStart:
			fmt.Fprintf(os.Stderr, "> %v\n", e.Data["summary"])
		case agent.EventToolEnd:
			if ok, _ := e.Data["ok"].(bool); !ok {
				fmt.Fprintf(os.Stderr, "! %v failed\n", e.Data["tool"])
			}
		case agent.EventApprovalDenied:
			fmt.Fprintf(os.Stderr, "! %v was not approved\n", e.Data["tool"])
		case agent.EventParseRetry:
			if verbose {
				fmt.Fprintf(os.Stderr, "! malformed tool call (attempt %v): %v\n", e.Data["attempt"], e.Data["error"])
			}
		case agent.EventBackendRetry:
			fmt.Fprintf(os.Stderr, "! backend error, retrying in %v: %v\n", e.Data["delay"], e.Data["error"])
		case agent.EventRepeatWarning:
			fmt.Fprintf(os.Stderr, "! repeated tool calls detected, steering the model\n")
		case agent.EventError:
			fmt.Fprintf(os.Stderr, "! %v\n", e.Data["error"])
		}
	}
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("taskloop"),
		kong.Description("An autonomous coding agent that performs one task per run."),
		kong.UsageOnError(),
	)
	if err := kctx.Run(&cli); err != nil {
		slog.Error("task failed", "error", err)
		os.Exit(1)
	}
}
