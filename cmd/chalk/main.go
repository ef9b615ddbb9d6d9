package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/chalk/internal/app"
	"github.com/dori/chalk/internal/config"
	"github.com/dori/chalk/internal/ui"
)

var (
	version = "0.1.0"
)

// errUsage marks errors that should be followed by the usage text
var errUsage = errors.New("usage")

func main() {
	// Subcommand handling
	if len(os.Args) > 1 {
		if err := run(os.Args[1:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, errUsage) {
				fmt.Fprintln(os.Stderr, "Run 'chalk help' for usage.")
			}
			os.Exit(1)
		}
		return
	}

	if err := runTUI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches a subcommand
func run(args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(out, "chalk v%s\n", version)
		return nil
	case "help", "-h", "--help":
		printHelp(out)
		return nil
	}

	c, ok := commands[cmd]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	a, err := openApp(c.writes(rest))
	if errors.Is(err, app.ErrAlreadyRunning) {
		return fmt.Errorf("%w; close the chalk TUI before running 'chalk %s'", err, cmd)
	}
	if err != nil {
		return err
	}
	defer a.Close()

	return c.run(a, rest, out)
}

// openApp loads config and opens the stores. Every process rewrites whole
// records from its own memory, so only lock holders may write; read-only
// commands skip the lock to run beside the TUI.
func openApp(writes bool) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.NoLock = !writes
	return app.New(cfg)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func printHelp(out io.Writer) {
	help := `chalk - a study planner for tasks by subject

Usage:
  chalk                         Start the TUI
  chalk add <text>              Quick add a task for today
  chalk list [flags]            List tasks
  chalk done <id>               Toggle a task done/open
  chalk rm <id>                 Delete a task
  chalk subjects [add|rm name]  Show or edit subjects
  chalk theme <light|dark|system>
  chalk reminder [HH:MM|off]    Show or set the daily reminder
  chalk remind                  Send the daily reminder now
  chalk export [flags]          Write a JSON backup
  chalk import <file>           Merge a JSON backup
  chalk clear --yes             Delete all tasks and reset settings
  chalk stats                   Show task counts
  chalk version                 Show version
  chalk help                    Show this help

Quick Add Syntax:
  chalk add "Read chapter 4 #History !high"

  Subject:   #name         (e.g., #Math, #Science)
  Priority:  !low !medium !high

List Flags:
  --subject <name>   Only this subject
  --priority <p>     Only this priority
  --status <s>       all, active or completed
  --today            Only tasks created today

Export Flags:
  --dir <path>       Directory to write into (default: export_dir)
  --clipboard        Copy to the clipboard instead of a file

Task ids may be shortened to any unique prefix.

Keybindings:
  Tasks:     a add, enter edit, tab done, d delete
             h/l day, H/L week, t today, w day/all
             s subject, p priority, c status, x clear filters
  Settings:  j/k move, enter select, d remove subject, T theme
  Global:    1/2 tabs, ? help, q quit

Config: ` + config.Path()

	fmt.Fprintln(out, help)
}

func runTUI() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Create application
	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	// Create and run program
	p := tea.NewProgram(
		ui.NewRootModel(application),
		tea.WithAltScreen(),
	)

	_, err = p.Run()
	return err
}
