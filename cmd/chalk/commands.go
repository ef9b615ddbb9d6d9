package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dori/chalk/internal/app"
	"github.com/dori/chalk/internal/backup"
	"github.com/dori/chalk/internal/model"
	"github.com/dori/chalk/internal/planner"
)

type command struct {
	run func(a *app.App, args []string, out io.Writer) error
	// writes reports whether this invocation mutates stored state and so
	// must hold the single-instance lock
	writes func(args []string) bool
}

func always([]string) bool { return true }

func never([]string) bool { return false }

// withArgs marks commands that only show a value when called bare
func withArgs(args []string) bool { return len(args) > 0 }

var commands = map[string]command{
	"add":      {handleAdd, always},
	"list":     {handleList, never},
	"ls":       {handleList, never},
	"done":     {handleDone, always},
	"rm":       {handleRemove, always},
	"subjects": {handleSubjects, withArgs},
	"theme":    {handleTheme, withArgs},
	"reminder": {handleReminder, withArgs},
	"remind":   {handleRemind, never},
	"export":   {handleExport, never},
	"import":   {handleImport, always},
	"clear":    {handleClear, always},
	"stats":    {handleStats, never},
}

func handleAdd(a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: chalk add <text> [#subject] [!priority]", errUsage)
	}

	parsed := parseQuickAdd(strings.Join(args, " "))
	task, err := a.Tasks.Add(parsed.Text, parsed.Subject, parsed.Priority)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Created: %s (%s)\n", task.Text, shortID(task.ID))
	if task.Subject != "" {
		fmt.Fprintf(out, "Subject: %s\n", task.Subject)
		if s := a.Settings.Get(); !s.HasSubject(task.Subject) {
			fmt.Fprintf(out, "Note: %q is not in your subject list (chalk subjects add %s)\n", task.Subject, task.Subject)
		}
	}
	if task.Priority != model.PriorityMedium {
		fmt.Fprintf(out, "Priority: %s\n", task.Priority)
	}
	return nil
}

type quickAddTask struct {
	Text     string
	Subject  string
	Priority model.Priority
}

// parseQuickAdd pulls #subject and !priority tokens out of free text
func parseQuickAdd(text string) quickAddTask {
	task := quickAddTask{Priority: model.PriorityMedium}

	var textParts []string
	for _, word := range strings.Fields(text) {
		switch {
		case strings.HasPrefix(word, "#") && len(word) > 1:
			task.Subject = strings.TrimPrefix(word, "#")

		case strings.HasPrefix(word, "!") && len(word) > 1:
			if p, err := model.ParsePriority(strings.TrimPrefix(word, "!")); err == nil {
				task.Priority = p
			} else {
				textParts = append(textParts, word)
			}

		default:
			textParts = append(textParts, word)
		}
	}

	task.Text = strings.Join(textParts, " ")
	return task
}

func handleList(a *app.App, args []string, out io.Writer) error {
	fs := newFlagSet("list")
	subject := fs.String("subject", "", "")
	priority := fs.String("priority", "", "")
	statusFlag := fs.String("status", "all", "")
	today := fs.Bool("today", false, "")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	filter := planner.Filter{Subject: *subject, Status: planner.ParseStatus(*statusFlag)}
	if *priority != "" {
		p, err := model.ParsePriority(*priority)
		if err != nil {
			return err
		}
		filter.Priority = p
	}

	tasks := a.Tasks.All()
	if *today {
		tasks = planner.OnDay(tasks, time.Now())
	}
	tasks = filter.Apply(tasks)
	planner.Sort(tasks)

	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return nil
	}
	for _, t := range tasks {
		fmt.Fprintln(out, formatTask(t))
	}
	return nil
}

func formatTask(t model.Task) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	subject := t.Subject
	if subject == "" {
		subject = "-"
	}
	return fmt.Sprintf("%s %s %-6s %-10s %s  %s",
		shortID(t.ID), check, t.Priority, subject, t.CreatedAt.Local().Format("Jan 02"), t.Text)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func handleDone(a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: chalk done <id>", errUsage)
	}
	task, err := a.Tasks.FindByPrefix(args[0])
	if err != nil {
		return err
	}
	updated, err := a.Tasks.Toggle(task.ID)
	if err != nil {
		return err
	}
	if updated.Completed {
		fmt.Fprintf(out, "Completed: %s\n", updated.Text)
	} else {
		fmt.Fprintf(out, "Reopened: %s\n", updated.Text)
	}
	return nil
}

func handleRemove(a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: chalk rm <id>", errUsage)
	}
	task, err := a.Tasks.FindByPrefix(args[0])
	if err != nil {
		return err
	}
	if err := a.Tasks.Delete(task.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted: %s\n", task.Text)
	return nil
}

func handleSubjects(a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		for _, s := range a.Settings.Get().Subjects {
			fmt.Fprintln(out, s)
		}
		return nil
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: chalk subjects [add|rm] <name>", errUsage)
	}

	name := strings.Join(args[1:], " ")
	switch args[0] {
	case "add":
		added, err := a.Settings.AddSubject(name)
		if err != nil {
			return err
		}
		if !added {
			fmt.Fprintf(out, "Subject %q already exists\n", name)
			return nil
		}
		fmt.Fprintf(out, "Added subject: %s\n", name)
	case "rm", "remove":
		if !a.Settings.DeleteSubject(name) {
			return fmt.Errorf("no subject named %q", name)
		}
		fmt.Fprintf(out, "Removed subject: %s\n", name)
	default:
		return fmt.Errorf("%w: unknown subjects action %q", errUsage, args[0])
	}
	return nil
}

func handleTheme(a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(out, a.Settings.Get().Theme)
		return nil
	}
	if err := a.Settings.SetTheme(model.ThemePreference(strings.ToLower(args[0]))); err != nil {
		return err
	}
	fmt.Fprintf(out, "Theme: %s\n", a.Settings.Get().Theme)
	return nil
}

func handleReminder(a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		if t := a.Settings.Get().NotificationTime; t != "" {
			fmt.Fprintf(out, "Daily reminder at %s\n", t)
		} else {
			fmt.Fprintln(out, "Daily reminder off")
		}
		return nil
	}

	value := args[0]
	if value == "off" {
		value = ""
	}
	if err := a.Settings.SetNotificationTime(value); err != nil {
		return err
	}
	return handleReminder(a, nil, out)
}

func handleRemind(a *app.App, _ []string, out io.Writer) error {
	pending := planner.Summarize(a.Tasks.All()).Active
	if err := a.Notifier.SendDailyReminder(pending); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	fmt.Fprintf(out, "Reminder sent (%d open)\n", pending)
	return nil
}

func handleExport(a *app.App, args []string, out io.Writer) error {
	fs := newFlagSet("export")
	dir := fs.String("dir", a.Config.ExportPath(), "")
	toClipboard := fs.Bool("clipboard", false, "")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	doc := backup.NewDocument(a.Tasks.All(), a.Settings.Get(), time.Now())
	if *toClipboard {
		if err := backup.CopyToClipboard(doc); err != nil {
			return err
		}
		fmt.Fprintf(out, "Copied %d tasks to the clipboard\n", len(doc.Tasks))
		return nil
	}

	path, err := backup.WriteFile(*dir, doc)
	if err != nil {
		return err
	}
	a.Logger.Info("exported backup", "path", path, "tasks", len(doc.Tasks))
	fmt.Fprintf(out, "Exported %d tasks to %s\n", len(doc.Tasks), path)
	return nil
}

func handleImport(a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: chalk import <file>", errUsage)
	}
	doc, err := backup.ReadFile(args[0])
	if err != nil {
		a.Logger.Warn("import rejected", "path", args[0], "err", err)
		return err
	}
	res := backup.Restore(doc, a.Tasks, a.Settings)
	a.Logger.Info("imported backup", "path", args[0], "added", res.Added, "skipped", res.Skipped)
	fmt.Fprintln(out, res.Message())
	return nil
}

func handleClear(a *app.App, args []string, out io.Writer) error {
	fs := newFlagSet("clear")
	yes := fs.Bool("yes", false, "")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if !*yes {
		return fmt.Errorf("%w: refusing to clear without --yes", errUsage)
	}
	if err := a.ClearAll(); err != nil {
		return err
	}
	fmt.Fprintln(out, "All data cleared")
	return nil
}

func handleStats(a *app.App, _ []string, out io.Writer) error {
	s := planner.Summarize(a.Tasks.All())

	fmt.Fprintf(out, "Tasks:     %d\n", s.Total)
	fmt.Fprintf(out, "Active:    %d\n", s.Active)
	fmt.Fprintf(out, "Completed: %d (%.0f%%)\n", s.Completed, s.CompletionRate()*100)
	for _, p := range model.Priorities() {
		fmt.Fprintf(out, "  %-7s %d\n", p, s.ByPriority[p])
	}
	for _, subject := range a.Settings.Get().Subjects {
		if n := s.BySubject[subject]; n > 0 {
			fmt.Fprintf(out, "  %-10s %d\n", subject, n)
		}
	}
	return nil
}
