package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dori/chalk/internal/backup"
	"github.com/dori/chalk/internal/planner"
	"github.com/dori/chalk/internal/store"
	"github.com/dori/chalk/internal/ui/theme"
)

type settingsRow int

const (
	rowTheme settingsRow = iota
	rowReminder
	rowSubject
	rowAddSubject
	rowExport
	rowClipboard
	rowImport
	rowClear
)

type settingsInput int

const (
	inputNone settingsInput = iota
	inputSubject
	inputReminder
	inputImport
	confirmClear
)

// SettingsDeps are the collaborators the settings view acts on
type SettingsDeps struct {
	Tasks     *store.TaskStore
	Settings  *store.SettingsStore
	ExportDir string
	ClearAll  func() error
	Logger    *log.Logger

	// Clipboard replaces backup.CopyToClipboard when set
	Clipboard func(backup.Document) error
}

// SettingsView manages preferences, subjects and backups
type SettingsView struct {
	deps   SettingsDeps
	width  int
	height int

	cursor int
	input  textinput.Model
	prompt settingsInput

	now func() time.Time
}

// NewSettingsView creates the settings view
func NewSettingsView(deps SettingsDeps) SettingsView {
	if deps.Clipboard == nil {
		deps.Clipboard = backup.CopyToClipboard
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	ti := textinput.New()
	ti.CharLimit = 512

	return SettingsView{
		deps:  deps,
		input: ti,
		now:   time.Now,
	}
}

// Init initializes the settings view
func (v SettingsView) Init() tea.Cmd {
	return nil
}

// SetSize sets the view dimensions
func (v SettingsView) SetSize(width, height int) SettingsView {
	v.width = width
	v.height = height
	v.input.Width = width/2 - 6
	return v
}

// IsInputMode returns true while a prompt or confirmation is open
func (v SettingsView) IsInputMode() bool {
	return v.prompt != inputNone
}

// rows lays out the selectable lines; each subject gets its own row
func (v SettingsView) rows() []settingsRow {
	subjects := v.deps.Settings.Get().Subjects
	rows := []settingsRow{rowTheme, rowReminder}
	for range subjects {
		rows = append(rows, rowSubject)
	}
	return append(rows, rowAddSubject, rowExport, rowClipboard, rowImport, rowClear)
}

func (v SettingsView) currentRow() (settingsRow, int) {
	rows := v.rows()
	if v.cursor >= len(rows) {
		v.cursor = len(rows) - 1
	}
	row := rows[v.cursor]
	if row == rowSubject {
		return row, v.cursor - 2
	}
	return row, -1
}

// Update handles messages
func (v SettingsView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SettingsChangedMsg, TasksChangedMsg:
		if rows := v.rows(); v.cursor >= len(rows) {
			v.cursor = len(rows) - 1
		}
		return v, nil

	case tea.KeyMsg:
		switch v.prompt {
		case inputNone:
			return v.handleNormalMode(msg)
		case confirmClear:
			return v.handleClearConfirm(msg)
		default:
			return v.handlePrompt(msg)
		}
	}
	return v, nil
}

func (v SettingsView) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := v.rows()

	switch msg.String() {
	case "j", "down":
		if v.cursor < len(rows)-1 {
			v.cursor++
		}
		return v, nil
	case "k", "up":
		if v.cursor > 0 {
			v.cursor--
		}
		return v, nil
	case "T":
		return v.cycleTheme()
	case "d", "delete":
		if row, idx := v.currentRow(); row == rowSubject {
			return v.deleteSubject(idx)
		}
		return v, nil
	case "enter", " ":
	default:
		return v, nil
	}

	row, idx := v.currentRow()
	switch row {
	case rowTheme:
		return v.cycleTheme()
	case rowReminder:
		return v.openPrompt(inputReminder, "HH:MM, empty turns it off", v.deps.Settings.Get().NotificationTime)
	case rowSubject:
		return v.deleteSubject(idx)
	case rowAddSubject:
		return v.openPrompt(inputSubject, "Subject name", "")
	case rowExport:
		return v.exportFile()
	case rowClipboard:
		return v.exportClipboard()
	case rowImport:
		return v.openPrompt(inputImport, "Path to backup file", "")
	case rowClear:
		v.prompt = confirmClear
	}
	return v, nil
}

func (v SettingsView) openPrompt(kind settingsInput, placeholder, value string) (tea.Model, tea.Cmd) {
	v.prompt = kind
	v.input.Placeholder = placeholder
	v.input.SetValue(value)
	v.input.Focus()
	return v, textinput.Blink
}

func (v *SettingsView) closePrompt() {
	v.prompt = inputNone
	v.input.Blur()
	v.input.SetValue("")
}

func (v SettingsView) handlePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.closePrompt()
		return v, nil
	case "enter":
		value := strings.TrimSpace(v.input.Value())
		kind := v.prompt
		v.closePrompt()
		switch kind {
		case inputSubject:
			return v.addSubject(value)
		case inputReminder:
			return v.setReminder(value)
		case inputImport:
			return v.importFile(value)
		}
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v SettingsView) handleClearConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.prompt = inputNone
		if err := v.deps.ClearAll(); err != nil {
			return v, failed(err)
		}
		v.cursor = 0
		theme.Apply(v.deps.Settings.Get().Theme)
		return v, tea.Batch(tasksChanged, settingsChanged(v.deps.Settings.Get()), status("All data cleared"))
	case "n", "N", "esc":
		v.prompt = inputNone
	}
	return v, nil
}

func (v SettingsView) cycleTheme() (tea.Model, tea.Cmd) {
	next := v.deps.Settings.Get().Theme.Next()
	if err := v.deps.Settings.SetTheme(next); err != nil {
		return v, failed(err)
	}
	applied := theme.Apply(next)
	return v, tea.Batch(
		settingsChanged(v.deps.Settings.Get()),
		status(fmt.Sprintf("Theme: %s (%s)", next, applied.Name)),
	)
}

func (v SettingsView) addSubject(label string) (tea.Model, tea.Cmd) {
	added, err := v.deps.Settings.AddSubject(label)
	if err != nil {
		return v, failed(err)
	}
	if !added {
		return v, status(fmt.Sprintf("Subject %q already exists", label))
	}
	return v, tea.Batch(settingsChanged(v.deps.Settings.Get()), status("Added subject: "+label))
}

func (v SettingsView) deleteSubject(idx int) (tea.Model, tea.Cmd) {
	subjects := v.deps.Settings.Get().Subjects
	if idx < 0 || idx >= len(subjects) {
		return v, nil
	}
	label := subjects[idx]
	if !v.deps.Settings.DeleteSubject(label) {
		return v, nil
	}
	return v, tea.Batch(settingsChanged(v.deps.Settings.Get()), status("Removed subject: "+label))
}

func (v SettingsView) setReminder(value string) (tea.Model, tea.Cmd) {
	if err := v.deps.Settings.SetNotificationTime(value); err != nil {
		return v, failed(err)
	}
	msg := "Daily reminder off"
	if t := v.deps.Settings.Get().NotificationTime; t != "" {
		msg = "Daily reminder at " + t
	}
	return v, tea.Batch(settingsChanged(v.deps.Settings.Get()), status(msg))
}

func (v SettingsView) document() backup.Document {
	return backup.NewDocument(v.deps.Tasks.All(), v.deps.Settings.Get(), v.now())
}

func (v SettingsView) exportFile() (tea.Model, tea.Cmd) {
	path, err := backup.WriteFile(v.deps.ExportDir, v.document())
	if err != nil {
		v.deps.Logger.Error("export failed", "err", err)
		return v, failed(err)
	}
	v.deps.Logger.Info("exported backup", "path", path)
	return v, status("Exported to " + path)
}

func (v SettingsView) exportClipboard() (tea.Model, tea.Cmd) {
	if err := v.deps.Clipboard(v.document()); err != nil {
		v.deps.Logger.Error("clipboard export failed", "err", err)
		return v, failed(err)
	}
	return v, status("Backup copied to clipboard")
}

func (v SettingsView) importFile(path string) (tea.Model, tea.Cmd) {
	if path == "" {
		return v, nil
	}
	doc, err := backup.ReadFile(path)
	if err != nil {
		v.deps.Logger.Warn("import rejected", "path", path, "err", err)
		return v, failed(err)
	}

	res := backup.Restore(doc, v.deps.Tasks, v.deps.Settings)
	v.deps.Logger.Info("imported backup", "path", path, "added", res.Added, "skipped", res.Skipped)
	theme.Apply(v.deps.Settings.Get().Theme)
	return v, tea.Batch(tasksChanged, settingsChanged(v.deps.Settings.Get()), status(res.Message()))
}

// View renders the settings view
func (v SettingsView) View() string {
	if v.width == 0 || v.height == 0 {
		return "Loading..."
	}

	leftWidth := v.width / 2
	if leftWidth < 36 {
		leftWidth = v.width
	}

	left := v.renderOptions(leftWidth)
	if leftWidth == v.width {
		return left
	}

	right := renderStats(planner.Summarize(v.deps.Tasks.All()), v.width-leftWidth-2)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(leftWidth).Render(left),
		right,
	)
}

func (v SettingsView) renderOptions(width int) string {
	styles := theme.Current.Styles
	t := theme.Current.Theme
	settings := v.deps.Settings.Get()

	section := lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)
	rowStyle := func(i int) lipgloss.Style {
		if i == v.cursor {
			return styles.TaskSelected
		}
		return styles.TaskNormal
	}
	value := lipgloss.NewStyle().Foreground(t.Primary)

	var lines []string
	i := 0

	lines = append(lines, section.Render("Appearance"))
	lines = append(lines, rowStyle(i).Render("Theme  "+value.Render(string(settings.Theme))+styles.Label.Render(" ("+theme.Current.Theme.Name+")")))
	i++

	reminder := settings.NotificationTime
	if reminder == "" {
		reminder = "off"
	}
	lines = append(lines, "", section.Render("Reminders"))
	lines = append(lines, rowStyle(i).Render("Daily reminder  "+value.Render(reminder)))
	i++

	lines = append(lines, "", section.Render("Subjects"))
	for _, subject := range settings.Subjects {
		lines = append(lines, rowStyle(i).Render("• "+subject))
		i++
	}
	lines = append(lines, rowStyle(i).Render("+ Add subject"))
	i++

	lines = append(lines, "", section.Render("Data"))
	for _, label := range []string{"Export to file", "Copy backup to clipboard", "Import from file"} {
		lines = append(lines, rowStyle(i).Render(label))
		i++
	}
	lines = append(lines, rowStyle(i).Foreground(t.Error).Render("Clear all data"))

	switch v.prompt {
	case inputSubject, inputReminder, inputImport:
		lines = append(lines, "", styles.InputFocused.Width(width-4).Render(v.input.View()))
	case confirmClear:
		lines = append(lines, "", lipgloss.NewStyle().
			Foreground(t.Warning).
			Bold(true).
			Render("Delete every task and reset settings? (y/n)"))
	}

	return strings.Join(lines, "\n")
}

// Prompting reports whether a text prompt is open, for the footer hints
func (v SettingsView) Prompting() bool {
	return v.prompt == inputSubject || v.prompt == inputReminder || v.prompt == inputImport
}
