package views

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/chalk/internal/model"
	"github.com/dori/chalk/internal/planner"
	"github.com/dori/chalk/internal/store"
	"github.com/dori/chalk/internal/ui/theme"
)

// TaskMode is the input state of the task view
type TaskMode int

const (
	TaskModeNormal TaskMode = iota
	TaskModeAdd
	TaskModeEdit
	TaskModeConfirmDelete
)

// TasksView shows the week strip and the task list for the selected day
type TasksView struct {
	tasks    *store.TaskStore
	settings *store.SettingsStore
	width    int
	height   int

	firstDay time.Weekday
	selected time.Time
	allDays  bool
	filter   planner.Filter

	visible      []model.Task
	cursor       int
	scrollOffset int

	mode      TaskMode
	input     textinput.Model
	editingID string
	subject   string
	priority  model.Priority
	deleteID  string

	now func() time.Time
}

// NewTasksView creates the task view anchored on today
func NewTasksView(tasks *store.TaskStore, settings *store.SettingsStore, firstDay time.Weekday) TasksView {
	ti := textinput.New()
	ti.Placeholder = "What needs doing?"
	ti.CharLimit = 256

	v := TasksView{
		tasks:    tasks,
		settings: settings,
		firstDay: firstDay,
		input:    ti,
		now:      time.Now,
		filter:   planner.Filter{Status: planner.StatusAll},
	}
	v.selected = planner.StartOfDay(v.now())
	v.refresh()
	return v
}

// Init initializes the task view
func (v TasksView) Init() tea.Cmd {
	return tasksChanged
}

// SetSize sets the view dimensions
func (v TasksView) SetSize(width, height int) TasksView {
	v.width = width
	v.height = height
	v.input.Width = width - 8
	return v
}

// IsInputMode returns true while a modal or confirmation owns the keyboard
func (v TasksView) IsInputMode() bool {
	return v.mode != TaskModeNormal
}

// Mode returns the current input mode
func (v TasksView) Mode() TaskMode {
	return v.mode
}

// Visible returns the tasks currently listed, in display order
func (v TasksView) Visible() []model.Task {
	return v.visible
}

// Selected returns the day the list is anchored on
func (v TasksView) Selected() time.Time {
	return v.selected
}

// Filter returns the active filter
func (v TasksView) Filter() planner.Filter {
	return v.filter
}

// refresh recomputes the visible list from the store
func (v *TasksView) refresh() {
	list := v.tasks.All()
	if !v.allDays {
		list = planner.OnDay(list, v.selected)
	}
	list = v.filter.Apply(list)
	planner.Sort(list)
	v.visible = list

	if v.cursor >= len(v.visible) {
		v.cursor = len(v.visible) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.ensureCursorVisible()
}

func (v TasksView) listHeight() int {
	// week strip, filter bar, spacing
	available := v.height - 7
	if v.mode == TaskModeAdd || v.mode == TaskModeEdit {
		available -= 5
	}
	if available < 1 {
		available = 1
	}
	return available
}

// ensureCursorVisible adjusts scrollOffset to keep cursor in view
func (v *TasksView) ensureCursorVisible() {
	visible := v.listHeight()
	if v.cursor < v.scrollOffset {
		v.scrollOffset = v.cursor
	}
	if v.cursor >= v.scrollOffset+visible {
		v.scrollOffset = v.cursor - visible + 1
	}
	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
}

func (v TasksView) current() (model.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.visible) {
		return model.Task{}, false
	}
	return v.visible[v.cursor], true
}

// Update handles messages
func (v TasksView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TasksChangedMsg, SettingsChangedMsg:
		v.refresh()
		return v, nil

	case tea.KeyMsg:
		switch v.mode {
		case TaskModeAdd, TaskModeEdit:
			return v.handleForm(msg)
		case TaskModeConfirmDelete:
			return v.handleDeleteConfirm(msg)
		}
		return v.handleNormalMode(msg)
	}

	return v, nil
}

func (v TasksView) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if v.cursor < len(v.visible)-1 {
			v.cursor++
			v.ensureCursorVisible()
		}
	case "k", "up":
		if v.cursor > 0 {
			v.cursor--
			v.ensureCursorVisible()
		}
	case "g":
		v.cursor = 0
		v.ensureCursorVisible()
	case "G":
		if len(v.visible) > 0 {
			v.cursor = len(v.visible) - 1
			v.ensureCursorVisible()
		}

	// Week strip
	case "h", "left":
		v.selected = v.selected.AddDate(0, 0, -1)
		v.refresh()
	case "l", "right":
		v.selected = v.selected.AddDate(0, 0, 1)
		v.refresh()
	case "H":
		v.selected = planner.ShiftWeek(v.selected, -1)
		v.refresh()
	case "L":
		v.selected = planner.ShiftWeek(v.selected, 1)
		v.refresh()
	case "t":
		v.selected = planner.StartOfDay(v.now())
		v.refresh()
	case "w":
		v.allDays = !v.allDays
		v.refresh()
		if v.allDays {
			return v, status("Showing all days")
		}
		return v, status("Showing " + v.selected.Format("Mon Jan 2"))

	// Filters
	case "s":
		v.filter.Subject = cycleString(v.filterSubjects(), v.filter.Subject)
		v.refresh()
	case "p":
		v.filter.Priority = cyclePriority(v.filter.Priority)
		v.refresh()
	case "c":
		v.filter.Status = v.filter.Status.Next()
		v.refresh()
	case "x":
		v.filter = planner.Filter{Status: planner.StatusAll}
		v.refresh()
		return v, status("Filters cleared")

	// Task actions
	case "a":
		v.mode = TaskModeAdd
		v.editingID = ""
		v.input.SetValue("")
		v.priority = model.PriorityMedium
		v.subject = v.filter.Subject
		if v.subject == "" {
			if subjects := v.settings.Get().Subjects; len(subjects) > 0 {
				v.subject = subjects[0]
			}
		}
		v.input.Focus()
		return v, textinput.Blink

	case "enter", "e":
		task, ok := v.current()
		if !ok {
			return v, nil
		}
		v.mode = TaskModeEdit
		v.editingID = task.ID
		v.input.SetValue(task.Text)
		v.input.CursorEnd()
		v.subject = task.Subject
		v.priority = task.Priority
		v.input.Focus()
		return v, textinput.Blink

	case "tab", " ":
		task, ok := v.current()
		if !ok {
			return v, nil
		}
		updated, err := v.tasks.Toggle(task.ID)
		if err != nil {
			return v, failed(err)
		}
		v.refresh()
		if updated.Completed {
			return v, tea.Batch(tasksChanged, status("Completed: "+updated.Text))
		}
		return v, tea.Batch(tasksChanged, status("Reopened: "+updated.Text))

	case "d", "delete":
		task, ok := v.current()
		if !ok {
			return v, nil
		}
		v.mode = TaskModeConfirmDelete
		v.deleteID = task.ID
	}

	return v, nil
}

// handleForm handles keypresses in the add and edit modal
func (v TasksView) handleForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return v.submitForm()
	case "esc":
		v.closeForm()
		return v, nil
	case "tab":
		v.subject = cycleString(v.filterSubjects(), v.subject)
		return v, nil
	case "shift+tab":
		v.subject = cycleStringBack(v.filterSubjects(), v.subject)
		return v, nil
	case "ctrl+p":
		v.priority = v.priority.Next()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v TasksView) submitForm() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(v.input.Value())
	if text == "" {
		return v, failed(store.ErrEmptyText)
	}

	var (
		task model.Task
		err  error
		verb string
	)
	adding := v.mode == TaskModeAdd
	if !adding {
		task, err = v.tasks.Edit(v.editingID, text, v.subject, v.priority)
		verb = "Updated"
	} else {
		task, err = v.tasks.Add(text, v.subject, v.priority)
		verb = "Added"
	}
	if err != nil {
		return v, failed(err)
	}

	v.closeForm()
	if adding && !v.allDays && !task.IsOn(v.selected) {
		// New tasks land on today; follow them there.
		v.selected = planner.StartOfDay(task.CreatedAt)
	}
	v.refresh()
	v.focus(task.ID)
	return v, tea.Batch(tasksChanged, status(fmt.Sprintf("%s: %s", verb, task.Text)))
}

func (v *TasksView) closeForm() {
	v.mode = TaskModeNormal
	v.editingID = ""
	v.input.Blur()
	v.input.SetValue("")
}

func (v *TasksView) focus(id string) {
	for i, t := range v.visible {
		if t.ID == id {
			v.cursor = i
			v.ensureCursorVisible()
			return
		}
	}
}

func (v TasksView) handleDeleteConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := v.deleteID
		v.mode = TaskModeNormal
		v.deleteID = ""
		task, _ := v.tasks.Get(id)
		if err := v.tasks.Delete(id); err != nil {
			if errors.Is(err, store.ErrTaskNotFound) {
				v.refresh()
			}
			return v, failed(err)
		}
		v.refresh()
		return v, tea.Batch(tasksChanged, status("Deleted: "+task.Text))
	case "n", "N", "esc":
		v.mode = TaskModeNormal
		v.deleteID = ""
	}
	return v, nil
}

// filterSubjects lists configured subjects plus any used only by tasks
func (v TasksView) filterSubjects() []string {
	subjects := v.settings.Get().Subjects
	seen := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		seen[s] = true
	}
	for _, s := range v.tasks.Subjects() {
		if !seen[s] {
			subjects = append(subjects, s)
		}
	}
	return subjects
}

// cycleString steps through "" then each option in turn
func cycleString(options []string, current string) string {
	if len(options) == 0 {
		return ""
	}
	for i, o := range options {
		if o == current {
			if i+1 < len(options) {
				return options[i+1]
			}
			return ""
		}
	}
	return options[0]
}

func cycleStringBack(options []string, current string) string {
	if len(options) == 0 {
		return ""
	}
	for i, o := range options {
		if o == current {
			if i > 0 {
				return options[i-1]
			}
			return ""
		}
	}
	return options[len(options)-1]
}

// cyclePriority steps any -> low -> medium -> high -> any
func cyclePriority(p model.Priority) model.Priority {
	if p == "" {
		return model.PriorityLow
	}
	if p == model.PriorityHigh {
		return ""
	}
	return p.Next()
}

// View renders the task view
func (v TasksView) View() string {
	if v.width == 0 || v.height == 0 {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, v.renderWeekStrip())
	sections = append(sections, v.renderFilterBar())

	if v.mode == TaskModeAdd || v.mode == TaskModeEdit {
		sections = append(sections, v.renderForm())
	}

	sections = append(sections, v.renderList())

	if v.mode == TaskModeConfirmDelete {
		t := theme.Current.Theme
		task, _ := v.tasks.Get(v.deleteID)
		sections = append(sections, lipgloss.NewStyle().
			Foreground(t.Warning).
			Bold(true).
			Render(fmt.Sprintf("Delete %q? (y/n)", task.Text)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderWeekStrip draws the seven days around the selected day
func (v TasksView) renderWeekStrip() string {
	t := theme.Current.Theme

	days := planner.Week(v.selected, v.firstDay)
	counts := planner.CountByDay(v.tasks.All(), days)
	today := v.now()

	cellWidth := 9
	if v.width > 0 && v.width/7 < cellWidth {
		cellWidth = v.width / 7
	}

	var cells []string
	for i, day := range days {
		style := lipgloss.NewStyle().
			Width(cellWidth).
			Align(lipgloss.Center).
			Foreground(t.Foreground)

		isSelected := !v.allDays && planner.SameDay(day, v.selected)
		if isSelected {
			style = style.Background(t.Highlight).Bold(true)
		}
		if planner.SameDay(day, today) {
			style = style.Foreground(t.Primary)
		}

		label := day.Format("Mon 2")
		marker := " "
		if counts[i] > 0 {
			marker = lipgloss.NewStyle().Foreground(t.Info).Render(fmt.Sprintf("•%d", counts[i]))
		}
		cells = append(cells, style.Render(label+"\n"+marker))
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		Render(fmt.Sprintf("Week of %s", days[0].Format("January 2, 2006")))

	return lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
}

func (v TasksView) renderFilterBar() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	item := func(label, value string) string {
		if value == "" {
			value = "any"
		}
		return styles.Label.Render(label+": ") + lipgloss.NewStyle().Foreground(t.Secondary).Render(value)
	}

	scope := v.selected.Format("Mon Jan 2")
	if v.allDays {
		scope = "all days"
	}

	completion := string(v.filter.Status)
	if completion == "" {
		completion = string(planner.StatusAll)
	}

	sep := styles.HelpSeparator.Render(" │ ")
	return "\n" + item("showing", scope) + sep +
		item("subject", v.filter.Subject) + sep +
		item("priority", string(v.filter.Priority)) + sep +
		item("status", completion) + "\n"
}

func (v TasksView) renderForm() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := "New task"
	if v.mode == TaskModeEdit {
		title = "Edit task"
	}

	subject := v.subject
	if subject == "" {
		subject = "none"
	}

	meta := styles.Label.Render("subject ") + styles.Subject.Render(subject) +
		styles.Label.Render("  priority ") +
		lipgloss.NewStyle().Foreground(t.PriorityColor(v.priority)).Bold(true).Render(string(v.priority))
	hints := styles.HelpDesc.Render("tab subject • ctrl+p priority • enter save • esc cancel")

	body := lipgloss.JoinVertical(lipgloss.Left,
		styles.PanelTitle.Render(title),
		v.input.View(),
		meta,
		hints,
	)
	return styles.InputFocused.Render(body)
}

func (v TasksView) renderList() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	if len(v.visible) == 0 {
		msg := "No tasks for this day. Press a to add one."
		if !v.filter.IsZero() {
			msg = "No tasks match the current filters. Press x to clear them."
		} else if v.allDays {
			msg = "No tasks yet. Press a to add one."
		}
		return lipgloss.NewStyle().Foreground(t.Subtle).Italic(true).Render(msg)
	}

	var lines []string
	end := v.scrollOffset + v.listHeight()
	if end > len(v.visible) {
		end = len(v.visible)
	}
	for i := v.scrollOffset; i < end; i++ {
		task := v.visible[i]

		checkbox := "☐"
		if task.Completed {
			checkbox = "☑"
		}

		priority := lipgloss.NewStyle().
			Foreground(t.PriorityColor(task.Priority)).
			Render(priorityGlyph(task.Priority))

		text := task.Text
		maxLen := v.width - 30
		if maxLen > 3 && len(text) > maxLen {
			text = text[:maxLen-3] + "..."
		}

		style := styles.TaskNormal
		if task.Completed {
			style = styles.TaskDone
		}
		if i == v.cursor {
			style = style.Background(t.Highlight)
		}

		line := fmt.Sprintf("%s %s %s", checkbox, priority, style.Render(text))
		if task.Subject != "" {
			line += " " + styles.Subject.Render(task.Subject)
		}
		if v.allDays {
			line += styles.Label.Render(task.CreatedAt.Local().Format(" Jan 2"))
		}
		lines = append(lines, line)
	}

	if len(v.visible) > end {
		lines = append(lines, styles.Label.Render(fmt.Sprintf("  ... %d more", len(v.visible)-end)))
	}
	return strings.Join(lines, "\n")
}

func priorityGlyph(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "▲"
	case model.PriorityLow:
		return "▽"
	default:
		return "●"
	}
}
