package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/chalk/internal/app"
	"github.com/dori/chalk/internal/notify"
	"github.com/dori/chalk/internal/planner"
	"github.com/dori/chalk/internal/ui/theme"
	"github.com/dori/chalk/internal/ui/views"
)

// RootModel is the main application model that owns both tabs
type RootModel struct {
	app    *app.App
	keys   KeyMap
	help   help.Model
	width  int
	height int

	currentTab   Tab
	tasksView    views.TasksView
	settingsView views.SettingsView
	helpVisible  bool

	reminderTime string
	reminderGen  int

	// Status message
	statusMsg string
	errorMsg  string

	now func() time.Time
}

// NewRootModel creates a new root model
func NewRootModel(application *app.App) RootModel {
	h := help.New()
	h.ShowAll = false

	return RootModel{
		app:        application,
		keys:       DefaultKeyMap(),
		help:       h,
		currentTab: TabTasks,
		tasksView: views.NewTasksView(
			application.Tasks,
			application.Settings,
			application.Config.FirstWeekday(),
		),
		settingsView: views.NewSettingsView(views.SettingsDeps{
			Tasks:     application.Tasks,
			Settings:  application.Settings,
			ExportDir: application.Config.ExportPath(),
			ClearAll:  application.ClearAll,
			Logger:    application.Logger,
		}),
		reminderTime: application.Settings.Get().NotificationTime,
		now:          time.Now,
	}
}

// Init initializes the model
func (m RootModel) Init() tea.Cmd {
	theme.Apply(m.app.Settings.Get().Theme)
	return tea.Batch(m.tasksView.Init(), m.settingsView.Init(), m.scheduleReminder())
}

// scheduleReminder arms a tick for the next reminder, if one is set
func (m RootModel) scheduleReminder() tea.Cmd {
	if m.reminderTime == "" {
		return nil
	}
	next, err := notify.NextOccurrence(m.reminderTime, m.now())
	if err != nil {
		m.app.Logger.Warn("bad reminder time", "value", m.reminderTime, "err", err)
		return nil
	}
	gen := m.reminderGen
	m.app.Logger.Debug("reminder scheduled", "at", next)
	return tea.Tick(next.Sub(m.now()), func(t time.Time) tea.Msg {
		return ReminderMsg{At: t, Gen: gen}
	})
}

func (m RootModel) sendReminder() tea.Cmd {
	pending := planner.Summarize(m.app.Tasks.All()).Active
	notifier := m.app.Notifier
	return func() tea.Msg {
		return reminderSentMsg{Pending: pending, Err: notifier.SendDailyReminder(pending)}
	}
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

		contentHeight := m.contentHeight()
		m.tasksView = m.tasksView.SetSize(m.width, contentHeight)
		m.settingsView = m.settingsView.SetSize(m.width, contentHeight)
		return m, nil

	case tea.KeyMsg:
		// Clear status/error on any keypress
		m.statusMsg = ""
		m.errorMsg = ""

		isInputMode := m.isInputMode()

		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if !isInputMode {
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m, tea.Quit
			case key.Matches(msg, m.keys.Help):
				m.helpVisible = !m.helpVisible
				m.help.ShowAll = m.helpVisible
				return m, nil
			case key.Matches(msg, m.keys.TasksTab):
				m.currentTab = TabTasks
				return m, nil
			case key.Matches(msg, m.keys.SettingsTab):
				m.currentTab = TabSettings
				return m, nil
			case key.Matches(msg, m.keys.NextTab), key.Matches(msg, m.keys.PrevTab):
				m.currentTab = (m.currentTab + 1) % Tab(len(Tabs))
				return m, nil
			}
			if m.helpVisible && msg.String() == "esc" {
				m.helpVisible = false
				m.help.ShowAll = false
				return m, nil
			}
		}

		// Keys go only to the visible tab
		switch m.currentTab {
		case TabTasks:
			updated, cmd := m.tasksView.Update(msg)
			m.tasksView = updated.(views.TasksView)
			return m, cmd
		case TabSettings:
			updated, cmd := m.settingsView.Update(msg)
			m.settingsView = updated.(views.SettingsView)
			return m, cmd
		}
		return m, nil

	case views.ErrorMsg:
		m.errorMsg = msg.Err.Error()
		m.app.Logger.Warn("ui error", "err", msg.Err)
		return m, nil

	case views.StatusMsg:
		m.statusMsg = msg.Message
		return m, nil

	case views.SettingsChangedMsg:
		if msg.Settings.NotificationTime != m.reminderTime {
			m.reminderTime = msg.Settings.NotificationTime
			m.reminderGen++
			cmds = append(cmds, m.scheduleReminder())
		}

	case ReminderMsg:
		if msg.Gen != m.reminderGen {
			return m, nil
		}
		return m, tea.Batch(m.sendReminder(), m.scheduleReminder())

	case reminderSentMsg:
		if msg.Err != nil {
			m.app.Logger.Error("send reminder", "err", msg.Err)
			return m, nil
		}
		m.app.Logger.Info("reminder sent", "pending", msg.Pending)
		return m, nil
	}

	// Broadcast everything else so both tabs stay current
	updatedTasks, cmd := m.tasksView.Update(msg)
	m.tasksView = updatedTasks.(views.TasksView)
	cmds = append(cmds, cmd)

	updatedSettings, cmd := m.settingsView.Update(msg)
	m.settingsView = updatedSettings.(views.SettingsView)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m RootModel) isInputMode() bool {
	switch m.currentTab {
	case TabTasks:
		return m.tasksView.IsInputMode()
	case TabSettings:
		return m.settingsView.IsInputMode()
	}
	return false
}

// contentHeight reserves one line for the header and three for the footer
func (m RootModel) contentHeight() int {
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content string
	if m.helpVisible {
		content = m.renderHelp()
	} else {
		switch m.currentTab {
		case TabTasks:
			content = m.tasksView.View()
		case TabSettings:
			content = m.settingsView.View()
		}
	}

	// Ensure content fills available space
	contentHeight := m.contentHeight()
	if m.errorMsg != "" || m.statusMsg != "" {
		contentHeight--
	}
	if lines := strings.Count(content, "\n") + 1; lines < contentHeight {
		content += strings.Repeat("\n", contentHeight-lines)
	}

	return strings.Join([]string{m.renderHeader(), content, m.renderFooter()}, "\n")
}

// renderHeader renders the title and tab bar
func (m RootModel) renderHeader() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := styles.Header.Render("chalk")

	var tabs []string
	for i, tab := range Tabs {
		label := fmt.Sprintf("%d %s", i+1, tab)
		if tab == m.currentTab {
			tabs = append(tabs, styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, styles.TabInactive.Render(label))
		}
	}

	left := lipgloss.JoinHorizontal(lipgloss.Center, append([]string{title}, tabs...)...)
	right := lipgloss.NewStyle().
		Foreground(t.Subtle).
		Padding(0, 1).
		Render(m.now().Format("Mon Jan 2"))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderFooter renders the status line and key hints
func (m RootModel) renderFooter() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	hint := func(k, desc string) string {
		return styles.HelpKey.Render(k) + styles.HelpDesc.Render(" "+desc)
	}
	sep := styles.HelpSeparator.Render(" │ ")

	var lines []string
	if m.errorMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Error).Render(m.errorMsg))
	} else if m.statusMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Info).Render(m.statusMsg))
	}

	switch {
	case m.helpVisible:
		lines = append(lines, hint("?/esc", "close help"))
	case m.currentTab == TabTasks && m.tasksView.IsInputMode():
		if m.tasksView.Mode() == views.TaskModeConfirmDelete {
			lines = append(lines, hint("y", "delete")+sep+hint("n/esc", "keep"))
		} else {
			lines = append(lines, hint("enter", "save")+sep+hint("tab", "subject")+sep+
				hint("ctrl+p", "priority")+sep+hint("esc", "cancel"))
		}
	case m.currentTab == TabSettings && m.settingsView.Prompting():
		lines = append(lines, hint("enter", "confirm")+sep+hint("esc", "cancel"))
	case m.currentTab == TabSettings && m.settingsView.IsInputMode():
		lines = append(lines, hint("y", "clear everything")+sep+hint("n/esc", "cancel"))
	case m.currentTab == TabSettings:
		lines = append(lines, hint("j/k", "move")+sep+hint("enter", "select")+sep+
			hint("d", "remove subject")+sep+hint("T", "theme"))
		lines = append(lines, m.help.ShortHelpView([]key.Binding{m.keys.TasksTab, m.keys.SettingsTab, m.keys.Help, m.keys.Quit}))
	default:
		lines = append(lines, m.help.View(m.keys))
		lines = append(lines, m.help.ShortHelpView([]key.Binding{
			m.keys.PrevDay, m.keys.NextDay, m.keys.AllDays,
			m.keys.FilterSubject, m.keys.FilterPriority, m.keys.FilterStatus,
		}))
	}

	return strings.Join(lines, "\n")
}

// renderHelp renders the full keybinding reference
func (m RootModel) renderHelp() string {
	t := theme.Current.Theme

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Secondary).
		MarginTop(1)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Chalk Help"))
	b.WriteString("\n\n")
	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Task form"))
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{
		key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab/S-tab", "subject")),
		key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("C-p", "priority")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Settings"))
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "change/run")),
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove subject")),
		key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "cycle theme")),
	}))
	return b.String()
}
