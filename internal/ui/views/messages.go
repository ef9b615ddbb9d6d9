package views

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/chalk/internal/model"
)

// StatusMsg carries a message for the status line
type StatusMsg struct {
	Message string
}

// ErrorMsg carries an error for the status line
type ErrorMsg struct {
	Err error
}

// TasksChangedMsg tells views that the task collection changed
type TasksChangedMsg struct{}

// SettingsChangedMsg tells views that settings changed
type SettingsChangedMsg struct {
	Settings model.Settings
}

func status(message string) tea.Cmd {
	return func() tea.Msg { return StatusMsg{Message: message} }
}

func failed(err error) tea.Cmd {
	return func() tea.Msg { return ErrorMsg{Err: err} }
}

func tasksChanged() tea.Msg { return TasksChangedMsg{} }

func settingsChanged(s model.Settings) tea.Cmd {
	return func() tea.Msg { return SettingsChangedMsg{Settings: s} }
}
