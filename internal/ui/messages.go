package ui

import "time"

// Tab represents the active screen
type Tab int

const (
	TabTasks Tab = iota
	TabSettings
)

// Tabs lists the tabs in display order
var Tabs = []Tab{TabTasks, TabSettings}

// String returns the display name for a tab
func (t Tab) String() string {
	switch t {
	case TabTasks:
		return "Tasks"
	case TabSettings:
		return "Settings"
	default:
		return "Unknown"
	}
}

// ReminderMsg fires when the daily reminder is due. Gen identifies the
// schedule it belongs to so stale ticks can be dropped after the time
// changes.
type ReminderMsg struct {
	At  time.Time
	Gen int
}

// reminderSentMsg reports the result of sending a reminder
type reminderSentMsg struct {
	Pending int
	Err     error
}
