package model

import (
	"fmt"
	"strings"
	"time"
)

// ThemePreference is the user's choice of color scheme
type ThemePreference string

const (
	ThemeLight  ThemePreference = "light"
	ThemeDark   ThemePreference = "dark"
	ThemeSystem ThemePreference = "system"
)

// ThemePreferences lists the selectable preferences in cycle order
func ThemePreferences() []ThemePreference {
	return []ThemePreference{ThemeLight, ThemeDark, ThemeSystem}
}

// Valid reports whether p is a known preference
func (p ThemePreference) Valid() bool {
	switch p {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Next cycles light -> dark -> system -> light
func (p ThemePreference) Next() ThemePreference {
	switch p {
	case ThemeLight:
		return ThemeDark
	case ThemeDark:
		return ThemeSystem
	default:
		return ThemeLight
	}
}

// NotificationLayout is the accepted format for the daily reminder time
const NotificationLayout = "15:04"

// DefaultSubjects seeds the subject list on first run
var DefaultSubjects = []string{"Math", "Science", "English", "History"}

// Settings holds user preferences
type Settings struct {
	Theme            ThemePreference `json:"theme"`
	Subjects         []string        `json:"subjects"`
	NotificationTime string          `json:"notificationTime"`
}

// DefaultSettings returns the first-run settings
func DefaultSettings() Settings {
	subjects := make([]string, len(DefaultSubjects))
	copy(subjects, DefaultSubjects)
	return Settings{
		Theme:    ThemeSystem,
		Subjects: subjects,
	}
}

// Clone returns a copy that shares no slices with s
func (s Settings) Clone() Settings {
	subjects := make([]string, len(s.Subjects))
	copy(subjects, s.Subjects)
	s.Subjects = subjects
	return s
}

// HasSubject reports whether label is already in the subject list
func (s Settings) HasSubject(label string) bool {
	for _, existing := range s.Subjects {
		if existing == label {
			return true
		}
	}
	return false
}

// ParseNotificationTime validates an HH:MM string and normalises it
func ParseNotificationTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(NotificationLayout, s)
	if err != nil {
		return "", fmt.Errorf("notification time %q must be HH:MM", s)
	}
	return t.Format(NotificationLayout), nil
}
