package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dori/chalk/internal/db"
	"github.com/dori/chalk/internal/model"
)

// SettingsStore holds user preferences
type SettingsStore struct {
	mu       sync.RWMutex
	settings model.Settings
	persist  *Persister
	logger   *log.Logger
	backend  Backend
}

// NewSettingsStore creates a store initialised to the defaults
func NewSettingsStore(backend Backend, persist *Persister, logger *log.Logger) *SettingsStore {
	return &SettingsStore{
		settings: model.DefaultSettings(),
		persist:  persist,
		logger:   logger,
		backend:  backend,
	}
}

// Load reads the stored record over the defaults. Only fields present in
// the record are replaced; an unreadable record keeps the defaults.
func (s *SettingsStore) Load(ctx context.Context) error {
	raw, found, err := s.backend.Get(ctx, db.KeySettings)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	loaded := model.DefaultSettings()
	if found {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			s.logger.Warn("stored settings unreadable, using defaults", "err", err)
		} else {
			applyFields(&loaded, fields, s.logger)
		}
	}

	s.mu.Lock()
	s.settings = loaded
	s.mu.Unlock()

	s.logger.Info("settings loaded", "theme", loaded.Theme, "subjects", len(loaded.Subjects))
	return nil
}

// applyFields copies each well-formed field onto dst and logs the rest.
func applyFields(dst *model.Settings, fields map[string]json.RawMessage, logger *log.Logger) {
	if v, ok := fields["theme"]; ok {
		var theme model.ThemePreference
		if err := json.Unmarshal(v, &theme); err == nil && theme.Valid() {
			dst.Theme = theme
		} else {
			logger.Warn("ignoring stored theme", "value", string(v))
		}
	}
	if v, ok := fields["subjects"]; ok {
		var subjects []string
		if err := json.Unmarshal(v, &subjects); err == nil && subjects != nil {
			dst.Subjects = unionSubjects(nil, subjects)
		} else {
			logger.Warn("ignoring stored subjects", "value", string(v))
		}
	}
	if v, ok := fields["notificationTime"]; ok {
		var hhmm string
		if err := json.Unmarshal(v, &hhmm); err != nil {
			logger.Warn("ignoring stored notification time", "value", string(v))
		} else if hhmm == "" {
			dst.NotificationTime = ""
		} else if norm, err := model.ParseNotificationTime(hhmm); err == nil {
			dst.NotificationTime = norm
		} else {
			logger.Warn("ignoring stored notification time", "value", hhmm)
		}
	}
}

// Get returns a copy of the current settings
func (s *SettingsStore) Get() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// SetTheme changes the theme preference
func (s *SettingsStore) SetTheme(pref model.ThemePreference) error {
	if !pref.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, pref)
	}
	s.mu.Lock()
	s.settings.Theme = pref
	s.mu.Unlock()

	s.save()
	return nil
}

// AddSubject appends label to the subject list. It reports false when the
// label was already present, in which case nothing changes.
func (s *SettingsStore) AddSubject(label string) (bool, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return false, ErrEmptySubject
	}

	s.mu.Lock()
	if s.settings.HasSubject(label) {
		s.mu.Unlock()
		return false, nil
	}
	s.settings.Subjects = append(s.settings.Subjects, label)
	s.mu.Unlock()

	s.save()
	return true, nil
}

// DeleteSubject removes the matching entry. It reports whether one was found.
func (s *SettingsStore) DeleteSubject(label string) bool {
	s.mu.Lock()
	idx := -1
	for i, existing := range s.settings.Subjects {
		if existing == label {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.settings.Subjects = append(s.settings.Subjects[:idx], s.settings.Subjects[idx+1:]...)
	s.mu.Unlock()

	s.save()
	return true
}

// SetNotificationTime sets the daily reminder time. An empty string turns
// the reminder off.
func (s *SettingsStore) SetNotificationTime(hhmm string) error {
	norm := ""
	if strings.TrimSpace(hhmm) != "" {
		var err error
		norm, err = model.ParseNotificationTime(hhmm)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTime, err)
		}
	}

	s.mu.Lock()
	s.settings.NotificationTime = norm
	s.mu.Unlock()

	s.save()
	return nil
}

// Merge folds imported settings in: the theme is overwritten when valid,
// subjects are unioned, and the notification time is overwritten when set.
func (s *SettingsStore) Merge(incoming model.Settings) {
	s.mu.Lock()
	if incoming.Theme.Valid() {
		s.settings.Theme = incoming.Theme
	}
	s.settings.Subjects = unionSubjects(s.settings.Subjects, incoming.Subjects)
	if incoming.NotificationTime != "" {
		if norm, err := model.ParseNotificationTime(incoming.NotificationTime); err == nil {
			s.settings.NotificationTime = norm
		} else {
			s.logger.Warn("ignoring imported notification time", "value", incoming.NotificationTime)
		}
	}
	s.mu.Unlock()

	s.save()
}

// Clear resets to the defaults and removes the stored record
func (s *SettingsStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = model.DefaultSettings()
	s.persist.Remove(db.KeySettings)
}

// unionSubjects keeps current order and appends unseen incoming labels.
func unionSubjects(current, incoming []string) []string {
	seen := make(map[string]bool, len(current)+len(incoming))
	out := make([]string, 0, len(current)+len(incoming))
	for _, list := range [][]string{current, incoming} {
		for _, label := range list {
			label = strings.TrimSpace(label)
			if label == "" || seen[label] {
				continue
			}
			seen[label] = true
			out = append(out, label)
		}
	}
	return out
}

func (s *SettingsStore) save() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.Marshal(s.settings)
	if err != nil {
		s.logger.Error("marshal settings", "err", err)
		return
	}
	s.persist.SaveMerged(db.KeySettings, data)
}
