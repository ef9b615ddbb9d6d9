package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dori/chalk/internal/db"
	"github.com/dori/chalk/internal/model"
	"github.com/google/uuid"
)

// TaskStore is the in-memory task collection
type TaskStore struct {
	mu      sync.RWMutex
	tasks   []model.Task
	persist *Persister
	logger  *log.Logger
	backend Backend

	now   func() time.Time
	newID func() string
}

// NewTaskStore creates an empty store backed by backend
func NewTaskStore(backend Backend, persist *Persister, logger *log.Logger) *TaskStore {
	return &TaskStore{
		backend: backend,
		persist: persist,
		logger:  logger,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Load replaces the collection with the stored record. A missing or
// unreadable record leaves the store empty; only backend failures are returned.
func (s *TaskStore) Load(ctx context.Context) error {
	raw, found, err := s.backend.Get(ctx, db.KeyTasks)
	if err != nil {
		return fmt.Errorf("read tasks: %w", err)
	}

	var tasks []model.Task
	if found {
		if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
			s.logger.Warn("stored tasks unreadable, starting empty", "err", err)
			tasks = nil
		}
	}

	tasks = normalizeTasks(tasks, s.logger)

	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()

	s.logger.Info("tasks loaded", "count", len(tasks))
	return nil
}

// normalizeTasks drops entries without an id, removes duplicate ids and maps
// unknown priorities to medium.
func normalizeTasks(tasks []model.Task, logger *log.Logger) []model.Task {
	seen := make(map[string]bool, len(tasks))
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == "" || seen[t.ID] {
			logger.Warn("dropping stored task", "id", t.ID)
			continue
		}
		seen[t.ID] = true
		if !t.Priority.Valid() {
			t.Priority = model.PriorityMedium
		}
		out = append(out, t)
	}
	return out
}

// All returns a copy of every task in insertion order
func (s *TaskStore) All() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Len returns the number of tasks
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Get returns a copy of the task with id
func (s *TaskStore) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return model.Task{}, false
}

// FindByPrefix resolves a unique id prefix, as typed on the command line
func (s *TaskStore) FindByPrefix(prefix string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var match *model.Task
	for i := range s.tasks {
		if strings.HasPrefix(s.tasks[i].ID, prefix) {
			if match != nil {
				return model.Task{}, fmt.Errorf("id prefix %q is ambiguous", prefix)
			}
			match = &s.tasks[i]
		}
	}
	if match == nil || prefix == "" {
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, prefix)
	}
	return match.Clone(), nil
}

// Subjects returns the distinct subject labels used by tasks
func (s *TaskStore) Subjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, t := range s.tasks {
		if t.Subject == "" || seen[t.Subject] {
			continue
		}
		seen[t.Subject] = true
		out = append(out, t.Subject)
	}
	return out
}

// Add creates a new incomplete task
func (s *TaskStore) Add(text, subject string, priority model.Priority) (model.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Task{}, ErrEmptyText
	}
	if !priority.Valid() {
		return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	task := model.Task{
		ID:        s.newID(),
		Text:      text,
		Subject:   strings.TrimSpace(subject),
		Priority:  priority,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	s.save()
	return task.Clone(), nil
}

// Edit changes the text, subject and priority of a task
func (s *TaskStore) Edit(id, text, subject string, priority model.Priority) (model.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Task{}, ErrEmptyText
	}
	if !priority.Valid() {
		return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	s.tasks[i].Text = text
	s.tasks[i].Subject = strings.TrimSpace(subject)
	s.tasks[i].Priority = priority
	updated := s.tasks[i].Clone()
	s.mu.Unlock()

	s.save()
	return updated, nil
}

// Toggle flips completion and stamps or clears the completion time
func (s *TaskStore) Toggle(id string) (model.Task, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	s.tasks[i].SetCompleted(!s.tasks[i].Completed, s.now())
	updated := s.tasks[i].Clone()
	s.mu.Unlock()

	s.save()
	return updated, nil
}

// Delete removes the task with id
func (s *TaskStore) Delete(id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.mu.Unlock()

	s.save()
	return nil
}

// Merge adds incoming tasks whose ids are not already present and returns
// how many were added. Existing tasks are never modified.
func (s *TaskStore) Merge(incoming []model.Task) int {
	s.mu.Lock()
	seen := make(map[string]bool, len(s.tasks)+len(incoming))
	for _, t := range s.tasks {
		seen[t.ID] = true
	}

	added := 0
	for _, t := range incoming {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		if !t.Priority.Valid() {
			t.Priority = model.PriorityMedium
		}
		s.tasks = append(s.tasks, t.Clone())
		added++
	}
	s.mu.Unlock()

	if added > 0 {
		s.save()
	}
	return added
}

// Clear empties the collection and removes the stored record
func (s *TaskStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = nil
	s.persist.Remove(db.KeyTasks)
}

func (s *TaskStore) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *TaskStore) save() {
	// Snapshot and submit under the lock so submission order matches
	// mutation order.
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := s.tasks
	if tasks == nil {
		tasks = []model.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		s.logger.Error("marshal tasks", "err", err)
		return
	}
	s.persist.Save(db.KeyTasks, data)
}
