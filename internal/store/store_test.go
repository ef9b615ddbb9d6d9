package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/dori/chalk/internal/db"
	"github.com/dori/chalk/internal/logging"
	"github.com/dori/chalk/internal/model"
)

type fixture struct {
	db       *db.DB
	persist  *Persister
	tasks    *TaskStore
	settings *SettingsStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	logger := logging.Discard()
	p := NewPersister(database, logger)
	f := &fixture{
		db:       database,
		persist:  p,
		tasks:    NewTaskStore(database, p, logger),
		settings: NewSettingsStore(database, p, logger),
	}

	n := 0
	f.tasks.newID = func() string {
		n++
		return fmt.Sprintf("task-%d", n)
	}
	return f
}

func (f *fixture) stored(t *testing.T, key string) (string, bool) {
	t.Helper()
	f.persist.Flush()
	v, found, err := f.db.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get %s failed: %v", key, err)
	}
	return v, found
}

func TestSettingsLoadDefaults(t *testing.T) {
	f := newFixture(t)
	if err := f.settings.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := f.settings.Get()
	want := model.DefaultSettings()
	if got.Theme != want.Theme {
		t.Errorf("Theme = %q, want %q", got.Theme, want.Theme)
	}
	if len(got.Subjects) != len(want.Subjects) {
		t.Errorf("Subjects = %v, want %v", got.Subjects, want.Subjects)
	}
	if got.NotificationTime != "" {
		t.Errorf("NotificationTime = %q, want empty", got.NotificationTime)
	}
}

func TestSettingsLoadCorruptRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.Set(ctx, db.KeySettings, "{not json"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := f.settings.Load(ctx); err != nil {
		t.Fatalf("Load should not fail on corrupt record: %v", err)
	}
	got := f.settings.Get()
	if got.Theme != model.ThemeSystem || len(got.Subjects) != len(model.DefaultSubjects) {
		t.Errorf("expected defaults, got %+v", got)
	}
}

func TestSettingsLoadReplacesProvidedFieldsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.Set(ctx, db.KeySettings, `{"theme":"dark","future":"x"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := f.settings.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := f.settings.Get()
	if got.Theme != model.ThemeDark {
		t.Errorf("Theme = %q, want dark", got.Theme)
	}
	if len(got.Subjects) != len(model.DefaultSubjects) {
		t.Errorf("Subjects should stay default, got %v", got.Subjects)
	}
}

func TestSettingsWriteKeepsUnknownKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.Set(ctx, db.KeySettings, `{"theme":"dark","future":"x"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := f.settings.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := f.settings.SetTheme(model.ThemeLight); err != nil {
		t.Fatalf("SetTheme failed: %v", err)
	}

	raw, found := f.stored(t, db.KeySettings)
	if !found {
		t.Fatal("settings record missing")
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		t.Fatalf("stored settings not JSON: %v", err)
	}
	if fields["theme"] != "light" {
		t.Errorf("theme = %v, want light", fields["theme"])
	}
	if fields["future"] != "x" {
		t.Errorf("unknown key lost: %v", fields)
	}
}

func TestSetThemeRejectsUnknown(t *testing.T) {
	f := newFixture(t)
	err := f.settings.SetTheme("sepia")
	if !errors.Is(err, ErrInvalidTheme) {
		t.Fatalf("expected ErrInvalidTheme, got %v", err)
	}
}

func TestAddSubjectAlreadyPresent(t *testing.T) {
	f := newFixture(t)
	before := len(f.settings.Get().Subjects)

	added, err := f.settings.AddSubject("Math")
	if err != nil {
		t.Fatalf("AddSubject failed: %v", err)
	}
	if added {
		t.Error("expected duplicate subject to be a no-op")
	}
	if got := len(f.settings.Get().Subjects); got != before {
		t.Errorf("subject count changed: %d -> %d", before, got)
	}

	if _, err := f.settings.AddSubject("   "); !errors.Is(err, ErrEmptySubject) {
		t.Errorf("expected ErrEmptySubject, got %v", err)
	}
}

func TestDeleteSubjectRemovesOne(t *testing.T) {
	f := newFixture(t)
	if !f.settings.DeleteSubject("Science") {
		t.Fatal("expected Science to be removed")
	}
	got := f.settings.Get().Subjects
	want := []string{"Math", "English", "History"}
	if len(got) != len(want) {
		t.Fatalf("Subjects = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Subjects[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if f.settings.DeleteSubject("Science") {
		t.Error("second delete should report not found")
	}
}

func TestSettingsMergeSubjects(t *testing.T) {
	f := newFixture(t)
	for _, s := range model.DefaultSubjects {
		f.settings.DeleteSubject(s)
	}
	f.settings.AddSubject("Physics")
	f.settings.AddSubject("Chemistry")

	f.settings.Merge(model.Settings{
		Theme:            model.ThemeDark,
		Subjects:         []string{"Physics", "Biology"},
		NotificationTime: "07:30",
	})

	got := f.settings.Get()
	subjects := append([]string(nil), got.Subjects...)
	sort.Strings(subjects)
	want := []string{"Biology", "Chemistry", "Physics"}
	if len(subjects) != len(want) {
		t.Fatalf("Subjects = %v, want set %v", got.Subjects, want)
	}
	for i := range want {
		if subjects[i] != want[i] {
			t.Errorf("Subjects = %v, want set %v", got.Subjects, want)
			break
		}
	}
	if got.Theme != model.ThemeDark {
		t.Errorf("Theme = %q, want dark", got.Theme)
	}
	if got.NotificationTime != "07:30" {
		t.Errorf("NotificationTime = %q, want 07:30", got.NotificationTime)
	}
}

func TestSetNotificationTime(t *testing.T) {
	f := newFixture(t)
	if err := f.settings.SetNotificationTime("25:00"); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("expected ErrInvalidTime, got %v", err)
	}
	if err := f.settings.SetNotificationTime("18:05"); err != nil {
		t.Fatalf("SetNotificationTime failed: %v", err)
	}
	if err := f.settings.SetNotificationTime(""); err != nil {
		t.Fatalf("clearing notification time failed: %v", err)
	}

	raw, _ := f.stored(t, db.KeySettings)
	var s model.Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("stored settings not JSON: %v", err)
	}
	if s.NotificationTime != "" {
		t.Errorf("stored NotificationTime = %q, want cleared", s.NotificationTime)
	}
}

func TestTaskLifecycle(t *testing.T) {
	f := newFixture(t)

	task, err := f.tasks.Add("Read chapter 4", "History", model.PriorityHigh)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if task.Completed || task.CompletedAt != nil {
		t.Error("new task should be incomplete")
	}

	if _, err := f.tasks.Edit(task.ID, "Read chapter 5", "English", model.PriorityLow); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	toggled, err := f.tasks.Toggle(task.ID)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !toggled.Completed || toggled.CompletedAt == nil {
		t.Error("toggle should complete and stamp the task")
	}

	toggled, _ = f.tasks.Toggle(task.ID)
	if toggled.Completed || toggled.CompletedAt != nil {
		t.Error("second toggle should reopen and clear the stamp")
	}

	got, ok := f.tasks.Get(task.ID)
	if !ok {
		t.Fatal("task missing")
	}
	if got.Text != "Read chapter 5" || got.Subject != "English" || got.Priority != model.PriorityLow {
		t.Errorf("edit not applied: %+v", got)
	}
	if !got.CreatedAt.Equal(task.CreatedAt) {
		t.Error("edit must not touch CreatedAt")
	}

	raw, found := f.stored(t, db.KeyTasks)
	if !found {
		t.Fatal("tasks record missing")
	}
	var stored []model.Task
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("stored tasks not JSON: %v", err)
	}
	if len(stored) != 1 || stored[0].Text != "Read chapter 5" {
		t.Errorf("stored tasks = %+v", stored)
	}

	if err := f.tasks.Delete(task.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := f.tasks.Delete(task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestAddRejectsEmptyText(t *testing.T) {
	f := newFixture(t)
	if _, err := f.tasks.Add("  ", "Math", model.PriorityLow); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if _, err := f.tasks.Add("x", "Math", "urgent"); !errors.Is(err, ErrInvalidPriority) {
		t.Errorf("expected ErrInvalidPriority, got %v", err)
	}
}

func TestTaskMergeDropsExistingIDs(t *testing.T) {
	f := newFixture(t)
	a, _ := f.tasks.Add("a", "Math", model.PriorityLow)
	b, _ := f.tasks.Add("b", "Math", model.PriorityLow)

	changed := a
	changed.Text = "changed"
	added := f.tasks.Merge([]model.Task{changed, b})
	if added != 0 {
		t.Errorf("Merge added %d, want 0", added)
	}
	got, _ := f.tasks.Get(a.ID)
	if got.Text != "a" {
		t.Error("merge must not reconcile fields of existing tasks")
	}

	added = f.tasks.Merge([]model.Task{
		{ID: "x", Text: "new", Priority: model.PriorityHigh},
		{ID: "x", Text: "dup"},
		{ID: "y", Text: "odd", Priority: "weird"},
	})
	if added != 2 {
		t.Errorf("Merge added %d, want 2", added)
	}
	if y, _ := f.tasks.Get("y"); y.Priority != model.PriorityMedium {
		t.Errorf("unknown priority should normalise to medium, got %q", y.Priority)
	}
	if f.tasks.Len() != 4 {
		t.Errorf("Len = %d, want 4", f.tasks.Len())
	}
}

func TestTaskLoadCorruptRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.Set(ctx, db.KeyTasks, "oops"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := f.tasks.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.tasks.Len() != 0 {
		t.Errorf("expected empty store, got %d tasks", f.tasks.Len())
	}
}

func TestTaskLoadRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.tasks.now = func() time.Time { return time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) }
	f.tasks.Add("one", "Math", model.PriorityHigh)
	f.tasks.Add("two", "Science", model.PriorityLow)
	f.persist.Flush()

	reloaded := NewTaskStore(f.db, f.persist, logging.Discard())
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	all := reloaded.All()
	if len(all) != 2 || all[0].Text != "one" || all[1].Text != "two" {
		t.Errorf("reloaded tasks = %+v", all)
	}
	subjects := reloaded.Subjects()
	if len(subjects) != 2 {
		t.Errorf("Subjects = %v", subjects)
	}
}

func TestFindByPrefix(t *testing.T) {
	f := newFixture(t)
	f.tasks.Merge([]model.Task{
		{ID: "abc123", Text: "a", Priority: model.PriorityLow},
		{ID: "abd456", Text: "b", Priority: model.PriorityLow},
	})

	if _, err := f.tasks.FindByPrefix("ab"); err == nil {
		t.Error("expected ambiguous prefix error")
	}
	got, err := f.tasks.FindByPrefix("abd")
	if err != nil || got.ID != "abd456" {
		t.Errorf("FindByPrefix(abd) = %v, %v", got.ID, err)
	}
	if _, err := f.tasks.FindByPrefix("zz"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestClearRemovesRecords(t *testing.T) {
	f := newFixture(t)
	f.tasks.Add("a", "Math", model.PriorityLow)
	f.settings.SetTheme(model.ThemeDark)
	f.settings.AddSubject("Art")

	f.tasks.Clear()
	f.settings.Clear()

	if _, found := f.stored(t, db.KeyTasks); found {
		t.Error("tasks record should be removed")
	}
	if _, found := f.stored(t, db.KeySettings); found {
		t.Error("settings record should be removed")
	}
	if f.tasks.Len() != 0 {
		t.Error("tasks should be empty")
	}
	got := f.settings.Get()
	if got.Theme != model.ThemeSystem || got.HasSubject("Art") {
		t.Errorf("settings should be defaults, got %+v", got)
	}
}

// TestPersisterConvergesOnLatest submits many writes for one key and checks
// the stored value is the last snapshot.
func TestPersisterConvergesOnLatest(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 50; i++ {
		f.persist.Save("counter", []byte(fmt.Sprintf("%d", i)))
	}
	got, found := f.stored(t, "counter")
	if !found || got != "49" {
		t.Errorf("stored counter = %q (found=%v), want 49", got, found)
	}
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}
func (failingBackend) Set(context.Context, string, string) error { return errors.New("disk on fire") }
func (failingBackend) Delete(context.Context, string) error      { return errors.New("disk on fire") }

func TestStorageFailuresKeepMemoryState(t *testing.T) {
	logger := logging.Discard()
	p := NewPersister(failingBackend{}, logger)
	tasks := NewTaskStore(failingBackend{}, p, logger)
	settings := NewSettingsStore(failingBackend{}, p, logger)

	if err := tasks.Load(context.Background()); err == nil {
		t.Error("expected read error from Load")
	}
	if err := settings.Load(context.Background()); err == nil {
		t.Error("expected read error from Load")
	}

	if _, err := tasks.Add("still works", "Math", model.PriorityLow); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	settings.AddSubject("Art")
	p.Flush()

	if tasks.Len() != 1 {
		t.Errorf("in-memory task lost after failed write")
	}
	if !settings.Get().HasSubject("Art") {
		t.Errorf("in-memory subject lost after failed write")
	}
}
