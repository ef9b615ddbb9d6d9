package planner

import (
	"testing"
	"time"

	"github.com/dori/chalk/internal/model"
)

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.Local)
}

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "1", Text: "algebra", Subject: "Math", Priority: model.PriorityHigh, CreatedAt: day(2024, 3, 4, 9)},
		{ID: "2", Text: "essay", Subject: "English", Priority: model.PriorityLow, Completed: true, CreatedAt: day(2024, 3, 4, 15)},
		{ID: "3", Text: "lab", Subject: "Science", Priority: model.PriorityMedium, CreatedAt: day(2024, 3, 6, 10)},
		{ID: "4", Text: "geometry", Subject: "Math", Priority: model.PriorityLow, Completed: true, CreatedAt: day(2024, 3, 10, 8)},
	}
}

func ids(tasks []model.Task) string {
	s := ""
	for _, t := range tasks {
		s += t.ID
	}
	return s
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"zero matches all", Filter{}, "1234"},
		{"subject", Filter{Subject: "Math"}, "14"},
		{"priority", Filter{Priority: model.PriorityLow}, "24"},
		{"active", Filter{Status: StatusActive}, "13"},
		{"completed", Filter{Status: StatusCompleted}, "24"},
		{"subject and status", Filter{Subject: "Math", Status: StatusCompleted}, "4"},
		{"all three", Filter{Subject: "Math", Priority: model.PriorityHigh, Status: StatusActive}, "1"},
		{"no match", Filter{Subject: "History"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(tt.filter.Apply(sampleTasks())); got != tt.want {
				t.Errorf("Apply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWeekStartsOnFirstWeekday(t *testing.T) {
	// 2024-03-06 is a Wednesday.
	anchor := day(2024, 3, 6, 17)

	days := Week(anchor, time.Monday)
	if len(days) != 7 {
		t.Fatalf("got %d days", len(days))
	}
	if !days[0].Equal(day(2024, 3, 4, 0)) {
		t.Errorf("monday week starts %v, want 2024-03-04", days[0])
	}
	if !days[6].Equal(day(2024, 3, 10, 0)) {
		t.Errorf("monday week ends %v, want 2024-03-10", days[6])
	}

	days = Week(anchor, time.Sunday)
	if !days[0].Equal(day(2024, 3, 3, 0)) {
		t.Errorf("sunday week starts %v, want 2024-03-03", days[0])
	}
}

func TestWeekAnchorOnFirstDay(t *testing.T) {
	anchor := day(2024, 3, 4, 0)
	days := Week(anchor, time.Monday)
	if !days[0].Equal(anchor) {
		t.Errorf("week of a Monday should start on it, got %v", days[0])
	}
}

func TestWeekCrossesMonthBoundary(t *testing.T) {
	days := Week(day(2024, 2, 29, 12), time.Monday)
	if days[0].Month() != time.February || days[6].Month() != time.March {
		t.Errorf("week = %v .. %v", days[0], days[6])
	}
}

func TestShiftWeek(t *testing.T) {
	got := ShiftWeek(day(2024, 3, 6, 0), -1)
	if !got.Equal(day(2024, 2, 28, 0)) {
		t.Errorf("ShiftWeek = %v", got)
	}
}

func TestOnDayAndCounts(t *testing.T) {
	tasks := sampleTasks()
	if got := ids(OnDay(tasks, day(2024, 3, 4, 23))); got != "12" {
		t.Errorf("OnDay = %q, want 12", got)
	}

	counts := CountByDay(tasks, Week(day(2024, 3, 4, 0), time.Monday))
	want := []int{2, 0, 1, 0, 0, 0, 1}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("counts = %v, want %v", counts, want)
			break
		}
	}
}

func TestSort(t *testing.T) {
	tasks := sampleTasks()
	Sort(tasks)
	if got := ids(tasks); got != "1342" {
		t.Errorf("Sort order = %q, want 1342", got)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleTasks())
	if s.Total != 4 || s.Completed != 2 || s.Active != 2 {
		t.Errorf("counts = %+v", s)
	}
	if s.BySubject["Math"] != 2 {
		t.Errorf("Math = %d, want 2", s.BySubject["Math"])
	}
	if s.ByPriority[model.PriorityLow] != 2 {
		t.Errorf("low = %d, want 2", s.ByPriority[model.PriorityLow])
	}
	if s.CompletionRate() != 0.5 {
		t.Errorf("CompletionRate = %v", s.CompletionRate())
	}
	if (Stats{}).CompletionRate() != 0 {
		t.Error("empty stats should have zero rate")
	}
}

func TestStatusCycle(t *testing.T) {
	s := StatusAll
	for _, want := range []Status{StatusActive, StatusCompleted, StatusAll} {
		s = s.Next()
		if s != want {
			t.Errorf("Next = %q, want %q", s, want)
		}
	}
	if ParseStatus("done") != StatusCompleted || ParseStatus("x") != StatusAll {
		t.Error("ParseStatus mapping wrong")
	}
}
