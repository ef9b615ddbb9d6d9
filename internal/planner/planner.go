// Package planner holds the pure list logic behind the task screen: filters,
// week windows, ordering and summary counts.
package planner

import (
	"sort"
	"time"

	"github.com/dori/chalk/internal/model"
)

// Status selects tasks by completion
type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Next cycles all -> active -> completed -> all
func (s Status) Next() Status {
	switch s {
	case StatusAll, "":
		return StatusActive
	case StatusActive:
		return StatusCompleted
	default:
		return StatusAll
	}
}

// ParseStatus maps user input to a Status. Unknown input means all.
func ParseStatus(s string) Status {
	switch s {
	case "active", "pending", "open":
		return StatusActive
	case "completed", "done":
		return StatusCompleted
	default:
		return StatusAll
	}
}

// Filter narrows a task list by three independent predicates. Zero values
// match everything.
type Filter struct {
	Subject  string
	Priority model.Priority
	Status   Status
}

// IsZero reports whether the filter matches every task
func (f Filter) IsZero() bool {
	return f.Subject == "" && f.Priority == "" && (f.Status == "" || f.Status == StatusAll)
}

// Match reports whether t passes every predicate
func (f Filter) Match(t model.Task) bool {
	if f.Subject != "" && t.Subject != f.Subject {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	switch f.Status {
	case StatusActive:
		return !t.Completed
	case StatusCompleted:
		return t.Completed
	}
	return true
}

// Apply returns the matching tasks in their original order
func (f Filter) Apply(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// StartOfDay returns local midnight of t's day
func StartOfDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// Week returns the seven days of the week containing anchor, each at local
// midnight, beginning on first.
func Week(anchor time.Time, first time.Weekday) []time.Time {
	day := StartOfDay(anchor)
	offset := (int(day.Weekday()) - int(first) + 7) % 7
	start := day.AddDate(0, 0, -offset)

	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// ShiftWeek moves anchor by n weeks
func ShiftWeek(anchor time.Time, n int) time.Time {
	return anchor.AddDate(0, 0, 7*n)
}

// SameDay reports whether a and b fall on the same local day
func SameDay(a, b time.Time) bool {
	a, b = a.Local(), b.Local()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// OnDay returns tasks whose calendar date is day
func OnDay(tasks []model.Task, day time.Time) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.IsOn(day) {
			out = append(out, t)
		}
	}
	return out
}

// CountByDay counts tasks per day in days, keyed by index
func CountByDay(tasks []model.Task, days []time.Time) []int {
	counts := make([]int, len(days))
	for _, t := range tasks {
		for i, d := range days {
			if t.IsOn(d) {
				counts[i]++
				break
			}
		}
	}
	return counts
}

// Sort orders incomplete tasks first, then by priority high to low, then
// newest first. The input is sorted in place.
func Sort(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		if a.Priority.Weight() != b.Priority.Weight() {
			return a.Priority.Weight() > b.Priority.Weight()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// Stats summarises a task list
type Stats struct {
	Total      int
	Completed  int
	Active     int
	BySubject  map[string]int
	ByPriority map[model.Priority]int
}

// CompletionRate returns completed/total in [0,1]
func (s Stats) CompletionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Summarize counts tasks by completion, subject and priority
func Summarize(tasks []model.Task) Stats {
	s := Stats{
		BySubject:  make(map[string]int),
		ByPriority: make(map[model.Priority]int),
	}
	for _, t := range tasks {
		s.Total++
		if t.Completed {
			s.Completed++
		} else {
			s.Active++
		}
		s.BySubject[t.Subject]++
		s.ByPriority[t.Priority]++
	}
	return s
}
