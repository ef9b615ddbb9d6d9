package backup

import (
	"fmt"

	"github.com/dori/chalk/internal/model"
)

// TaskMerger adds tasks whose ids are new and reports how many it added
type TaskMerger interface {
	Merge(tasks []model.Task) int
}

// SettingsMerger folds imported settings into the current ones
type SettingsMerger interface {
	Merge(settings model.Settings)
}

// Outcome distinguishes an import that added tasks from one that did not
type Outcome int

const (
	OutcomeMerged Outcome = iota
	OutcomeNothingNew
)

// Result summarises a restore. Skipped counts tasks whose id was already
// present, either in the store or earlier in the same document.
type Result struct {
	Added   int
	Skipped int
	Outcome Outcome
}

// Message is the user-facing summary of the restore
func (r Result) Message() string {
	if r.Outcome == OutcomeNothingNew {
		return "Import complete: no new tasks, all tasks already exist"
	}
	msg := fmt.Sprintf("Imported %d task", r.Added)
	if r.Added != 1 {
		msg += "s"
	}
	if r.Skipped > 0 {
		msg += fmt.Sprintf(", skipped %d duplicate", r.Skipped)
		if r.Skipped != 1 {
			msg += "s"
		}
	}
	return msg
}

// Restore merges a validated document into the stores. Settings are merged
// even when every task already exists.
func Restore(doc *Document, tasks TaskMerger, settings SettingsMerger) Result {
	added := tasks.Merge(doc.Tasks)
	settings.Merge(doc.Settings)

	res := Result{
		Added:   added,
		Skipped: len(doc.Tasks) - added,
		Outcome: OutcomeMerged,
	}
	if added == 0 {
		res.Outcome = OutcomeNothingNew
	}
	return res
}
