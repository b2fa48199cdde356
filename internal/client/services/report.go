package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/passfiles"
)

// Outcome is what a sync did with one passfile.
type Outcome int

const (
	OutcomeUpToDate Outcome = iota
	OutcomePushed
	OutcomePulled
	OutcomeInfoPushed
	OutcomeInfoPulled
	OutcomeNeedsMerge
	OutcomeUploaded
	OutcomeDownloaded
	OutcomeDeletedRemotely
	OutcomeDeletedLocally
	OutcomePendingDelete
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpToDate:
		return "up-to-date"
	case OutcomePushed:
		return "pushed"
	case OutcomePulled:
		return "pulled"
	case OutcomeInfoPushed:
		return "info pushed"
	case OutcomeInfoPulled:
		return "info pulled"
	case OutcomeNeedsMerge:
		return "needs merge"
	case OutcomeUploaded:
		return "uploaded"
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeDeletedRemotely:
		return "deleted remotely"
	case OutcomeDeletedLocally:
		return "deleted locally"
	case OutcomePendingDelete:
		return "delete pending"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ReportEntry is one passfile's line in a Report. A passfile may appear
// more than once, e.g. with both a content and an info outcome.
type ReportEntry struct {
	ID      int64
	Name    string
	Outcome Outcome
	Err     error
}

// Report summarizes one Sync run.
type Report struct {
	Entries []ReportEntry
	Commit  passfiles.CommitResult
}

func (r *Report) add(id int64, name string, o Outcome, err error) {
	r.Entries = append(r.Entries, ReportEntry{ID: id, Name: name, Outcome: o, Err: err})
}

// Count returns how many entries have outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == o {
			n++
		}
	}
	return n
}

// Failed returns the entries of passfiles that could not be synced.
func (r *Report) Failed() []ReportEntry {
	var out []ReportEntry
	for _, e := range r.Entries {
		if e.Outcome == OutcomeFailed {
			out = append(out, e)
		}
	}
	return out
}

// Err joins every per-passfile failure, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, e := range r.Failed() {
		errs = append(errs, fmt.Errorf("passfile %d %q: %w", e.ID, e.Name, e.Err))
	}
	return errors.Join(errs...)
}
