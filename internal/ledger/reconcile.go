package ledger

import "sort"

// State is the reconciled state of one identifier.
type State string

const (
	StateComplete  State = "complete"
	StatePending   State = "pending"
	StateFailed    State = "failed"
	StateRejected  State = "rejected"
	StateUntracked State = "untracked"
)

// States lists every State in report order.
var States = []State{StateComplete, StatePending, StateFailed, StateRejected, StateUntracked}

// Entry is one line of a status report.
type Entry struct {
	Seq            int
	Identifier     string
	State          State
	SchedulerJobID string
	Error          string
}

// Report is the reconciliation of a campaign's ledger with the artifacts on
// disk.
type Report struct {
	Entries []Entry
	Counts  map[State]int
}

// Reconcile joins ledger rows with the identifiers of artifacts present.
// A submitted row without an artifact is pending, never an error. Artifacts
// with no row are reported as untracked after the ledger rows.
func Reconcile(subs []Submission, artifacts []string) Report {
	present := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		present[a] = true
	}

	r := Report{Counts: make(map[State]int, len(States))}
	tracked := make(map[string]bool, len(subs))
	for _, s := range subs {
		tracked[s.Identifier] = true
		e := Entry{Seq: s.Seq, Identifier: s.Identifier, SchedulerJobID: s.SchedulerJobID, Error: s.Error}
		switch {
		case s.Status == StatusRejected:
			e.State = StateRejected
		case present[s.Identifier]:
			e.State = StateComplete
		case s.Status == StatusFailed:
			e.State = StateFailed
		default:
			e.State = StatePending
		}
		r.Entries = append(r.Entries, e)
		r.Counts[e.State]++
	}

	var untracked []string
	for a := range present {
		if !tracked[a] {
			untracked = append(untracked, a)
		}
	}
	sort.Strings(untracked)
	for _, a := range untracked {
		r.Entries = append(r.Entries, Entry{Seq: -1, Identifier: a, State: StateUntracked})
		r.Counts[StateUntracked]++
	}
	return r
}
