package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/roach88/assetsync/internal/asset"
)

// Outcome is the result recorded for one entity.
type Outcome string

const (
	Created   Outcome = "Created"
	Updated   Outcome = "Updated"
	Unchanged Outcome = "Unchanged"
	Skipped   Outcome = "Skipped"
	Failed    Outcome = "Failed"
)

// Outcomes lists every outcome in display order.
var Outcomes = []Outcome{Created, Updated, Unchanged, Skipped, Failed}

// ReportEntry is one line of a SyncReport.
type ReportEntry struct {
	Seq     int64     `json:"seq"`
	Ref     asset.Ref `json:"ref"`
	Outcome Outcome   `json:"outcome"`
	Detail  string    `json:"detail,omitempty"`
	Notes   []string  `json:"notes,omitempty"`
}

// Report is the append-only record of one Walk or Sync call.
//
// Entries are ordered by Seq. Entity ids never appear in a report, so two
// runs against equivalent stores render identically.
type Report struct {
	RunID   string        `json:"run_id"`
	Root    asset.Ref     `json:"root"`
	Policy  Policy        `json:"policy"`
	Entries []ReportEntry `json:"entries"`

	mu    sync.Mutex
	clock *Clock
}

// NewReport creates an empty report.
func NewReport(runID string, root asset.Ref, policy Policy) *Report {
	return &Report{
		RunID:   runID,
		Root:    root,
		Policy:  policy,
		Entries: []ReportEntry{},
		clock:   NewClock(),
	}
}

// Add appends an entry stamped with the next seq and returns it.
func (r *Report) Add(ref asset.Ref, outcome Outcome, detail string, notes ...string) ReportEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := ReportEntry{
		Seq:     r.clock.Next(),
		Ref:     ref,
		Outcome: outcome,
		Detail:  detail,
		Notes:   notes,
	}
	r.Entries = append(r.Entries, e)
	return e
}

// Counts returns the number of entries per outcome.
func (r *Report) Counts() map[Outcome]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[Outcome]int, len(Outcomes))
	for _, e := range r.Entries {
		counts[e.Outcome]++
	}
	return counts
}

// HasFailures reports whether any entry is Failed.
func (r *Report) HasFailures() bool {
	return r.Counts()[Failed] > 0
}

// Last returns the most recent entry for ref.
func (r *Report) Last(ref asset.Ref) (ReportEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.Entries) - 1; i >= 0; i-- {
		if r.Entries[i].Ref == ref {
			return r.Entries[i], true
		}
	}
	return ReportEntry{}, false
}

// Summary renders the outcome counts on one line.
func (r *Report) Summary() string {
	counts := r.Counts()
	parts := make([]string, 0, len(Outcomes))
	for _, o := range Outcomes {
		parts = append(parts, fmt.Sprintf("%s=%d", strings.ToLower(string(o)), counts[o]))
	}
	return strings.Join(parts, " ")
}

// WriteText renders the report as an aligned table.
func (r *Report) WriteText(w io.Writer) error {
	r.mu.Lock()
	entries := append([]ReportEntry(nil), r.Entries...)
	r.mu.Unlock()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SEQ\tOUTCOME\tREF\tDETAIL\n")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Seq, e.Outcome, e.Ref, e.Detail)
		for _, n := range e.Notes {
			fmt.Fprintf(tw, "\t\t\t  note: %s\n", n)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n", r.Summary())
	return err
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
