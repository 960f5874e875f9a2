package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/engine"
	"github.com/roach88/assetsync/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string              // Assertion type for categorization
	Expected string              // Human-readable expected outcome
	Actual   string              // Human-readable actual outcome
	Entries  []engine.ReportEntry // Report entries for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Entries) > 0 {
		fmt.Fprintf(&buf, "\nReport:\n")
		for _, entry := range e.Entries {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", entry.Seq, entry.Outcome, entry.Ref, entry.Detail)
		}
	}
	return buf.String()
}

// assertReportContains checks that the report has an entry for the ref
// with the outcome, and that the entry's detail and one of its notes
// contain the given substrings.
func assertReportContains(entries []engine.ReportEntry, a Assertion) error {
	ref := asset.MustParseRef(a.Ref)
	for _, e := range entries {
		if e.Ref != ref || string(e.Outcome) != a.Outcome {
			continue
		}
		if !strings.Contains(e.Detail, a.Detail) {
			continue
		}
		if a.Note != "" && !slices.ContainsFunc(e.Notes, func(n string) bool {
			return strings.Contains(n, a.Note)
		}) {
			continue
		}
		return nil
	}

	expected := fmt.Sprintf("%s %s", a.Outcome, a.Ref)
	if a.Detail != "" {
		expected += fmt.Sprintf(" with detail containing %q", a.Detail)
	}
	if a.Note != "" {
		expected += fmt.Sprintf(" with a note containing %q", a.Note)
	}
	return &AssertionError{
		Type:     AssertReportContains,
		Expected: expected,
		Actual:   "not found in report",
		Entries:  entries,
	}
}

// assertReportOrder checks that refs first appear in the specified order.
// Refs don't need to be consecutive.
func assertReportOrder(entries []engine.ReportEntry, a Assertion) error {
	positions := make(map[asset.Ref]int)
	for i, e := range entries {
		if _, seen := positions[e.Ref]; !seen {
			positions[e.Ref] = i + 1 // 1-indexed for readability
		}
	}

	for _, r := range a.Refs {
		if positions[asset.MustParseRef(r)] == 0 {
			return &AssertionError{
				Type:     AssertReportOrder,
				Expected: fmt.Sprintf("all refs present: %v", a.Refs),
				Actual:   fmt.Sprintf("missing ref: %s", r),
				Entries:  entries,
			}
		}
	}

	for i := 1; i < len(a.Refs); i++ {
		prev, curr := a.Refs[i-1], a.Refs[i]
		pp, pc := positions[asset.MustParseRef(prev)], positions[asset.MustParseRef(curr)]
		if pp >= pc {
			return &AssertionError{
				Type:     AssertReportOrder,
				Expected: fmt.Sprintf("refs in order: %v", a.Refs),
				Actual:   fmt.Sprintf("%s (pos %d) should be before %s (pos %d)", prev, pp, curr, pc),
				Entries:  entries,
			}
		}
	}
	return nil
}

// assertReportCount checks that the outcome appears exactly count times.
func assertReportCount(entries []engine.ReportEntry, a Assertion) error {
	count := 0
	for _, e := range entries {
		if string(e.Outcome) == a.Outcome {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertReportCount,
			Expected: fmt.Sprintf("%d %s entries", a.Count, a.Outcome),
			Actual:   fmt.Sprintf("%d entries", count),
			Entries:  entries,
		}
	}
	return nil
}

// assertTargetState checks fields of a target entity, or of one node of
// its payload when a.Node is set.
func assertTargetState(ctx context.Context, st store.AssetStore, a Assertion) error {
	e, err := st.Find(ctx, asset.MustParseRef(a.Ref))
	if err != nil {
		return &AssertionError{
			Type:     AssertTargetState,
			Expected: fmt.Sprintf("entity %s in target", a.Ref),
			Actual:   err.Error(),
		}
	}

	var actual map[string]string
	where := a.Ref
	if a.Node != "" {
		where += " node " + a.Node
		n := e.Payload.Find(a.Node)
		if n == nil {
			return &AssertionError{
				Type:     AssertTargetState,
				Expected: fmt.Sprintf("node %s", where),
				Actual:   "node not found",
			}
		}
		actual = nodeFields(n)
	} else {
		actual = entityFields(e)
	}

	for _, key := range sortedKeys(a.Expect) {
		want := a.Expect[key]
		got, ok := actual[key]
		if !ok {
			return fmt.Errorf("target_state %s: unknown field %q", where, key)
		}
		if got != want {
			return &AssertionError{
				Type:     AssertTargetState,
				Expected: fmt.Sprintf("%s: %s = %q", where, key, want),
				Actual:   fmt.Sprintf("%s = %q", key, got),
			}
		}
	}
	return nil
}

// assertTargetAbsent checks that the target has no entity at the ref.
func assertTargetAbsent(ctx context.Context, st store.AssetStore, a Assertion) error {
	e, err := st.Find(ctx, asset.MustParseRef(a.Ref))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("target_absent %s: %w", a.Ref, err)
	}
	return &AssertionError{
		Type:     AssertTargetAbsent,
		Expected: fmt.Sprintf("no entity %s in target", a.Ref),
		Actual:   fmt.Sprintf("found id %s", e.ID),
	}
}

func entityFields(e *asset.Entity) map[string]string {
	fields := map[string]string{
		"text":    e.Text,
		"variant": e.Variant,
		"url":     e.URL,
		"title":   "",
		"schema":  linkString(e.Schema),
	}
	if e.Metadata != nil {
		fields["title"] = e.Metadata.Title
	}
	return fields
}

func nodeFields(n *asset.Node) map[string]string {
	return map[string]string{
		"text": n.Text,
		"kind": string(n.Kind),
		"link": linkString(n.Link),
	}
}

func linkString(l *asset.Link) string {
	if l.IsZero() {
		return ""
	}
	return l.Ref.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store store.AssetStore
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides target access for target_* assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertReportContains, AssertReportOrder, AssertReportCount:
			sr, ok := result.step(a.Step)
			if !ok || sr.Report == nil {
				err = fmt.Errorf("assertion[%d]: no report for step", i)
				break
			}
			switch a.Type {
			case AssertReportContains:
				err = assertReportContains(sr.Report.Entries, a)
			case AssertReportOrder:
				err = assertReportOrder(sr.Report.Entries, a)
			default:
				err = assertReportCount(sr.Report.Entries, a)
			}
		case AssertTargetState, AssertTargetAbsent:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a target store", i, a.Type)
				break
			}
			if a.Type == AssertTargetState {
				err = assertTargetState(actx.Ctx, actx.Store, a)
			} else {
				err = assertTargetAbsent(actx.Ctx, actx.Store, a)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
