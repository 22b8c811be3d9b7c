// Package inbox turns the cached thread list into the ordered lists shown
// by each inbox view, and applies single-thread workflow actions.
package inbox

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/triage"
)

// View is a workflow view on the main inbox surface.
type View string

const (
	ViewUnassigned View = "unassigned"
	ViewMyActions  View = "my-actions"
	ViewWaiting    View = "waiting"
	ViewFYI        View = "fyi"
	ViewDone       View = "done"
)

// Views lists the workflow views in tab order.
var Views = []View{ViewUnassigned, ViewMyActions, ViewWaiting, ViewFYI, ViewDone}

// ParseView resolves a view name.
func ParseView(name string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Views {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", name)
}

// Title is the label shown on the view's tab.
func (v View) Title() string {
	switch v {
	case ViewUnassigned:
		return "Unassigned"
	case ViewMyActions:
		return "My actions"
	case ViewWaiting:
		return "Waiting"
	case ViewFYI:
		return "FYI"
	case ViewDone:
		return "Done"
	}
	return string(v)
}

// Item is a thread with its render-time annotations.
type Item struct {
	Thread     model.Thread      `json:"thread"`
	Annotation triage.Annotation `json:"annotation"`
}

// Query selects and orders threads for a workflow view.
type Query struct {
	View   View
	Search string

	// Me is the current user's address, used by my-actions.
	Me string
}

// Workflow returns the threads belonging to q.View, ordered for display.
// Deleted threads are dropped and the search term narrows the result
// before the view predicate applies.
func Workflow(threads []model.Thread, a *triage.Annotator, q Query) []Item {
	me := model.NormalizeAddress(q.Me)
	items := annotate(threads, a, q.Search)

	out := items[:0]
	for _, it := range items {
		if inView(q.View, it, me) {
			out = append(out, it)
		}
	}

	if q.View == ViewWaiting {
		sortItems(out, oldestFirst)
	} else {
		sortItems(out, newestFirst)
	}
	return out
}

func inView(v View, it Item, me string) bool {
	status := it.Annotation.Status
	switch v {
	case ViewUnassigned:
		return status == triage.StatusNeedsAction && strings.TrimSpace(it.Thread.AssignedTo) == ""
	case ViewMyActions:
		return status == triage.StatusNeedsAction && me != "" &&
			model.NormalizeAddress(it.Thread.AssignedTo) == me
	case ViewWaiting:
		return status == triage.StatusWaiting
	case ViewFYI:
		return status == triage.StatusFYI
	case ViewDone:
		return status == triage.StatusDone
	}
	return false
}

// Counts holds the number of threads in each workflow view.
type Counts map[View]int

// CountViews counts non-deleted threads per workflow view. Search does not
// apply to counts.
func CountViews(threads []model.Thread, a *triage.Annotator, me string) Counts {
	me = model.NormalizeAddress(me)
	counts := make(Counts, len(Views))
	for _, v := range Views {
		counts[v] = 0
	}
	for _, it := range annotate(threads, a, "") {
		for _, v := range Views {
			if inView(v, it, me) {
				counts[v]++
			}
		}
	}
	return counts
}

// annotate drops deleted threads, annotates the rest and keeps those
// matching search.
func annotate(threads []model.Thread, a *triage.Annotator, search string) []Item {
	needle := strings.ToLower(strings.TrimSpace(search))
	items := make([]Item, 0, len(threads))
	for _, t := range threads {
		if t.IsDeleted {
			continue
		}
		if needle != "" && !matches(t, needle) {
			continue
		}
		items = append(items, Item{Thread: t, Annotation: a.Annotate(t)})
	}
	return items
}

// matches does case-insensitive substring matching over the searchable
// fields. needle must already be lowercased.
func matches(t model.Thread, needle string) bool {
	fields := []string{t.Subject, t.CounterpartName, t.FromAddress, t.Snippet}
	fields = append(fields, t.ToAddresses...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

type lessFunc func(a, b Item) (less, decided bool)

func newestFirst(a, b Item) (bool, bool) {
	am, bm := model.Millis(a.Thread.LastMessageDate), model.Millis(b.Thread.LastMessageDate)
	return am > bm, am != bm
}

func oldestFirst(a, b Item) (bool, bool) {
	am, bm := model.Millis(a.Thread.LastMessageDate), model.Millis(b.Thread.LastMessageDate)
	return am < bm, am != bm
}

// sortItems orders items by the given rules, falling back to thread ID so
// the order is total.
func sortItems(items []Item, rules ...lessFunc) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, rule := range rules {
			if less, decided := rule(items[i], items[j]); decided {
				return less
			}
		}
		return items[i].Thread.ID < items[j].Thread.ID
	})
}
