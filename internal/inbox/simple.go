package inbox

import (
	"fmt"
	"strings"

	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/triage"
)

// Filter is a toggle on the simple inbox surface.
type Filter string

const (
	FilterNone         Filter = ""
	FilterClosed       Filter = "closed"
	FilterAssignedToMe Filter = "assigned-to-me"
	FilterSent         Filter = "sent"
	FilterReceived     Filter = "received"
	FilterPinned       Filter = "pinned"
	FilterLinked       Filter = "linked"
	FilterUnlinked     Filter = "unlinked"
)

// filterPriority is the order in which toggles are honored. Only the first
// set toggle applies.
var filterPriority = []Filter{
	FilterClosed,
	FilterAssignedToMe,
	FilterSent,
	FilterReceived,
	FilterPinned,
	FilterLinked,
	FilterUnlinked,
}

// Filters is the set of toggles switched on.
type Filters map[Filter]bool

// ParseFilters builds a toggle set from filter names.
func ParseFilters(names []string) (Filters, error) {
	f := make(Filters, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		known := false
		for _, candidate := range filterPriority {
			if Filter(name) == candidate {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown filter %q", name)
		}
		f[Filter(name)] = true
	}
	return f, nil
}

// Honored returns the single toggle that takes effect, or FilterNone.
func (f Filters) Honored() Filter {
	for _, candidate := range filterPriority {
		if f[candidate] {
			return candidate
		}
	}
	return FilterNone
}

// SimpleQuery selects threads on the simple surface.
type SimpleQuery struct {
	Filters Filters
	Search  string
	Me      string
}

// Simple returns threads for the simple surface: pinned threads first by
// pin time, then unread before read, then newest first. Without the
// closed toggle, closed threads are hidden.
func Simple(threads []model.Thread, a *triage.Annotator, q SimpleQuery) []Item {
	me := model.NormalizeAddress(q.Me)
	honored := q.Filters.Honored()
	items := annotate(threads, a, q.Search)

	out := items[:0]
	for _, it := range items {
		if honored == FilterClosed {
			if it.Thread.IsClosed() {
				out = append(out, it)
			}
			continue
		}
		if it.Thread.IsClosed() {
			continue
		}
		if keep(honored, it, me) {
			out = append(out, it)
		}
	}

	sortItems(out, pinnedFirst, unreadFirst, newestFirst)
	return out
}

func keep(f Filter, it Item, me string) bool {
	t := it.Thread
	switch f {
	case FilterAssignedToMe:
		return me != "" && model.NormalizeAddress(t.AssignedTo) == me
	case FilterSent:
		return it.Annotation.Direction == triage.DirectionSent
	case FilterReceived:
		return it.Annotation.Direction == triage.DirectionReceived
	case FilterPinned:
		return t.IsPinned()
	case FilterLinked:
		return t.IsLinked()
	case FilterUnlinked:
		return !t.IsLinked()
	}
	return true
}

func pinnedFirst(a, b Item) (bool, bool) {
	ap, bp := a.Thread.IsPinned(), b.Thread.IsPinned()
	if ap != bp {
		return ap, true
	}
	if !ap {
		return false, false
	}
	am, bm := model.Millis(a.Thread.PinnedAt), model.Millis(b.Thread.PinnedAt)
	return am > bm, am != bm
}

func unreadFirst(a, b Item) (bool, bool) {
	if a.Thread.IsRead == b.Thread.IsRead {
		return false, false
	}
	return !a.Thread.IsRead, true
}
