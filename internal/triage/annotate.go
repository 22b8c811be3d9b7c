package triage

import "github.com/nhle/inbox-triage/internal/model"

// Annotation is everything derived from a thread at render time. None of
// it is persisted.
type Annotation struct {
	Direction Direction  `json:"direction"`
	Status    Status     `json:"status"`
	Category  Suggestion `json:"category"`

	// Intent is set only for received threads.
	Intent *Intent `json:"intent,omitempty"`
}

// Annotator bundles the inputs shared by every thread in one render pass.
type Annotator struct {
	Org       AddressSet
	Suggester *Suggester
}

// NewAnnotator returns an annotator for the given organization set.
func NewAnnotator(org AddressSet, threshold int) *Annotator {
	return &Annotator{Org: org, Suggester: NewSuggester(threshold)}
}

// Annotate derives direction, intent, category and workflow status.
func (a *Annotator) Annotate(t model.Thread) Annotation {
	ann := Annotation{
		Direction: ResolveDirection(t, a.Org),
		Status:    ResolveStatus(t),
		Category:  a.Suggester.Suggest(t.Subject, t.Snippet),
	}
	if ann.Direction == DirectionReceived {
		intent := ClassifyIntent(t.Subject, t.Snippet)
		ann.Intent = &intent
	}
	return ann
}
