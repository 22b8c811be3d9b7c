package detail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/inbox-triage/internal/inbox"
	"github.com/nhle/inbox-triage/internal/keys"
	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/triage"
)

func TestRenderContent_ShowsAnnotationsAndMentions(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	item := inbox.Item{
		Thread: model.Thread{
			ID:          "t1",
			Subject:     "PRJ-12 pump install",
			Snippet:     "Contract CT-7 applies",
			FromAddress: "client@example.com",
			ProjectID:   "PRJ-12",
		},
		Annotation: triage.Annotation{Direction: triage.DirectionReceived, Status: triage.StatusWaiting},
	}
	m.SetThread(LoadedMsg{Item: &item, Notes: []model.Note{{Body: "Assigned to Mia", Author: "me@fieldco.com"}}})

	out := m.renderContent()
	assert.Contains(t, out, "PRJ-12 pump install")
	assert.Contains(t, out, "waiting")
	assert.Contains(t, out, "CT-7")
	assert.Contains(t, out, "Activity (1)")
	assert.Equal(t, "t1", m.ThreadID())
}

func TestRenderContent_Empty(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	assert.Empty(t, m.renderContent())
}
