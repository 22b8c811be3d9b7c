package threadlist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inbox-triage/internal/bulk"
	"github.com/nhle/inbox-triage/internal/inbox"
	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/theme"
	"github.com/nhle/inbox-triage/internal/triage"
)

// ThreadItem wraps an annotated thread so it can be used in a bubbles/list.
type ThreadItem struct {
	inbox.Item
}

// FilterValue returns the string used for list filtering.
func (i ThreadItem) FilterValue() string { return i.Thread.Subject }

// Title returns the thread subject.
func (i ThreadItem) Title() string { return i.Thread.Subject }

// Description returns a short summary line for the list.
func (i ThreadItem) Description() string {
	parts := []string{
		counterpart(i.Thread),
		string(i.Annotation.Status),
		relativeTime(time.Now(), i.Thread.LastMessageDate),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering thread rows.
type ItemDelegate struct {
	// selection is shared with the session so toggles show immediately.
	selection  *bulk.Selection
	selectMode *bool
	now        func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single thread row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(ThreadItem)
	if !ok {
		return
	}
	fmt.Fprint(w, d.renderLine(ti, index == m.Index()))
}

func (d ItemDelegate) renderLine(ti ThreadItem, isCursor bool) string {
	t := ti.Thread
	ann := ti.Annotation

	marker := " "
	if d.selectMode != nil && *d.selectMode {
		marker = "○"
		if d.selection != nil && d.selection.Has(t.ID) {
			marker = "●"
		}
	}

	flags := ""
	if t.IsPinned() {
		flags += "^"
	}
	if !t.IsRead {
		flags += "*"
	}

	arrow := "·"
	switch ann.Direction {
	case triage.DirectionSent:
		arrow = "→"
	case triage.DirectionReceived:
		arrow = "←"
	}

	status := theme.StatusStyle(string(ann.Status)).Render(string(ann.Status))

	intent := ""
	if ann.Intent != nil {
		intent = " " + theme.IntentStyle(string(ann.Intent.Bucket)).Render(string(ann.Intent.Bucket))
	}

	category := ""
	if ann.Category.Value != triage.CategoryUncategorised {
		category = lipgloss.NewStyle().Foreground(theme.ColorMagenta).
			Render(" [" + string(ann.Category.Value) + "]")
	}

	when := lipgloss.NewStyle().Foreground(theme.ColorGray).
		Render(relativeTime(d.clock(), t.LastMessageDate))

	line := fmt.Sprintf("%s %-2s %s %s %s: %s%s%s  %s",
		marker, flags, arrow, status, counterpart(t), t.Subject, intent, category, when)

	if t.IsRead || t.IsClosed() {
		line = theme.DimmedStyle.Render(line)
	}
	if isCursor {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

func (d ItemDelegate) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

// counterpart is the display name of the other party.
func counterpart(t model.Thread) string {
	if t.CounterpartName != "" {
		return t.CounterpartName
	}
	return t.FromAddress
}

// relativeTime returns a human-friendly age for a raw timestamp.
func relativeTime(now time.Time, raw string) string {
	ms := model.Millis(raw)
	if ms == 0 {
		return ""
	}

	d := now.Sub(time.UnixMilli(ms))
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
