// Package crossref finds project and contract references in thread text.
package crossref

import (
	"regexp"
	"strings"

	"github.com/nhle/inbox-triage/internal/model"
)

// refPattern matches record keys such as PRJ-123 or CT-0042.
var refPattern = regexp.MustCompile(`\b([A-Z][A-Z0-9]+-\d+)\b`)

// ExtractRefs extracts all record key matches from text.
// Returns a deduplicated list preserving the order of first occurrence.
func ExtractRefs(text string) []string {
	matches := refPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		result = append(result, m)
	}
	return result
}

// Unlinked returns the references in t's subject and snippet that are not
// already its project or contract link. If known is non-empty, only keys
// in that set are returned.
func Unlinked(t model.Thread, known map[string]bool) []string {
	var out []string
	for _, ref := range ExtractRefs(t.Subject + " " + t.Snippet) {
		if strings.EqualFold(ref, t.ProjectID) || strings.EqualFold(ref, t.ContractID) {
			continue
		}
		if len(known) > 0 && !known[ref] {
			continue
		}
		out = append(out, ref)
	}
	return out
}
