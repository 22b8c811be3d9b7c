package triage

import "strings"

// Bucket is the urgency classification of a received thread.
type Bucket string

const (
	BucketNeedsReply   Bucket = "needs_reply"
	BucketImportantFYI Bucket = "important_fyi"
	BucketReference    Bucket = "reference"
)

// lowValueMaxLen is the longest trimmed snippet still treated as a bare
// acknowledgement.
const lowValueMaxLen = 60

// Intent is the classifier's bucket and the reason it was chosen.
type Intent struct {
	Bucket Bucket `json:"bucket"`
	Reason string `json:"reason"`
}

// ClassifyIntent buckets a received thread from its subject and snippet.
// Actionable language always wins over transactional keywords; anything
// unrecognised defaults to needs_reply.
func ClassifyIntent(subject, snippet string) Intent {
	combined := subject + "\n" + snippet

	if ActionablePatterns.Match(combined) {
		return Intent{Bucket: BucketNeedsReply, Reason: "actionable language"}
	}
	if ImportantFYIPatterns.Match(subject) || ImportantFYIPatterns.Match(combined) {
		return Intent{Bucket: BucketImportantFYI, Reason: "order, invoice or shipping update"}
	}

	short := strings.TrimSpace(snippet)
	if n := len([]rune(short)); n >= 1 && n <= lowValueMaxLen && LowValuePatterns.Match(short) {
		return Intent{Bucket: BucketReference, Reason: "short acknowledgement"}
	}

	return Intent{Bucket: BucketNeedsReply, Reason: "unclassified received mail"}
}
