// Package triage derives advisory annotations (direction, intent, category)
// and the canonical workflow status for inbox threads. Every function in
// this package is pure and total: malformed input degrades to a safe
// default instead of failing.
package triage

import "regexp"

// PatternSet is an immutable group of expressions sharing one meaning.
type PatternSet []*regexp.Regexp

// Match reports whether any expression in the set matches text.
func (ps PatternSet) Match(text string) bool {
	for _, re := range ps {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func patterns(exprs ...string) PatternSet {
	set := make(PatternSet, len(exprs))
	for i, e := range exprs {
		set[i] = regexp.MustCompile(e)
	}
	return set
}

// ActionablePatterns matches language asking the organization to do
// something: questions, requests, urgency, problems, scheduling, pricing.
var ActionablePatterns = patterns(
	`\?`,
	`(?i)\b(please|pls|kindly|can you|could you|would you|can we|could we|let me know|lmk|need(s|ed)?|require[sd]?|request(ed|ing)?|waiting (on|for) (you|your))\b`,
	`(?i)\b(asap|urgent(ly)?|immediately|emergency|today|tomorrow|deadline|by (mon|tues|wednes|thurs|fri|satur|sun)day)\b`,
	`(?i)\b(problem|issue|broken|faulty|fault|leak(s|ing)?|not working|doesn'?t work|stopped working|complain(t|ts|ing)?|damaged?|defect(ive)?|wrong|fail(ed|ing|ure)?)\b`,
	`(?i)\b((re)?schedul(e|ed|ing)|appointment|availability|available|site visit|call ?out|come out|attend)\b`,
	`(?i)\b(quote|quotation|pricing|price|cost|estimate|how much)\b`,
)

// ImportantFYIPatterns matches transactional mail worth seeing but not
// answering: orders, invoices, shipping and pickup notices.
var ImportantFYIPatterns = patterns(
	`(?i)\border\s*(confirmation|confirmed|received|acknowledg(e)?ment|#\s*\d+|no\.?\s*\d+|number)`,
	`(?i)\b(tax\s+)?invoice\b|\breceipt\b|\bstatement\b|\bremittance\b`,
	`(?i)\b(shipped|shipping|shipment|dispatch(ed)?|tracking|track your|out for delivery|delivered|delivery|eta)\b`,
	`(?i)\bback[\s-]?order(ed|s)?\b`,
	`(?i)\b(ready for (pick\s?up|collection)|pick\s?up ready|ready to collect)\b`,
)

// LowValuePatterns matches short acknowledgements that need no reply.
var LowValuePatterns = patterns(
	`(?i)^\s*(thanks|thank you|thx|ty|cheers|ta|many thanks)\b`,
	`(?i)^\s*(ok(ay)?|noted|got it|received|confirmed|approved|done|sounds good|great|perfect|all good|no worries|will do|yes|yep)\b[\s!.,:)]*`,
)
