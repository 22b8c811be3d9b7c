package triage

import (
	"regexp"
	"sort"
)

// Category is the subject-matter classification of a thread.
type Category string

const (
	CategoryUncategorised     Category = "uncategorised"
	CategorySupplierQuote     Category = "supplier_quote"
	CategorySupplierInvoice   Category = "supplier_invoice"
	CategoryPayment           Category = "payment"
	CategoryBooking           Category = "booking"
	CategoryClientQuery       Category = "client_query"
	CategoryOrderConfirmation Category = "order_confirmation"
)

// DefaultCategoryThreshold is the minimum score a suggestion needs to be
// reported as anything other than uncategorised.
const DefaultCategoryThreshold = 45

// Scope selects which text a category rule is tested against.
type Scope int

const (
	// ScopeSubject tests the subject alone.
	ScopeSubject Scope = iota
	// ScopeCombined tests subject and snippet together.
	ScopeCombined
)

// CategoryRule is one row of the scoring table.
type CategoryRule struct {
	Category Category
	Scope    Scope
	Patterns PatternSet
	Score    int
	Reason   string
}

// Suggestion is the best-guess category for a thread.
type Suggestion struct {
	Value      Category `json:"value"`
	Reason     string   `json:"reason"`
	Confidence int      `json:"confidence"`
}

var (
	orderPattern   = regexp.MustCompile(`(?i)\border\s*(confirmation|confirmed|acknowledg(e)?ment|#\s*\d+|no\.?\s*\d+|number)|\bpurchase\s+order\b|\bconfirmation\b`)
	invoicePattern = regexp.MustCompile(`(?i)\b(tax\s+)?invoice\b|\bbill\s*(no\.?|#)|\bstatement\s+of\s+account\b`)
	quotePattern   = regexp.MustCompile(`(?i)\b(quote|quotation|estimate|pricing|price\s+list)\b`)
	paymentPattern = regexp.MustCompile(`(?i)\b(payment|paid|remittance|receipt|funds\s+transfer|direct\s+deposit|eft|overdue|outstanding\s+balance)\b`)
	bookingPattern = regexp.MustCompile(`(?i)\b(book(ing|ed)?|appointment|(re)?schedul(e|ed|ing)|site\s+visit|availability)\b`)
	queryPattern   = regexp.MustCompile(`\?|(?i)\b(can you|could you|would you|do you|is it possible|enquiry|inquiry)\b`)
)

// DefaultCategoryRules is the scoring table in declaration order. Earlier
// rows win ties.
var DefaultCategoryRules = []CategoryRule{
	{CategoryOrderConfirmation, ScopeSubject, PatternSet{orderPattern}, 90, "subject looks like order/confirmation"},
	{CategorySupplierInvoice, ScopeSubject, PatternSet{invoicePattern}, 85, "subject looks like an invoice"},
	{CategorySupplierQuote, ScopeSubject, PatternSet{quotePattern}, 75, "subject looks like a quote"},
	{CategoryOrderConfirmation, ScopeCombined, PatternSet{orderPattern}, 60, "mentions an order confirmation"},
	{CategorySupplierInvoice, ScopeCombined, PatternSet{invoicePattern}, 55, "mentions an invoice"},
	{CategoryPayment, ScopeCombined, PatternSet{paymentPattern}, 50, "mentions a payment"},
	{CategoryBooking, ScopeCombined, PatternSet{bookingPattern}, 45, "mentions a booking or appointment"},
	{CategoryClientQuery, ScopeCombined, PatternSet{queryPattern}, 40, "looks like a client question"},
}

// Suggester scores threads against a rule table.
type Suggester struct {
	Rules     []CategoryRule
	Threshold int
}

// NewSuggester returns a suggester using the default table. A threshold
// of zero or less selects DefaultCategoryThreshold.
func NewSuggester(threshold int) *Suggester {
	if threshold <= 0 {
		threshold = DefaultCategoryThreshold
	}
	return &Suggester{Rules: DefaultCategoryRules, Threshold: threshold}
}

// Suggest returns the highest scoring category. Below the threshold the
// value is uncategorised but the top score is kept as confidence.
func (s *Suggester) Suggest(subject, snippet string) Suggestion {
	combined := subject + "\n" + snippet

	var candidates []CategoryRule
	for _, r := range s.Rules {
		text := combined
		if r.Scope == ScopeSubject {
			text = subject
		}
		if r.Patterns.Match(text) {
			candidates = append(candidates, r)
		}
	}

	if len(candidates) == 0 {
		return Suggestion{Value: CategoryUncategorised, Reason: "no category signals", Confidence: 0}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	top := candidates[0]

	if top.Score < s.Threshold {
		return Suggestion{Value: CategoryUncategorised, Reason: "low confidence: " + top.Reason, Confidence: top.Score}
	}
	return Suggestion{Value: top.Category, Reason: top.Reason, Confidence: top.Score}
}
