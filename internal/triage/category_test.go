package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggester_Suggest(t *testing.T) {
	s := NewSuggester(0)

	tests := []struct {
		name       string
		subject    string
		snippet    string
		want       Category
		confidence int
		reason     string
	}{
		{
			name:       "order confirmation subject",
			subject:    "Order Confirmation #123",
			want:       CategoryOrderConfirmation,
			confidence: 90,
			reason:     "subject looks like order/confirmation",
		},
		{
			name:       "question below threshold",
			subject:    "Re: meeting?",
			want:       CategoryUncategorised,
			confidence: 40,
		},
		{
			name:       "invoice subject",
			subject:    "Tax Invoice #55",
			snippet:    "please pay by Friday",
			want:       CategorySupplierInvoice,
			confidence: 85,
			reason:     "subject looks like an invoice",
		},
		{
			name:       "quote subject",
			subject:    "Quotation for roof repairs",
			want:       CategorySupplierQuote,
			confidence: 75,
		},
		{
			name:       "payment in snippet",
			subject:    "Account",
			snippet:    "Remittance advice attached",
			want:       CategoryPayment,
			confidence: 50,
		},
		{
			name:       "booking at threshold",
			subject:    "Tuesday",
			snippet:    "I'd like to book a site visit",
			want:       CategoryBooking,
			confidence: 45,
		},
		{
			name:       "nothing matches",
			subject:    "Hello",
			snippet:    "just saying hi",
			want:       CategoryUncategorised,
			confidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Suggest(tt.subject, tt.snippet)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.confidence, got.Confidence)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, got.Reason)
			}
		})
	}
}

func TestSuggester_TieKeepsDeclarationOrder(t *testing.T) {
	a := PatternSet{queryPattern}
	s := &Suggester{
		Threshold: 10,
		Rules: []CategoryRule{
			{CategoryBooking, ScopeCombined, a, 50, "first"},
			{CategoryPayment, ScopeCombined, a, 50, "second"},
		},
	}
	got := s.Suggest("when?", "")
	assert.Equal(t, CategoryBooking, got.Value)
	assert.Equal(t, "first", got.Reason)
}

func TestSuggester_ConfigurableThreshold(t *testing.T) {
	s := NewSuggester(30)
	got := s.Suggest("Re: meeting?", "")
	assert.Equal(t, CategoryClientQuery, got.Value)
	assert.Equal(t, 40, got.Confidence)
}
