package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerchantKey(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{
			name:        "plain merchant",
			description: "STARBUCKS",
			want:        "starbucks",
		},
		{
			name:        "prefix, id, and date all stripped",
			description: "Payment to STARBUCKS 4521 12/01/24",
			want:        "starbucks",
		},
		{
			name:        "suffix then trailing id",
			description: "at Chipotle 0042 Debit",
			want:        "chipotle",
		},
		{
			name:        "truncated to leading tokens",
			description: "WHOLEFDS MKT #10233 AUSTIN TX",
			want:        "wholefds mkt #10233",
		},
		{
			name:        "short alphanumeric trip codes survive",
			description: "UBER TRIP 5X2K3",
			want:        "uber trip 5x2k3",
		},
		{
			name:        "whitespace only",
			description: "   ",
			want:        "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MerchantKey(tt.description))
		})
	}
}

// The same payee must map to the same key no matter which statement
// decoration it arrives with.
func TestMerchantKey_StableAcrossDecorations(t *testing.T) {
	variants := []string{
		"STARBUCKS",
		"Payment to STARBUCKS",
		"STARBUCKS 4521",
		"Payment to STARBUCKS 4521 12/01/24",
	}

	for _, v := range variants {
		assert.Equal(t, "starbucks", MerchantKey(v), "variant %q", v)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        []string
	}{
		{
			name:        "stop words and short tokens dropped",
			description: "Payment to The Coffee Shop",
			want:        []string{"coffee", "shop"},
		},
		{
			name:        "punctuation split",
			description: "UBER TRIP HELP.UBER.COM",
			want:        []string{"uber", "trip", "help", "uber", "com"},
		},
		{
			name:        "empty input",
			description: "",
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.description))
		})
	}
}

func TestSimilar(t *testing.T) {
	tests := []struct {
		name      string
		a, b      string
		threshold float64
		want      bool
	}{
		{name: "identical", a: "netflix com", b: "netflix com", threshold: 0.6, want: true},
		{name: "containment", a: "netflix com", b: "netflix", threshold: 0.6, want: true},
		{name: "token overlap above threshold", a: "whole foods market", b: "whole foods mkt", threshold: 0.6, want: true},
		{name: "shared brand below threshold", a: "spotify premium", b: "spotify family", threshold: 0.6, want: false},
		{name: "shared brand at lower threshold", a: "spotify premium", b: "spotify family", threshold: 0.5, want: true},
		{name: "unrelated", a: "shell gas", b: "whole foods", threshold: 0.6, want: false},
		{name: "one side empty", a: "netflix", b: "", threshold: 0.6, want: false},
		{name: "both empty", a: "", b: "", threshold: 0.6, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Similar(tt.a, tt.b, tt.threshold))
		})
	}
}

func TestNormalizeForGrouping(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{
			name:        "dates and long ids removed",
			description: "NETFLIX.COM 12/01/24 #4521998",
			want:        "netflix com",
		},
		{
			name:        "short numbers kept",
			description: "Gym 24 Hour Fitness",
			want:        "gym 24 hour fitness",
		},
		{
			name:        "date inside punctuation",
			description: "RENT (01/01/2024) ACH",
			want:        "rent ach",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeForGrouping(tt.description))
		})
	}
}
