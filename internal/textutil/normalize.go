// Package textutil provides merchant-key extraction, tokenization, and
// fuzzy description matching. Every engine matches descriptions through
// this package; a single implementation keeps their groupings consistent.
package textutil

import (
	"regexp"
	"strings"
)

var (
	prefixPattern  = regexp.MustCompile(`^(?i)(payment to|purchase at|from|at)\s+`)
	suffixPattern  = regexp.MustCompile(`(?i)\s+(debit|credit|card|payment|transaction)$`)
	trailingNumber = regexp.MustCompile(`\s+\d{4,}$`)
	trailingDate   = regexp.MustCompile(`\s+\d{1,2}/\d{1,2}/\d{2,4}$`)
	embeddedNumber = regexp.MustCompile(`\b\d{4,}\b`)
	embeddedDate   = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	punctuation    = regexp.MustCompile(`[^\w\s]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

const (
	maxKeyTokens    = 3
	minOverlapToken = 3 // only tokens longer than this count toward overlap
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {},
	"payment": {}, "transaction": {}, "card": {}, "debit": {},
	"credit": {}, "purchase": {}, "ref": {}, "trans": {},
}

// MerchantKey extracts a normalized, truncated key that groups
// transactions by likely payee. Deterministic and pure.
func MerchantKey(description string) string {
	cleaned := strings.ToLower(strings.TrimSpace(description))
	cleaned = prefixPattern.ReplaceAllString(cleaned, "")
	cleaned = suffixPattern.ReplaceAllString(cleaned, "")

	// Trailing transaction IDs and dates can stack ("STARBUCKS 4521
	// 12/01/24"), so strip until the tail is stable.
	for {
		next := trailingDate.ReplaceAllString(cleaned, "")
		next = trailingNumber.ReplaceAllString(next, "")
		if next == cleaned {
			break
		}
		cleaned = next
	}
	cleaned = strings.TrimSpace(cleaned)

	parts := strings.Fields(cleaned)
	if len(parts) > maxKeyTokens {
		parts = parts[:maxKeyTokens]
	}
	return strings.Join(parts, " ")
}

// Tokenize lower-cases a description, strips punctuation, and returns the
// remaining tokens with stop words and very short tokens removed.
func Tokenize(description string) []string {
	cleaned := punctuation.ReplaceAllString(strings.ToLower(description), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// Similar reports whether two already-normalized descriptions refer to
// the same thing: exact match, containment, or sufficient overlap of the
// longer tokens. The threshold is the required overlap fraction of the
// smaller token set.
func Similar(a, b string, threshold float64) bool {
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	overlap := 0
	for _, w := range wordsA {
		if len(w) <= minOverlapToken {
			continue
		}
		if _, ok := setB[w]; ok {
			overlap++
		}
	}

	smaller := len(wordsA)
	if len(wordsB) < smaller {
		smaller = len(wordsB)
	}
	return float64(overlap) >= float64(smaller)*threshold
}

// NormalizeForGrouping prepares a description for recurrence grouping:
// beyond lower-casing and punctuation removal it drops long numeric IDs
// and embedded date-like substrings, which vary between occurrences of
// the same recurring payment.
func NormalizeForGrouping(description string) string {
	cleaned := strings.ToLower(description)
	cleaned = embeddedDate.ReplaceAllString(cleaned, " ")
	cleaned = punctuation.ReplaceAllString(cleaned, " ")
	cleaned = embeddedNumber.ReplaceAllString(cleaned, " ")
	cleaned = whitespaceRuns.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
