package model

// AlternativeSuggestion is a runner-up category with its score.
type AlternativeSuggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// CategorySuggestion is the categorizer's answer for a single candidate
// transaction. Reasons lists the sub-signals that individually cleared
// their significance thresholds.
type CategorySuggestion struct {
	Category     string                  `json:"category"`
	Confidence   float64                 `json:"confidence"`
	Reasons      []string                `json:"reasons"`
	Alternatives []AlternativeSuggestion `json:"alternative_suggestions,omitempty"`
}
