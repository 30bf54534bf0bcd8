package model

import "time"

// PeriodType classifies the cadence of a recurring payment.
type PeriodType string

// Period constants.
const (
	PeriodDaily     PeriodType = "daily"
	PeriodWeekly    PeriodType = "weekly"
	PeriodBiweekly  PeriodType = "biweekly"
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodAnnual    PeriodType = "annual"
)

// RecurringPattern describes a detected repeating payment. Occurrences and
// Amounts are kept in parallel so amount variance is computed from the
// true history rather than an approximation.
type RecurringPattern struct {
	NextExpectedDate time.Time   `json:"next_expected_date"`
	Type             PeriodType  `json:"type"`
	Occurrences      []time.Time `json:"occurrences"`
	Amounts          []float64   `json:"amounts"`
	IntervalDays     int         `json:"interval_days"`
	ExpectedAmount   float64     `json:"expected_amount"`
	AmountVariance   float64     `json:"amount_variance"`
	Confidence       float64     `json:"confidence"`
}

// PredictedTransaction is a forecast occurrence of a recurring pattern.
type PredictedTransaction struct {
	Date        time.Time  `json:"date"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	BasedOn     string     `json:"based_on,omitempty"`
	Period      PeriodType `json:"period"`
	Amount      float64    `json:"amount"`
	Confidence  float64    `json:"confidence"`
	IsRecurring bool       `json:"is_recurring"`
}
