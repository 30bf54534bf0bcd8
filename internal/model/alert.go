package model

// AlertType identifies which heuristic raised an anomaly alert.
type AlertType string

// Alert type constants.
const (
	AlertAmount    AlertType = "amount"
	AlertMerchant  AlertType = "merchant"
	AlertFrequency AlertType = "frequency"
	AlertDuplicate AlertType = "duplicate"
	AlertTime      AlertType = "time"
)

// Severity grades how strongly an alert should be surfaced.
type Severity string

// Severity constants.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AlertDetails carries the evidence behind an alert. Expected and Actual
// are pre-formatted for display; Deviation is set only for amount alerts.
type AlertDetails struct {
	Expected  string  `json:"expected,omitempty"`
	Actual    string  `json:"actual,omitempty"`
	Deviation float64 `json:"deviation,omitempty"`
}

// AnomalyAlert is an ephemeral per-query finding. Alerts are never
// persisted by the engines.
type AnomalyAlert struct {
	Type     AlertType    `json:"type"`
	Severity Severity     `json:"severity"`
	Message  string       `json:"message"`
	Details  AlertDetails `json:"details"`
}
