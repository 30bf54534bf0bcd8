package categorizer

import (
	"fmt"
	"time"
)

// PatternType tags which fragment of a transaction a learned pattern
// describes.
type PatternType string

// Pattern type constants.
const (
	PatternDescription PatternType = "description"
	PatternAmount      PatternType = "amount"
	PatternTemporal    PatternType = "temporal"
)

// AmountBand buckets transaction amounts into coarse ranges.
type AmountBand string

// Amount band constants.
const (
	BandMicro      AmountBand = "micro"       // < 10
	BandSmall      AmountBand = "small"       // < 50
	BandMedium     AmountBand = "medium"      // < 200
	BandLarge      AmountBand = "large"       // < 1000
	BandExtraLarge AmountBand = "extra-large" // >= 1000
)

// TemporalValue is the payload of a temporal pattern.
type TemporalValue struct {
	DayOfWeek  int `json:"day_of_week"`
	DayOfMonth int `json:"day_of_month"`
	Hour       int `json:"hour"`
}

// Pattern is a learned fragment of category evidence. Exactly one payload
// field is set, selected by Type.
type Pattern struct {
	FirstSeen   time.Time      `json:"first_seen"`
	LastSeen    time.Time      `json:"last_seen"`
	Type        PatternType    `json:"type"`
	Description string         `json:"description,omitempty"`
	AmountBand  AmountBand     `json:"amount_band,omitempty"`
	Temporal    *TemporalValue `json:"temporal,omitempty"`
	Frequency   int            `json:"frequency"`
	Confidence  float64        `json:"confidence"`
}

// key identifies a pattern for exact-match merging.
func (p Pattern) key() string {
	switch p.Type {
	case PatternDescription:
		return "description:" + p.Description
	case PatternAmount:
		return "amount:" + string(p.AmountBand)
	case PatternTemporal:
		if p.Temporal == nil {
			return "temporal:"
		}
		return fmt.Sprintf("temporal:%d-%d-%d", p.Temporal.DayOfWeek, p.Temporal.DayOfMonth, p.Temporal.Hour)
	default:
		return string(p.Type)
	}
}

// TimeDistribution counts transactions by coarse time of day.
type TimeDistribution struct {
	Morning   int `json:"morning"`   // 6-12
	Afternoon int `json:"afternoon"` // 12-18
	Evening   int `json:"evening"`   // 18-24
	Night     int `json:"night"`     // 0-6
}

func (t *TimeDistribution) total() int {
	return t.Morning + t.Afternoon + t.Evening + t.Night
}

// bucket returns the count for the bucket the hour falls into.
func (t *TimeDistribution) bucket(hour int) int {
	switch {
	case hour >= 6 && hour < 12:
		return t.Morning
	case hour >= 12 && hour < 18:
		return t.Afternoon
	case hour >= 18 && hour < 24:
		return t.Evening
	default:
		return t.Night
	}
}

func (t *TimeDistribution) increment(hour int) {
	switch {
	case hour >= 6 && hour < 12:
		t.Morning++
	case hour >= 12 && hour < 18:
		t.Afternoon++
	case hour >= 18 && hour < 24:
		t.Evening++
	default:
		t.Night++
	}
}

// CategoryProfile aggregates everything learned about one category. It is
// created lazily on the first labeled transaction and mutated
// incrementally on every subsequent one; profiles are never deleted.
type CategoryProfile struct {
	LastUpdated           time.Time        `json:"last_updated"`
	Name                  string           `json:"name"`
	MerchantFrequency     map[string]int   `json:"merchant_frequency"`
	Patterns              []Pattern        `json:"patterns"`
	AvgAmount             float64          `json:"avg_amount"`
	StdDeviation          float64          `json:"std_deviation"`
	MinAmount             float64          `json:"min_amount"`
	MaxAmount             float64          `json:"max_amount"`
	TimeDistribution      TimeDistribution `json:"time_distribution"`
	DayOfWeekDistribution [7]int           `json:"day_of_week_distribution"`
	MonthlyDistribution   [31]int          `json:"monthly_distribution"`
	TotalTransactions     int              `json:"total_transactions"`
}

// MerchantProfile aggregates everything learned about one merchant key.
type MerchantProfile struct {
	LastSeen         time.Time `json:"last_seen"`
	Name             string    `json:"name"`
	CommonCategory   string    `json:"common_category"`
	Aliases          []string  `json:"aliases"`
	AvgAmount        float64   `json:"avg_amount"`
	TransactionCount int       `json:"transaction_count"`
}

// Snapshot is the JSON-serializable persistence shape. A categorizer can
// be reconstructed from an exported snapshot via NewCategorizer.
type Snapshot struct {
	Categories map[string]*CategoryProfile `json:"categories"`
	Merchants  map[string]*MerchantProfile `json:"merchants"`
}

func cloneCategoryProfile(p *CategoryProfile) *CategoryProfile {
	clone := *p
	clone.MerchantFrequency = make(map[string]int, len(p.MerchantFrequency))
	for k, v := range p.MerchantFrequency {
		clone.MerchantFrequency[k] = v
	}
	clone.Patterns = make([]Pattern, len(p.Patterns))
	copy(clone.Patterns, p.Patterns)
	for i := range clone.Patterns {
		if clone.Patterns[i].Temporal != nil {
			temporal := *clone.Patterns[i].Temporal
			clone.Patterns[i].Temporal = &temporal
		}
	}
	return &clone
}

func cloneMerchantProfile(p *MerchantProfile) *MerchantProfile {
	clone := *p
	clone.Aliases = append([]string(nil), p.Aliases...)
	return &clone
}
