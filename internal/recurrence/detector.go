// Package recurrence detects repeating payments in a transaction history
// and predicts their upcoming occurrences.
package recurrence

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/caioniehues/obsidian-money-manager/internal/model"
	"github.com/caioniehues/obsidian-money-manager/internal/stats"
	"github.com/caioniehues/obsidian-money-manager/internal/textutil"
)

// Detection thresholds. A group must clear all of them before it is
// reported as a recurring pattern.
const (
	minOccurrences      = 2
	intervalTolerance   = 0.20
	amountTolerance     = 0.15
	confidenceThreshold = 0.70
	similarityThreshold = 0.6

	defaultDaysAhead = 30
)

// Confidence weights: interval regularity dominates, amount stability and
// occurrence count share the rest. Occurrence count saturates at a year
// of monthly payments.
const (
	intervalWeight        = 0.4
	amountWeight          = 0.3
	occurrenceWeight      = 0.3
	occurrenceSaturation  = 12
	monthlyDateToleranceD = 5
	defaultDateToleranceD = 3
)

// Detector finds recurring payments. It holds no state between calls;
// detection is a pure function of the supplied history.
type Detector struct {
	clock func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock overrides the wall clock, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(d *Detector) {
		d.clock = clock
	}
}

// NewDetector creates a recurrence detector.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{clock: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// group collects transactions whose normalized descriptions match.
type group struct {
	base    string
	dates   []time.Time
	amounts []float64
}

// DetectPatterns groups the history by normalized description, measures
// the cadence and amount stability of each group, and returns every group
// that classifies as a recurring pattern, most confident first.
func (d *Detector) DetectPatterns(_ context.Context, transactions []model.Transaction) []model.RecurringPattern {
	groups := d.groupByDescription(transactions)

	var patterns []model.RecurringPattern
	for _, g := range groups {
		if len(g.dates) < minOccurrences {
			continue
		}
		if pattern := d.analyzeGroup(g); pattern != nil {
			patterns = append(patterns, *pattern)
		}
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Confidence != patterns[j].Confidence {
			return patterns[i].Confidence > patterns[j].Confidence
		}
		return patterns[i].NextExpectedDate.Before(patterns[j].NextExpectedDate)
	})

	return patterns
}

// PredictUpcoming forecasts occurrences of the given patterns within the
// next daysAhead days (30 when daysAhead <= 0), sorted by date.
func (d *Detector) PredictUpcoming(_ context.Context, patterns []model.RecurringPattern, daysAhead int) []model.PredictedTransaction {
	if daysAhead <= 0 {
		daysAhead = defaultDaysAhead
	}

	now := d.clock()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := today.AddDate(0, 0, daysAhead)

	var predictions []model.PredictedTransaction
	for _, pattern := range patterns {
		current := pattern.NextExpectedDate
		for !current.After(end) {
			if !current.Before(today) {
				predictions = append(predictions, model.PredictedTransaction{
					Date:        current,
					Description: predictionLabel(pattern.Type),
					// Real category association is a known limitation;
					// recurring charges are most commonly subscriptions.
					Category:    "Subscriptions",
					Period:      pattern.Type,
					Amount:      pattern.ExpectedAmount,
					Confidence:  pattern.Confidence,
					IsRecurring: true,
					BasedOn:     fmt.Sprintf("pattern_%s_%d", pattern.Type, pattern.IntervalDays),
				})
			}
			next := advance(current, pattern.Type)
			if !next.After(current) {
				break
			}
			current = next
		}
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Date.Before(predictions[j].Date)
	})

	return predictions
}

// MatchPattern returns the first pattern the transaction plausibly
// belongs to: amount within tolerance of the expected amount and date
// within a few days of the next expected occurrence. Returns nil when
// nothing matches.
func (d *Detector) MatchPattern(_ context.Context, txn model.Transaction, patterns []model.RecurringPattern) *model.RecurringPattern {
	for i := range patterns {
		if d.matches(txn, &patterns[i]) {
			return &patterns[i]
		}
	}
	return nil
}

// UpdatePattern folds a confirmed occurrence into a pattern, recomputing
// the expected amount, variance, next expected date, and confidence. The
// input pattern is not modified.
func (d *Detector) UpdatePattern(_ context.Context, pattern model.RecurringPattern, txn model.Transaction) model.RecurringPattern {
	updated := pattern
	updated.Occurrences = append(append([]time.Time(nil), pattern.Occurrences...), txn.Date)
	updated.Amounts = append(append([]float64(nil), pattern.Amounts...), txn.Amount)

	updated.ExpectedAmount = stats.Mean(updated.Amounts)
	updated.AmountVariance = stats.StdDev(updated.Amounts)

	last := updated.Occurrences[len(updated.Occurrences)-1]
	updated.NextExpectedDate = last.AddDate(0, 0, updated.IntervalDays)

	intervals := dayIntervals(updated.Occurrences)
	intervalConsistency := consistency(intervals, float64(updated.IntervalDays), intervalTolerance)
	amountConsistency := consistency(updated.Amounts, updated.ExpectedAmount, amountTolerance)
	updated.Confidence = confidence(intervalConsistency, amountConsistency, len(updated.Occurrences))

	return updated
}

func (d *Detector) groupByDescription(transactions []model.Transaction) []*group {
	sorted := make([]model.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		if err := txn.Validate(); err != nil {
			slog.Debug("skipping malformed transaction", "id", txn.ID, "error", err)
			continue
		}
		sorted = append(sorted, txn)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var groups []*group
	for _, txn := range sorted {
		base := textutil.NormalizeForGrouping(txn.Description)

		found := false
		for _, g := range groups {
			if textutil.Similar(base, g.base, similarityThreshold) {
				g.dates = append(g.dates, txn.Date)
				g.amounts = append(g.amounts, txn.Amount)
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, &group{
				base:    base,
				dates:   []time.Time{txn.Date},
				amounts: []float64{txn.Amount},
			})
		}
	}

	return groups
}

func (d *Detector) analyzeGroup(g *group) *model.RecurringPattern {
	intervals := dayIntervals(g.dates)
	avgInterval := stats.Mean(intervals)
	if avgInterval == 0 {
		return nil
	}

	periodType := classifyInterval(avgInterval)
	if periodType == "" {
		return nil
	}

	intervalConsistency := consistency(intervals, avgInterval, intervalTolerance)
	amountConsistency := consistency(g.amounts, stats.Mean(g.amounts), amountTolerance)

	score := confidence(intervalConsistency, amountConsistency, len(g.dates))
	if score < confidenceThreshold {
		return nil
	}

	interval := int(math.Round(avgInterval))
	last := g.dates[len(g.dates)-1]

	return &model.RecurringPattern{
		Type:             periodType,
		IntervalDays:     interval,
		ExpectedAmount:   stats.Mean(g.amounts),
		AmountVariance:   stats.StdDev(g.amounts),
		NextExpectedDate: last.AddDate(0, 0, interval),
		Confidence:       score,
		Occurrences:      append([]time.Time(nil), g.dates...),
		Amounts:          append([]float64(nil), g.amounts...),
	}
}

func (d *Detector) matches(txn model.Transaction, pattern *model.RecurringPattern) bool {
	if pattern.ExpectedAmount <= 0 {
		return false
	}
	deviation := math.Abs(txn.Amount-pattern.ExpectedAmount) / pattern.ExpectedAmount
	if deviation > amountTolerance {
		return false
	}

	daysDiff := math.Abs(txn.Date.Sub(pattern.NextExpectedDate).Hours() / 24)

	tolerance := float64(defaultDateToleranceD)
	switch pattern.Type {
	case model.PeriodMonthly, model.PeriodQuarterly, model.PeriodAnnual:
		tolerance = float64(monthlyDateToleranceD)
	}

	return daysDiff <= tolerance
}

// classifyInterval maps an average day interval onto a cadence. Intervals
// outside every band mean the group does not recur on a useful schedule.
func classifyInterval(avg float64) model.PeriodType {
	switch {
	case avg >= 1 && avg <= 2:
		return model.PeriodDaily
	case avg >= 6 && avg <= 8:
		return model.PeriodWeekly
	case avg >= 13 && avg <= 15:
		return model.PeriodBiweekly
	case avg >= 25 && avg <= 35:
		return model.PeriodMonthly
	case avg >= 85 && avg <= 95:
		return model.PeriodQuarterly
	case avg >= 360 && avg <= 370:
		return model.PeriodAnnual
	default:
		return ""
	}
}

// dayIntervals returns the whole-day gaps between consecutive dates.
func dayIntervals(dates []time.Time) []float64 {
	var intervals []float64
	for i := 1; i < len(dates); i++ {
		days := dates[i].Sub(dates[i-1]).Hours() / 24
		intervals = append(intervals, math.Round(days))
	}
	return intervals
}

// consistency is the fraction of values within tolerance of the reference.
func consistency(values []float64, reference, tolerance float64) float64 {
	if len(values) == 0 || reference == 0 {
		return 0
	}
	consistent := 0
	for _, v := range values {
		if math.Abs(v-reference)/reference <= tolerance {
			consistent++
		}
	}
	return float64(consistent) / float64(len(values))
}

func confidence(intervalConsistency, amountConsistency float64, occurrences int) float64 {
	occurrenceScore := math.Min(1, float64(occurrences)/occurrenceSaturation)
	return intervalConsistency*intervalWeight +
		amountConsistency*amountWeight +
		occurrenceScore*occurrenceWeight
}

// advance steps a date forward one period using calendar arithmetic.
// Month-based periods clamp the day-of-month instead of rolling over.
func advance(t time.Time, period model.PeriodType) time.Time {
	switch period {
	case model.PeriodDaily:
		return t.AddDate(0, 0, 1)
	case model.PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case model.PeriodBiweekly:
		return t.AddDate(0, 0, 14)
	case model.PeriodMonthly:
		return addMonthsClamped(t, 1)
	case model.PeriodQuarterly:
		return addMonthsClamped(t, 3)
	case model.PeriodAnnual:
		return addMonthsClamped(t, 12)
	default:
		return t
	}
}

// addMonthsClamped adds months keeping the day-of-month, clamping to the
// target month's last day (Jan 31 + 1 month is Feb 28/29, never Mar 2).
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := daysInMonth(first.Year(), first.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func predictionLabel(period model.PeriodType) string {
	labels := map[model.PeriodType]string{
		model.PeriodDaily:     "Daily",
		model.PeriodWeekly:    "Weekly",
		model.PeriodBiweekly:  "Bi-weekly",
		model.PeriodMonthly:   "Monthly",
		model.PeriodQuarterly: "Quarterly",
		model.PeriodAnnual:    "Annual",
	}
	label, ok := labels[period]
	if !ok {
		return "Recurring payment"
	}
	return label + " recurring payment"
}
