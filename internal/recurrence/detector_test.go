package recurrence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caioniehues/obsidian-money-manager/internal/model"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func expense(id, description string, amount float64, when time.Time) model.Transaction {
	return model.Transaction{
		ID:          id,
		Date:        when,
		Description: description,
		Amount:      amount,
		Type:        model.TypeExpense,
		Status:      model.StatusPaid,
		Category:    "Subscriptions",
	}
}

// monthlySeries builds n occurrences of a charge on the same day of
// consecutive months.
func monthlySeries(description string, amount float64, n int) []model.Transaction {
	txns := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		when := date(2024, time.January+time.Month(i), 15)
		txns = append(txns, expense(fmt.Sprintf("%s-%d", description, i), description, amount, when))
	}
	return txns
}

func TestDetectPatterns_MonthlySubscription(t *testing.T) {
	detector := NewDetector()
	txns := monthlySeries("NETFLIX.COM", 15.99, 6)

	patterns := detector.DetectPatterns(context.Background(), txns)

	require.Len(t, patterns, 1)
	p := patterns[0]
	assert.Equal(t, model.PeriodMonthly, p.Type)
	assert.Equal(t, 30, p.IntervalDays)
	assert.InDelta(t, 15.99, p.ExpectedAmount, 0.001)
	assert.InDelta(t, 0, p.AmountVariance, 0.001)
	assert.Len(t, p.Occurrences, 6)
	assert.Len(t, p.Amounts, 6)
	// Perfect intervals and amounts, half the occurrence saturation.
	assert.InDelta(t, 0.85, p.Confidence, 0.001)
	assert.Equal(t, date(2024, time.June, 15).AddDate(0, 0, 30), p.NextExpectedDate)
}

func TestDetectPatterns_Cadences(t *testing.T) {
	tests := []struct {
		name        string
		intervalDay int
		occurrences int
		wantType    model.PeriodType
		wantFound   bool
	}{
		{name: "weekly", intervalDay: 7, occurrences: 8, wantType: model.PeriodWeekly, wantFound: true},
		{name: "biweekly", intervalDay: 14, occurrences: 6, wantType: model.PeriodBiweekly, wantFound: true},
		{name: "quarterly", intervalDay: 90, occurrences: 4, wantType: model.PeriodQuarterly, wantFound: true},
		{name: "annual", intervalDay: 365, occurrences: 3, wantType: model.PeriodAnnual, wantFound: true},
		{name: "four day spacing fits no cadence", intervalDay: 4, occurrences: 10, wantFound: false},
		{name: "three week spacing fits no cadence", intervalDay: 21, occurrences: 6, wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector := NewDetector()

			var txns []model.Transaction
			start := date(2020, time.January, 10)
			for i := 0; i < tt.occurrences; i++ {
				when := start.AddDate(0, 0, i*tt.intervalDay)
				txns = append(txns, expense(fmt.Sprintf("gym-%d", i), "GYM MEMBERSHIP", 29.99, when))
			}

			patterns := detector.DetectPatterns(context.Background(), txns)

			if !tt.wantFound {
				assert.Empty(t, patterns)
				return
			}
			require.Len(t, patterns, 1)
			assert.Equal(t, tt.wantType, patterns[0].Type)
			assert.GreaterOrEqual(t, patterns[0].Confidence, 0.70)
		})
	}
}

func TestDetectPatterns_TwoOccurrencesSuffice(t *testing.T) {
	detector := NewDetector()
	txns := monthlySeries("SPOTIFY", 10.99, 2)

	patterns := detector.DetectPatterns(context.Background(), txns)

	require.Len(t, patterns, 1)
	assert.Equal(t, model.PeriodMonthly, patterns[0].Type)
	// 0.4 interval + 0.3 amount + 0.3 * 2/12 occurrences.
	assert.InDelta(t, 0.75, patterns[0].Confidence, 0.001)
}

func TestDetectPatterns_UnstableAmountsRejected(t *testing.T) {
	detector := NewDetector()

	amounts := []float64{80, 120, 95, 130, 70, 110}
	var txns []model.Transaction
	for i, amount := range amounts {
		when := date(2024, time.January+time.Month(i), 5)
		txns = append(txns, expense(fmt.Sprintf("elec-%d", i), "CITY ELECTRIC", amount, when))
	}

	patterns := detector.DetectPatterns(context.Background(), txns)
	assert.Empty(t, patterns)
}

func TestDetectPatterns_GroupsDecoratedDescriptions(t *testing.T) {
	detector := NewDetector()

	var txns []model.Transaction
	for i := 0; i < 5; i++ {
		when := date(2024, time.January+time.Month(i), 1)
		desc := fmt.Sprintf("NETFLIX.COM %02d/01/24 #%07d", int(when.Month()), 4521000+i)
		txns = append(txns, expense(fmt.Sprintf("nf-%d", i), desc, 15.99, when))
	}

	patterns := detector.DetectPatterns(context.Background(), txns)

	require.Len(t, patterns, 1)
	assert.Len(t, patterns[0].Occurrences, 5)
}

func TestDetectPatterns_SkipsMalformedTransactions(t *testing.T) {
	detector := NewDetector()

	txns := monthlySeries("HULU", 7.99, 4)
	txns = append(txns,
		model.Transaction{ID: "bad-1", Date: date(2024, time.May, 15), Description: "HULU"},    // zero amount
		model.Transaction{ID: "bad-2", Date: date(2024, time.June, 15), Amount: 7.99},          // empty description
		model.Transaction{ID: "bad-3", Date: date(2024, time.July, 15), Description: "HULU", Amount: -7.99},
	)

	patterns := detector.DetectPatterns(context.Background(), txns)

	require.Len(t, patterns, 1)
	assert.Len(t, patterns[0].Occurrences, 4)
}

func TestDetectPatterns_EmptyHistory(t *testing.T) {
	detector := NewDetector()
	assert.Empty(t, detector.DetectPatterns(context.Background(), nil))
}

func TestPredictUpcoming(t *testing.T) {
	clock := func() time.Time { return date(2024, time.June, 20) }
	detector := NewDetector(WithClock(clock))

	patterns := detector.DetectPatterns(context.Background(), monthlySeries("NETFLIX.COM", 15.99, 6))
	require.Len(t, patterns, 1)

	predictions := detector.PredictUpcoming(context.Background(), patterns, 30)

	require.Len(t, predictions, 1)
	pr := predictions[0]
	assert.Equal(t, patterns[0].NextExpectedDate, pr.Date)
	assert.Equal(t, "Monthly recurring payment", pr.Description)
	assert.Equal(t, "Subscriptions", pr.Category)
	assert.Equal(t, model.PeriodMonthly, pr.Period)
	assert.InDelta(t, 15.99, pr.Amount, 0.001)
	assert.True(t, pr.IsRecurring)
	assert.InDelta(t, patterns[0].Confidence, pr.Confidence, 0.001)
}

func TestPredictUpcoming_MonthEndClamps(t *testing.T) {
	clock := func() time.Time { return date(2024, time.January, 1) }
	detector := NewDetector(WithClock(clock))

	pattern := model.RecurringPattern{
		Type:             model.PeriodMonthly,
		IntervalDays:     30,
		ExpectedAmount:   1200,
		NextExpectedDate: date(2024, time.January, 31),
		Confidence:       0.8,
	}

	predictions := detector.PredictUpcoming(context.Background(), []model.RecurringPattern{pattern}, 60)

	require.Len(t, predictions, 2)
	assert.Equal(t, date(2024, time.January, 31), predictions[0].Date)
	// Jan 31 plus one month lands on leap-year Feb 29, not Mar 2.
	assert.Equal(t, date(2024, time.February, 29), predictions[1].Date)
}

func TestPredictUpcoming_PastDueNotRepeated(t *testing.T) {
	clock := func() time.Time { return date(2024, time.March, 10) }
	detector := NewDetector(WithClock(clock))

	pattern := model.RecurringPattern{
		Type:             model.PeriodWeekly,
		IntervalDays:     7,
		ExpectedAmount:   12,
		NextExpectedDate: date(2024, time.February, 26),
		Confidence:       0.9,
	}

	predictions := detector.PredictUpcoming(context.Background(), []model.RecurringPattern{pattern}, 14)

	// Feb 26 and Mar 4 are already past; only Mar 11 and Mar 18 remain.
	require.Len(t, predictions, 2)
	assert.Equal(t, date(2024, time.March, 11), predictions[0].Date)
	assert.Equal(t, date(2024, time.March, 18), predictions[1].Date)
}

func TestMatchPattern(t *testing.T) {
	detector := NewDetector()
	patterns := detector.DetectPatterns(context.Background(), monthlySeries("NETFLIX.COM", 15.99, 6))
	require.Len(t, patterns, 1)
	next := patterns[0].NextExpectedDate

	tests := []struct {
		name      string
		txn       model.Transaction
		wantMatch bool
	}{
		{
			name:      "on time and on amount",
			txn:       expense("m1", "NETFLIX.COM", 15.99, next),
			wantMatch: true,
		},
		{
			name:      "two days late within monthly tolerance",
			txn:       expense("m2", "NETFLIX.COM", 15.99, next.AddDate(0, 0, 2)),
			wantMatch: true,
		},
		{
			name:      "ten days late",
			txn:       expense("m3", "NETFLIX.COM", 15.99, next.AddDate(0, 0, 10)),
			wantMatch: false,
		},
		{
			name:      "amount off by half",
			txn:       expense("m4", "NETFLIX.COM", 25.99, next),
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := detector.MatchPattern(context.Background(), tt.txn, patterns)
			if tt.wantMatch {
				assert.NotNil(t, match)
			} else {
				assert.Nil(t, match)
			}
		})
	}
}

func TestUpdatePattern(t *testing.T) {
	detector := NewDetector()
	patterns := detector.DetectPatterns(context.Background(), monthlySeries("NETFLIX.COM", 15.99, 6))
	require.Len(t, patterns, 1)
	original := patterns[0]

	confirmed := expense("u1", "NETFLIX.COM", 15.99, date(2024, time.July, 14))
	updated := detector.UpdatePattern(context.Background(), original, confirmed)

	assert.Len(t, updated.Occurrences, 7)
	assert.Len(t, updated.Amounts, 7)
	assert.InDelta(t, 15.99, updated.ExpectedAmount, 0.001)
	assert.Equal(t, confirmed.Date.AddDate(0, 0, original.IntervalDays), updated.NextExpectedDate)
	assert.Greater(t, updated.Confidence, original.Confidence)

	// The input pattern must not be mutated.
	assert.Len(t, original.Occurrences, 6)
	assert.Len(t, original.Amounts, 6)
}
