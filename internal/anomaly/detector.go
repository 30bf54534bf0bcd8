// Package anomaly scores candidate transactions against statistical
// profiles built from historical spending, flagging unusual amounts,
// merchants, timing, duplicates, and bursts.
package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/caioniehues/obsidian-money-manager/internal/model"
	"github.com/caioniehues/obsidian-money-manager/internal/stats"
	"github.com/caioniehues/obsidian-money-manager/internal/textutil"
)

const (
	zScoreThreshold      = 2.5
	duplicateWindowHours = 24
	maxRecentCached      = 100
	recentWindowDays     = 7
	minProfileSize       = 5
	similarityThreshold  = 0.7
)

// suspiciousTerms flag merchants that warrant a second look regardless of
// spending profiles. Crypto exchanges are exempt inside Investments.
var suspiciousTerms = []string{
	"casino", "gambling", "lottery", "betting",
	"payday", "loan", "advance",
	"crypto", "bitcoin", "binance",
}

var cryptoTerms = map[string]struct{}{
	"crypto": {}, "bitcoin": {}, "binance": {},
}

// spendingProfile summarizes one category's paid-expense history. Rebuilt
// wholesale on every BuildProfiles call, never updated incrementally.
type spendingProfile struct {
	category         string
	mean             float64
	stdDev           float64
	median           float64
	percentile95     float64
	minAmount        float64
	maxAmount        float64
	typicalTimeOfDay [24]int
	typicalDayOfWeek [7]int
	knownMerchants   map[string]struct{}
}

// VelocityProfile bounds how fast spending normally happens. Derived from
// daily groupings of the expense history; conservative defaults apply
// before the first build.
type VelocityProfile struct {
	MaxDailyTransactions     int     `json:"max_daily_transactions"`
	MaxHourlyTransactions    int     `json:"max_hourly_transactions"`
	MaxDailyAmount           float64 `json:"max_daily_amount"`
	TypicalDailyTransactions float64 `json:"typical_daily_transactions"`
	TypicalDailyAmount       float64 `json:"typical_daily_amount"`
}

func defaultVelocityProfile() VelocityProfile {
	return VelocityProfile{
		MaxDailyTransactions:     20,
		MaxHourlyTransactions:    5,
		MaxDailyAmount:           1000,
		TypicalDailyTransactions: 5,
		TypicalDailyAmount:       200,
	}
}

// Statistics is a read-only diagnostic snapshot of the detector.
type Statistics struct {
	ProfilesBuilt     int             `json:"profiles_built"`
	CategoriesCovered []string        `json:"categories_covered"`
	KnownMerchants    int             `json:"known_merchants"`
	VelocityLimits    VelocityProfile `json:"velocity_limits"`
}

// Detector holds per-category spending profiles, a global velocity
// profile, and a short cache of recent transactions for duplicate checks.
// A detector instance belongs to a single caller context; BuildProfiles
// must not interleave with DetectAnomalies on the same instance.
type Detector struct {
	clock    func() time.Time
	profiles map[string]*spendingProfile
	recent   []model.Transaction
	velocity VelocityProfile
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock overrides the wall clock, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(d *Detector) {
		d.clock = clock
	}
}

// NewDetector creates an anomaly detector with conservative velocity
// defaults. Call BuildProfiles before querying.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		clock:    time.Now,
		profiles: make(map[string]*spendingProfile),
		velocity: defaultVelocityProfile(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BuildProfiles replaces all detector state from the supplied history.
// Categories need at least five paid expense transactions to earn a
// profile. Malformed transactions are skipped, not fatal.
func (d *Detector) BuildProfiles(_ context.Context, transactions []model.Transaction) {
	d.profiles = make(map[string]*spendingProfile)

	categoryGroups := make(map[string][]model.Transaction)
	var valid []model.Transaction
	for _, txn := range transactions {
		if err := txn.Validate(); err != nil {
			slog.Debug("skipping malformed transaction", "id", txn.ID, "error", err)
			continue
		}
		valid = append(valid, txn)
		if txn.Type == model.TypeExpense && txn.Status == model.StatusPaid {
			categoryGroups[txn.Category] = append(categoryGroups[txn.Category], txn)
		}
	}

	for category, group := range categoryGroups {
		if len(group) >= minProfileSize {
			d.profiles[category] = buildSpendingProfile(category, group)
		}
	}

	d.buildVelocityProfile(valid)
	d.cacheRecent(valid)
}

// DetectAnomalies scores a candidate transaction against every heuristic
// in a fixed order and returns all alerts that fire. Income transactions
// short-circuit to no alerts. The velocity check runs only when the
// caller supplies the full history.
func (d *Detector) DetectAnomalies(_ context.Context, txn model.Transaction, allTransactions []model.Transaction) ([]model.AnomalyAlert, error) {
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if txn.Type == model.TypeIncome {
		return nil, nil
	}

	var alerts []model.AnomalyAlert
	appendAlert := func(alert *model.AnomalyAlert) {
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	appendAlert(d.detectAmountAnomaly(txn))
	appendAlert(d.detectMerchantAnomaly(txn))
	appendAlert(d.detectTimeAnomaly(txn))
	appendAlert(d.detectDuplicate(txn))
	if allTransactions != nil {
		appendAlert(d.detectVelocityAnomaly(txn, allTransactions))
	}
	appendAlert(d.detectCategoryAnomaly(txn))

	return alerts, nil
}

// GetStatistics returns a diagnostic view of the built profiles.
func (d *Detector) GetStatistics() Statistics {
	categories := make([]string, 0, len(d.profiles))
	merchants := 0
	for category, profile := range d.profiles {
		categories = append(categories, category)
		merchants += len(profile.knownMerchants)
	}
	sort.Strings(categories)

	return Statistics{
		ProfilesBuilt:     len(d.profiles),
		CategoriesCovered: categories,
		KnownMerchants:    merchants,
		VelocityLimits:    d.velocity,
	}
}

func (d *Detector) detectAmountAnomaly(txn model.Transaction) *model.AnomalyAlert {
	profile, ok := d.profiles[txn.Category]
	if !ok || profile.stdDev == 0 {
		return nil
	}

	zScore := math.Abs(txn.Amount-profile.mean) / profile.stdDev
	if zScore > zScoreThreshold {
		severity := model.SeverityLow
		switch {
		case zScore > 4:
			severity = model.SeverityHigh
		case zScore > 3:
			severity = model.SeverityMedium
		}

		return &model.AnomalyAlert{
			Type:     model.AlertAmount,
			Severity: severity,
			Message:  fmt.Sprintf("Unusual amount for %s", txn.Category),
			Details: model.AlertDetails{
				Expected:  fmt.Sprintf("%.2f", profile.mean),
				Actual:    fmt.Sprintf("%.2f", txn.Amount),
				Deviation: zScore,
			},
		}
	}

	if txn.Amount > profile.maxAmount*1.5 {
		return &model.AnomalyAlert{
			Type:     model.AlertAmount,
			Severity: model.SeverityHigh,
			Message:  fmt.Sprintf("Amount exceeds historical maximum for %s", txn.Category),
			Details: model.AlertDetails{
				Expected:  fmt.Sprintf("%.2f", profile.maxAmount),
				Actual:    fmt.Sprintf("%.2f", txn.Amount),
				Deviation: txn.Amount / profile.maxAmount,
			},
		}
	}

	return nil
}

func (d *Detector) detectMerchantAnomaly(txn model.Transaction) *model.AnomalyAlert {
	merchantKey := textutil.MerchantKey(txn.Description)

	if profile, ok := d.profiles[txn.Category]; ok {
		if _, known := profile.knownMerchants[merchantKey]; !known && txn.Amount > profile.mean*2 {
			return &model.AnomalyAlert{
				Type:     model.AlertMerchant,
				Severity: model.SeverityMedium,
				Message:  fmt.Sprintf("New merchant in %s category", txn.Category),
				Details: model.AlertDetails{
					Expected: strings.Join(sampleMerchants(profile.knownMerchants, 3), ", "),
					Actual:   merchantKey,
				},
			}
		}
	}

	if isSuspiciousMerchant(merchantKey, txn.Category) {
		return &model.AnomalyAlert{
			Type:     model.AlertMerchant,
			Severity: model.SeverityHigh,
			Message:  "Potentially suspicious merchant",
			Details:  model.AlertDetails{Actual: merchantKey},
		}
	}

	return nil
}

func (d *Detector) detectTimeAnomaly(txn model.Transaction) *model.AnomalyAlert {
	profile, ok := d.profiles[txn.Category]
	if !ok {
		return nil
	}

	hour := txn.Date.Hour()
	dayOfWeek := int(txn.Date.Weekday())

	totalByHour := 0
	for _, count := range profile.typicalTimeOfDay {
		totalByHour += count
	}
	if totalByHour > 10 && profile.typicalTimeOfDay[hour] == 0 {
		return &model.AnomalyAlert{
			Type:     model.AlertTime,
			Severity: model.SeverityLow,
			Message:  fmt.Sprintf("Unusual time for %s transaction", txn.Category),
			Details:  model.AlertDetails{Actual: fmt.Sprintf("%d:00", hour)},
		}
	}

	totalByDay := 0
	for _, count := range profile.typicalDayOfWeek {
		totalByDay += count
	}
	if totalByDay > 10 && profile.typicalDayOfWeek[dayOfWeek] == 0 && txn.Amount > profile.mean*2 {
		return &model.AnomalyAlert{
			Type:     model.AlertTime,
			Severity: model.SeverityLow,
			Message:  fmt.Sprintf("Unusual day for large %s transaction", txn.Category),
			Details:  model.AlertDetails{Actual: txn.Date.Weekday().String()},
		}
	}

	return nil
}

func (d *Detector) detectDuplicate(txn model.Transaction) *model.AnomalyAlert {
	for _, recent := range d.recent {
		if recent.ID != "" && recent.ID == txn.ID {
			continue
		}
		hoursDiff := math.Abs(txn.Date.Sub(recent.Date).Hours())
		if hoursDiff > duplicateWindowHours {
			continue
		}

		amountMatch := math.Abs(txn.Amount-recent.Amount) < 0.01
		descMatch := descriptionsAreSimilar(txn.Description, recent.Description)

		if amountMatch && descMatch {
			return &model.AnomalyAlert{
				Type:     model.AlertDuplicate,
				Severity: model.SeverityHigh,
				Message:  "Possible duplicate transaction detected",
				Details: model.AlertDetails{
					Expected: fmt.Sprintf("Previous: %s on %s", recent.Description, recent.Date.Format("Jan 02")),
					Actual:   fmt.Sprintf("Current: %s", txn.Description),
				},
			}
		}
	}

	return nil
}

func (d *Detector) detectVelocityAnomaly(txn model.Transaction, allTransactions []model.Transaction) *model.AnomalyAlert {
	now := txn.Date
	hourAgo := now.Add(-1 * time.Hour)
	dayAgo := now.Add(-24 * time.Hour)

	var lastHour []model.Transaction
	var dailyTotal float64
	for _, other := range allTransactions {
		if other.Type != model.TypeExpense {
			continue
		}
		if other.Date.After(hourAgo) && other.Date.Before(now) {
			lastHour = append(lastHour, other)
		}
		if other.Date.After(dayAgo) && other.Date.Before(now) {
			dailyTotal += other.Amount
		}
	}

	if len(lastHour) > d.velocity.MaxHourlyTransactions {
		return &model.AnomalyAlert{
			Type:     model.AlertFrequency,
			Severity: model.SeverityHigh,
			Message:  "Unusually high transaction frequency",
			Details: model.AlertDetails{
				Expected: fmt.Sprintf("%d", d.velocity.MaxHourlyTransactions),
				Actual:   fmt.Sprintf("%d", len(lastHour)),
			},
		}
	}

	if dailyTotal > d.velocity.MaxDailyAmount {
		return &model.AnomalyAlert{
			Type:     model.AlertFrequency,
			Severity: model.SeverityHigh,
			Message:  "Daily spending limit exceeded",
			Details: model.AlertDetails{
				Expected: fmt.Sprintf("%.2f", d.velocity.MaxDailyAmount),
				Actual:   fmt.Sprintf("%.2f", dailyTotal),
			},
		}
	}

	sameCategory := 0
	for _, other := range lastHour {
		if other.Category == txn.Category {
			sameCategory++
		}
	}
	if sameCategory >= 3 {
		return &model.AnomalyAlert{
			Type:     model.AlertFrequency,
			Severity: model.SeverityMedium,
			Message:  fmt.Sprintf("Multiple %s transactions in short time", txn.Category),
			Details:  model.AlertDetails{Actual: fmt.Sprintf("%d", sameCategory)},
		}
	}

	return nil
}

func (d *Detector) detectCategoryAnomaly(txn model.Transaction) *model.AnomalyAlert {
	// Housing and utility bills normally arrive once per calendar month.
	if txn.Category == "Housing" || txn.Category == "Utilities" {
		similarThisMonth := 0
		for _, recent := range d.recent {
			if recent.ID != "" && recent.ID == txn.ID {
				continue
			}
			if recent.Category != txn.Category {
				continue
			}
			if recent.Date.Year() != txn.Date.Year() || recent.Date.Month() != txn.Date.Month() {
				continue
			}
			if descriptionsAreSimilar(recent.Description, txn.Description) {
				similarThisMonth++
			}
		}

		if similarThisMonth > 0 {
			return &model.AnomalyAlert{
				Type:     model.AlertFrequency,
				Severity: model.SeverityMedium,
				Message:  fmt.Sprintf("Possible duplicate %s payment this month", txn.Category),
				Details: model.AlertDetails{
					Expected: "One payment per month",
					Actual:   fmt.Sprintf("%d similar payments", similarThisMonth+1),
				},
			}
		}
	}

	if txn.Category == "Entertainment" {
		weekday := txn.Date.Weekday()
		if weekday >= time.Monday && weekday <= time.Friday && txn.Amount > 100 {
			return &model.AnomalyAlert{
				Type:     model.AlertAmount,
				Severity: model.SeverityLow,
				Message:  "High entertainment spending on a weekday",
				Details:  model.AlertDetails{Actual: fmt.Sprintf("%.2f", txn.Amount)},
			}
		}
	}

	return nil
}

func buildSpendingProfile(category string, transactions []model.Transaction) *spendingProfile {
	amounts := make([]float64, 0, len(transactions))
	for _, txn := range transactions {
		amounts = append(amounts, txn.Amount)
	}
	sort.Float64s(amounts)

	mean := stats.Mean(amounts)
	profile := &spendingProfile{
		category:       category,
		mean:           mean,
		stdDev:         stats.StdDevWithMean(amounts, mean),
		median:         stats.Median(amounts),
		percentile95:   stats.Percentile(amounts, 0.95),
		minAmount:      amounts[0],
		maxAmount:      amounts[len(amounts)-1],
		knownMerchants: make(map[string]struct{}),
	}

	for _, txn := range transactions {
		profile.typicalTimeOfDay[txn.Date.Hour()]++
		profile.typicalDayOfWeek[int(txn.Date.Weekday())]++
		profile.knownMerchants[textutil.MerchantKey(txn.Description)] = struct{}{}
	}

	return profile
}

func (d *Detector) buildVelocityProfile(transactions []model.Transaction) {
	dailyGroups := make(map[string][]model.Transaction)
	for _, txn := range transactions {
		if txn.Type != model.TypeExpense {
			continue
		}
		key := txn.Date.Format("2006-01-02")
		dailyGroups[key] = append(dailyGroups[key], txn)
	}

	if len(dailyGroups) == 0 {
		return // keep defaults
	}

	var counts, sums []float64
	for _, group := range dailyGroups {
		counts = append(counts, float64(len(group)))
		var sum float64
		for _, txn := range group {
			sum += txn.Amount
		}
		sums = append(sums, sum)
	}

	maxCount := 0.0
	for _, c := range counts {
		maxCount = math.Max(maxCount, c)
	}
	maxSum := 0.0
	for _, s := range sums {
		maxSum = math.Max(maxSum, s)
	}

	d.velocity = VelocityProfile{
		MaxDailyTransactions: int(maxCount),
		// No hourly histogram is kept; a twelfth of the busiest day is a
		// workable ceiling for one hour.
		MaxHourlyTransactions:    int(math.Ceil(maxCount / 12)),
		MaxDailyAmount:           maxSum,
		TypicalDailyTransactions: stats.Mean(counts),
		TypicalDailyAmount:       stats.Mean(sums),
	}
}

// cacheRecent keeps the newest transactions of the trailing week for
// duplicate detection. The window is anchored at build time; rebuild
// before duplicate checks in long-running sessions.
func (d *Detector) cacheRecent(transactions []model.Transaction) {
	cutoff := d.clock().AddDate(0, 0, -recentWindowDays)

	var recent []model.Transaction
	for _, txn := range transactions {
		if txn.Date.After(cutoff) {
			recent = append(recent, txn)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Date.After(recent[j].Date)
	})
	if len(recent) > maxRecentCached {
		recent = recent[:maxRecentCached]
	}
	d.recent = recent
}

func descriptionsAreSimilar(a, b string) bool {
	return textutil.Similar(textutil.MerchantKey(a), textutil.MerchantKey(b), similarityThreshold)
}

func sampleMerchants(merchants map[string]struct{}, n int) []string {
	keys := make([]string, 0, len(merchants))
	for key := range merchants {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func isSuspiciousMerchant(merchantKey, category string) bool {
	lower := strings.ToLower(merchantKey)
	for _, term := range suspiciousTerms {
		if !strings.Contains(lower, term) {
			continue
		}
		if _, crypto := cryptoTerms[term]; crypto && category == "Investments" {
			continue
		}
		return true
	}
	return false
}
