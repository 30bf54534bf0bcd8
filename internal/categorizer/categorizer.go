// Package categorizer learns category and merchant profiles from labeled
// transactions and suggests categories for new ones. It is the one engine
// with true online learning: profiles update per transaction instead of
// being rebuilt from history.
package categorizer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/caioniehues/obsidian-money-manager/internal/model"
	"github.com/caioniehues/obsidian-money-manager/internal/textutil"
)

const (
	// minConfidenceThreshold filters candidate categories before ranking.
	minConfidenceThreshold = 0.65
	// knownMerchantConfidence is the fixed score of a direct or alias
	// merchant-profile hit.
	knownMerchantConfidence = 0.9

	maxAlternatives = 3

	// Signal weights. Merchant identity is the strongest evidence.
	merchantWeight    = 0.4
	amountWeight      = 0.3
	descriptionWeight = 0.2
	temporalWeight    = 0.1

	// Per-signal reason thresholds.
	merchantReasonThreshold    = 0.5
	amountReasonThreshold      = 0.7
	descriptionReasonThreshold = 0.6
	temporalReasonThreshold    = 0.7

	// Pattern confidence seeds and merge behavior.
	descriptionSeedConfidence = 0.7
	amountSeedConfidence      = 0.6
	temporalSeedConfidence    = 0.5
	confidenceBump            = 0.02
	confidenceCap             = 0.95

	// Patterns seen at most this often are pruned after six months idle.
	pruneFrequencyFloor = 2
	pruneAfterMonths    = 6
)

// Statistics is a read-only diagnostic snapshot of the learned state.
type Statistics struct {
	CategoriesLearned    int     `json:"categories_learned"`
	MerchantsRecognized  int     `json:"merchants_recognized"`
	TotalPatternsLearned int     `json:"total_patterns_learned"`
	AvgConfidence        float64 `json:"avg_confidence"`
}

// Categorizer owns per-category and per-merchant profiles. An instance
// belongs to one logical session; LearnFromTransaction must not
// interleave with SuggestCategory on the same instance.
type Categorizer struct {
	clock      func() time.Time
	categories map[string]*CategoryProfile
	merchants  map[string]*MerchantProfile
}

// Option configures a Categorizer.
type Option func(*Categorizer)

// WithClock overrides the wall clock, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Categorizer) {
		c.clock = clock
	}
}

// NewCategorizer creates a categorizer, optionally rehydrated from a
// previously exported snapshot. The snapshot is copied; the caller keeps
// ownership of the passed value.
func NewCategorizer(snapshot *Snapshot, opts ...Option) *Categorizer {
	c := &Categorizer{
		clock:      time.Now,
		categories: make(map[string]*CategoryProfile),
		merchants:  make(map[string]*MerchantProfile),
	}
	if snapshot != nil {
		for name, profile := range snapshot.Categories {
			c.categories[name] = cloneCategoryProfile(profile)
		}
		for key, profile := range snapshot.Merchants {
			c.merchants[key] = cloneMerchantProfile(profile)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LearnFromTransaction folds a labeled transaction into the profiles.
// Income and uncategorized transactions are ignored without error;
// malformed transactions fail fast.
func (c *Categorizer) LearnFromTransaction(_ context.Context, txn model.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	if txn.Type != model.TypeExpense || txn.Category == "" {
		return nil
	}

	patterns := c.extractPatterns(txn)
	c.updateCategoryProfile(txn, patterns)
	c.updateMerchantProfile(txn.Description, txn.Category, txn.Amount)

	return nil
}

// SuggestCategory scores the candidate against every known category and
// returns the best suggestion with up to three runners-up, or nil when no
// category clears the confidence threshold. A zero date skips the
// temporal signal.
func (c *Categorizer) SuggestCategory(_ context.Context, description string, amount float64, date time.Time) (*model.CategorySuggestion, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, &model.InvalidTransactionError{Field: "amount", Reason: "must be positive and finite"}
	}
	if description == "" {
		return nil, &model.InvalidTransactionError{Field: "description", Reason: "must not be empty"}
	}

	type candidate struct {
		category string
		reasons  []string
		score    float64
	}
	var candidates []candidate

	// A known merchant is the strongest signal and short-circuits to a
	// fixed high confidence.
	if merchant := c.findMerchantMatch(description); merchant != nil {
		candidates = append(candidates, candidate{
			category: merchant.CommonCategory,
			score:    knownMerchantConfidence,
			reasons:  []string{fmt.Sprintf("Known merchant: %s", merchant.Name)},
		})
	}

	for _, name := range c.sortedCategoryNames() {
		profile := c.categories[name]
		score, reasons := c.scoreCategory(description, amount, date, profile)
		if score > minConfidenceThreshold {
			candidates = append(candidates, candidate{category: name, score: score, reasons: reasons})
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	top := candidates[0]
	suggestion := &model.CategorySuggestion{
		Category:   top.category,
		Confidence: top.score,
		Reasons:    top.reasons,
	}
	for _, alt := range candidates[1:] {
		if len(suggestion.Alternatives) == maxAlternatives {
			break
		}
		suggestion.Alternatives = append(suggestion.Alternatives, model.AlternativeSuggestion{
			Category:   alt.category,
			Confidence: alt.score,
		})
	}

	return suggestion, nil
}

// ExportProfiles returns a deep-copied, JSON-serializable snapshot of the
// learned state.
func (c *Categorizer) ExportProfiles() *Snapshot {
	snapshot := &Snapshot{
		Categories: make(map[string]*CategoryProfile, len(c.categories)),
		Merchants:  make(map[string]*MerchantProfile, len(c.merchants)),
	}
	for name, profile := range c.categories {
		snapshot.Categories[name] = cloneCategoryProfile(profile)
	}
	for key, profile := range c.merchants {
		snapshot.Merchants[key] = cloneMerchantProfile(profile)
	}
	return snapshot
}

// GetStatistics returns a diagnostic view of the learned state.
func (c *Categorizer) GetStatistics() Statistics {
	totalPatterns := 0
	totalConfidence := 0.0
	for _, profile := range c.categories {
		totalPatterns += len(profile.Patterns)
		for _, pattern := range profile.Patterns {
			totalConfidence += pattern.Confidence
		}
	}

	avgConfidence := 0.0
	if totalPatterns > 0 {
		avgConfidence = totalConfidence / float64(totalPatterns)
	}

	return Statistics{
		CategoriesLearned:    len(c.categories),
		MerchantsRecognized:  len(c.merchants),
		TotalPatternsLearned: totalPatterns,
		AvgConfidence:        avgConfidence,
	}
}

func (c *Categorizer) extractPatterns(txn model.Transaction) []Pattern {
	now := c.clock()
	var patterns []Pattern

	for _, word := range textutil.Tokenize(txn.Description) {
		patterns = append(patterns, Pattern{
			Type:        PatternDescription,
			Description: word,
			Frequency:   1,
			Confidence:  descriptionSeedConfidence,
			FirstSeen:   now,
			LastSeen:    now,
		})
	}

	patterns = append(patterns, Pattern{
		Type:       PatternAmount,
		AmountBand: amountBand(txn.Amount),
		Frequency:  1,
		Confidence: amountSeedConfidence,
		FirstSeen:  now,
		LastSeen:   now,
	})

	patterns = append(patterns, Pattern{
		Type: PatternTemporal,
		Temporal: &TemporalValue{
			DayOfWeek:  int(txn.Date.Weekday()),
			DayOfMonth: txn.Date.Day(),
			Hour:       txn.Date.Hour(),
		},
		Frequency:  1,
		Confidence: temporalSeedConfidence,
		FirstSeen:  now,
		LastSeen:   now,
	})

	return patterns
}

func (c *Categorizer) updateCategoryProfile(txn model.Transaction, patterns []Pattern) {
	now := c.clock()

	profile, ok := c.categories[txn.Category]
	if !ok {
		profile = &CategoryProfile{
			Name:              txn.Category,
			MerchantFrequency: make(map[string]int),
		}
		c.categories[txn.Category] = profile
	}

	profile.TotalTransactions++
	profile.LastUpdated = now

	n := float64(profile.TotalTransactions)
	oldAvg := profile.AvgAmount
	profile.AvgAmount = (oldAvg*(n-1) + txn.Amount) / n
	if profile.TotalTransactions == 1 {
		profile.MinAmount = txn.Amount
		profile.MaxAmount = txn.Amount
	} else {
		profile.MinAmount = math.Min(profile.MinAmount, txn.Amount)
		profile.MaxAmount = math.Max(profile.MaxAmount, txn.Amount)
	}

	// Incremental sum-of-squares recombination around the updated mean.
	diff := txn.Amount - profile.AvgAmount
	profile.StdDeviation = math.Sqrt(
		(profile.StdDeviation*profile.StdDeviation*(n-1) + diff*diff) / n,
	)

	profile.TimeDistribution.increment(txn.Date.Hour())
	profile.DayOfWeekDistribution[int(txn.Date.Weekday())]++
	dayOfMonth := txn.Date.Day() - 1
	if dayOfMonth > 30 {
		dayOfMonth = 30
	}
	profile.MonthlyDistribution[dayOfMonth]++

	profile.MerchantFrequency[textutil.MerchantKey(txn.Description)]++

	c.mergePatterns(profile, patterns, now)
	c.prunePatterns(profile, now)
}

// mergePatterns folds freshly extracted fragments into the profile,
// bumping frequency and confidence on exact (type, value) matches.
func (c *Categorizer) mergePatterns(profile *CategoryProfile, patterns []Pattern, now time.Time) {
	existing := make(map[string]int, len(profile.Patterns))
	for i, pattern := range profile.Patterns {
		existing[pattern.key()] = i
	}

	for _, pattern := range patterns {
		if i, ok := existing[pattern.key()]; ok {
			profile.Patterns[i].Frequency++
			profile.Patterns[i].LastSeen = now
			profile.Patterns[i].Confidence = math.Min(confidenceCap, profile.Patterns[i].Confidence+confidenceBump)
		} else {
			existing[pattern.key()] = len(profile.Patterns)
			profile.Patterns = append(profile.Patterns, pattern)
		}
	}
}

// prunePatterns drops rarely seen patterns that have been idle for six
// months.
func (c *Categorizer) prunePatterns(profile *CategoryProfile, now time.Time) {
	cutoff := now.AddDate(0, -pruneAfterMonths, 0)

	kept := profile.Patterns[:0]
	for _, pattern := range profile.Patterns {
		if pattern.Frequency > pruneFrequencyFloor || pattern.LastSeen.After(cutoff) {
			kept = append(kept, pattern)
		}
	}
	profile.Patterns = kept
}

func (c *Categorizer) updateMerchantProfile(description, category string, amount float64) {
	now := c.clock()
	key := textutil.MerchantKey(description)

	profile, ok := c.merchants[key]
	if !ok {
		c.merchants[key] = &MerchantProfile{
			Name:             key,
			Aliases:          []string{description},
			CommonCategory:   category,
			AvgAmount:        amount,
			TransactionCount: 1,
			LastSeen:         now,
		}
		return
	}

	profile.TransactionCount++
	n := float64(profile.TransactionCount)
	profile.AvgAmount = (profile.AvgAmount*(n-1) + amount) / n
	profile.LastSeen = now

	for _, alias := range profile.Aliases {
		if alias == description {
			return
		}
	}
	profile.Aliases = append(profile.Aliases, description)
}

// findMerchantMatch looks up a merchant profile by key, falling back to a
// containment scan over aliases.
func (c *Categorizer) findMerchantMatch(description string) *MerchantProfile {
	key := textutil.MerchantKey(description)
	if profile, ok := c.merchants[key]; ok {
		return profile
	}

	for _, merchantKey := range c.sortedMerchantKeys() {
		profile := c.merchants[merchantKey]
		for _, alias := range profile.Aliases {
			lowerAlias := strings.ToLower(alias)
			if strings.Contains(lowerAlias, key) || strings.Contains(key, lowerAlias) {
				return profile
			}
		}
	}

	return nil
}

func (c *Categorizer) scoreCategory(description string, amount float64, date time.Time, profile *CategoryProfile) (float64, []string) {
	var score float64
	var reasons []string

	merchantKey := textutil.MerchantKey(description)
	if freq := profile.MerchantFrequency[merchantKey]; freq > 0 {
		merchantScore := math.Min(1, float64(freq)/10)
		score += merchantScore * merchantWeight
		if merchantScore > merchantReasonThreshold {
			reasons = append(reasons, "Recognized merchant pattern")
		}
	}

	amountScore := c.scoreAmount(amount, profile)
	score += amountScore * amountWeight
	if amountScore > amountReasonThreshold {
		reasons = append(reasons, fmt.Sprintf("Typical amount range (%.0f-%.0f)", profile.MinAmount, profile.MaxAmount))
	}

	descScore := c.scoreDescription(description, profile)
	score += descScore * descriptionWeight
	if descScore > descriptionReasonThreshold {
		reasons = append(reasons, "Matching description patterns")
	}

	if !date.IsZero() {
		temporalScore := c.scoreTemporal(date, profile)
		score += temporalScore * temporalWeight
		if temporalScore > temporalReasonThreshold {
			reasons = append(reasons, "Typical time pattern")
		}
	}

	return score, reasons
}

// scoreAmount rates how typical the amount is for the category. Sparse
// profiles return a fixed low-confidence score regardless of amount.
func (c *Categorizer) scoreAmount(amount float64, profile *CategoryProfile) float64 {
	if profile.TotalTransactions < 3 {
		return 0.3
	}

	deviation := math.Abs(amount - profile.AvgAmount)
	switch {
	case deviation <= profile.StdDeviation:
		return 0.9
	case deviation <= 2*profile.StdDeviation:
		return 0.6
	case amount >= profile.MinAmount && amount <= profile.MaxAmount:
		return 0.4
	default:
		return 0.1
	}
}

func (c *Categorizer) scoreDescription(description string, profile *CategoryProfile) float64 {
	words := make(map[string]struct{})
	for _, word := range textutil.Tokenize(description) {
		words[word] = struct{}{}
	}

	matchCount := 0
	totalRelevant := 0
	for _, pattern := range profile.Patterns {
		if pattern.Type != PatternDescription {
			continue
		}
		totalRelevant += pattern.Frequency
		if _, ok := words[pattern.Description]; ok {
			matchCount += pattern.Frequency
		}
	}

	if totalRelevant == 0 {
		return 0
	}
	return math.Min(1, float64(matchCount)/math.Max(3, float64(totalRelevant)*0.3))
}

func (c *Categorizer) scoreTemporal(date time.Time, profile *CategoryProfile) float64 {
	dayFrequency := float64(profile.DayOfWeekDistribution[int(date.Weekday())])
	avgDayFrequency := float64(profile.TotalTransactions) / 7
	dayScore := math.Min(1, dayFrequency/math.Max(1, avgDayFrequency))

	timeScore := 0.0
	if total := profile.TimeDistribution.total(); total > 0 {
		timeScore = float64(profile.TimeDistribution.bucket(date.Hour())) / float64(total)
	}

	return dayScore*0.6 + timeScore*0.4
}

func (c *Categorizer) sortedCategoryNames() []string {
	names := make([]string, 0, len(c.categories))
	for name := range c.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Categorizer) sortedMerchantKeys() []string {
	keys := make([]string, 0, len(c.merchants))
	for key := range c.merchants {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func amountBand(amount float64) AmountBand {
	switch {
	case amount < 10:
		return BandMicro
	case amount < 50:
		return BandSmall
	case amount < 200:
		return BandMedium
	case amount < 1000:
		return BandLarge
	default:
		return BandExtraLarge
	}
}
