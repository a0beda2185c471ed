package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"debtster-dashboard/internal/clients"
	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/logger"
	"debtster-dashboard/internal/repository"

	"go.uber.org/zap"
)

type AnalyticsRepository interface {
	CaseTotals(ctx context.Context) (repository.CaseTotals, error)
	ActiveAging(ctx context.Context) ([]repository.AgingRow, error)
}

type CompletedPaymentLister interface {
	ListCompleted(ctx context.Context) ([]domain.Payment, error)
}

// JSONCache is the subset of the redis client the aggregator needs.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type CoreMetrics struct {
	PortfolioValue     int64   `json:"portfolio_value"`
	TotalDebtAmount    int64   `json:"total_debt_amount"`
	TotalRemainingDebt int64   `json:"total_remaining_debt"`
	RecoveredValue     int64   `json:"recovered_value"`
	RecoveryRate       float64 `json:"recovery_rate"`
	ActiveCases        int64   `json:"active_cases"`
}

type AgingBucket struct {
	Label string `json:"bracket"`
	Value int64  `json:"value"`
	Count int64  `json:"count"`
}

// TrendPoint keys the period as "month" for both granularities; yearly
// points carry "2006" labels.
type TrendPoint struct {
	Period string `json:"month"`
	Amount int64  `json:"amount"`
}

type PriorityPoint struct {
	Month    string `json:"month"`
	Low      int64  `json:"low"`
	Medium   int64  `json:"medium"`
	High     int64  `json:"high"`
	Critical int64  `json:"critical"`
}

type Granularity string

const (
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

func ParseGranularity(raw string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(raw))) {
	case "", GranularityMonth:
		return GranularityMonth, nil
	case GranularityYear:
		return GranularityYear, nil
	}
	return "", &domain.ValidationError{Field: "granularity", Message: fmt.Sprintf("unknown granularity %q", raw)}
}

var agingLabels = [...]string{
	"Overdue",
	"Due in 0-30 days",
	"Due in 31-60 days",
	"Due in 61-90 days",
	"Due in >90 days",
}

const (
	metricsKey  = "analytics:metrics"
	agingKey    = "analytics:aging:"
	trendKey    = "analytics:trend:"
	priorityKey = "analytics:priority"
)

type AnalyticsService struct {
	repo     AnalyticsRepository
	payments CompletedPaymentLister
	cache    JSONCache
	ttl      time.Duration
	now      func() time.Time
}

// NewAnalyticsService builds the aggregator. A nil cache or a zero ttl
// disables caching.
func NewAnalyticsService(repo AnalyticsRepository, payments CompletedPaymentLister, cache JSONCache, ttl time.Duration) *AnalyticsService {
	return &AnalyticsService{
		repo:     repo,
		payments: payments,
		cache:    cache,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *AnalyticsService) CoreMetrics(ctx context.Context) (CoreMetrics, error) {
	return cached(ctx, s, metricsKey, func(ctx context.Context) (CoreMetrics, error) {
		totals, err := s.repo.CaseTotals(ctx)
		if err != nil {
			return CoreMetrics{}, fmt.Errorf("core metrics: %w", err)
		}
		return computeCoreMetrics(totals), nil
	})
}

func computeCoreMetrics(t repository.CaseTotals) CoreMetrics {
	m := CoreMetrics{
		PortfolioValue:     t.ActiveRemaining,
		TotalDebtAmount:    t.TotalDebtAmount,
		TotalRemainingDebt: t.TotalRemaining,
		RecoveredValue:     t.TotalDebtAmount - t.TotalRemaining,
		ActiveCases:        t.ActiveCount,
	}
	if t.TotalDebtAmount > 0 {
		m.RecoveryRate = round1(float64(m.RecoveredValue) / float64(t.TotalDebtAmount) * 100)
	}
	return m
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// AgingDistribution buckets ACTIVE cases by whole UTC days until due.
func (s *AnalyticsService) AgingDistribution(ctx context.Context) ([]AgingBucket, error) {
	now := s.now()
	return cached(ctx, s, agingKey+now.UTC().Format(time.DateOnly), func(ctx context.Context) ([]AgingBucket, error) {
		rows, err := s.repo.ActiveAging(ctx)
		if err != nil {
			return nil, fmt.Errorf("aging distribution: %w", err)
		}
		return bucketAging(rows, now), nil
	})
}

func bucketAging(rows []repository.AgingRow, now time.Time) []AgingBucket {
	buckets := make([]AgingBucket, len(agingLabels))
	for i, label := range agingLabels {
		buckets[i].Label = label
	}

	today := utcDay(now)
	for _, r := range rows {
		days := int(utcDay(r.DueDate).Sub(today) / (24 * time.Hour))
		b := &buckets[agingIndex(days)]
		b.Value += r.DebtRemaining
		b.Count++
	}
	return buckets
}

func agingIndex(days int) int {
	switch {
	case days < 0:
		return 0
	case days <= 30:
		return 1
	case days <= 60:
		return 2
	case days <= 90:
		return 3
	default:
		return 4
	}
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RecoveryTrend is the cumulative recovered amount per calendar period.
// Periods without payments between the first and last active one carry the
// running total.
func (s *AnalyticsService) RecoveryTrend(ctx context.Context, g Granularity) ([]TrendPoint, error) {
	return cached(ctx, s, trendKey+string(g), func(ctx context.Context) ([]TrendPoint, error) {
		payments, err := s.payments.ListCompleted(ctx)
		if err != nil {
			return nil, fmt.Errorf("recovery trend: %w", err)
		}
		return cumulativeTrend(payments, g), nil
	})
}

func cumulativeTrend(payments []domain.Payment, g Granularity) []TrendPoint {
	sums := map[time.Time]int64{}
	var first, last time.Time
	for _, p := range payments {
		if p.Status != "" && p.Status != domain.PaymentCompleted {
			continue
		}
		key := periodStart(p.CreatedAt, g)
		if len(sums) == 0 || key.Before(first) {
			first = key
		}
		if len(sums) == 0 || key.After(last) {
			last = key
		}
		sums[key] += p.AmountReceived
	}

	out := []TrendPoint{}
	if len(sums) == 0 {
		return out
	}

	var running int64
	for p := first; !p.After(last); p = nextPeriod(p, g) {
		running += sums[p]
		out = append(out, TrendPoint{Period: periodLabel(p, g), Amount: running})
	}
	return out
}

// RecoveryByPriority is the monthly cumulative recovered amount split into
// independent low, medium, high and critical series.
func (s *AnalyticsService) RecoveryByPriority(ctx context.Context) ([]PriorityPoint, error) {
	return cached(ctx, s, priorityKey, func(ctx context.Context) ([]PriorityPoint, error) {
		payments, err := s.payments.ListCompleted(ctx)
		if err != nil {
			return nil, fmt.Errorf("recovery by priority: %w", err)
		}
		return cumulativeByPriority(payments), nil
	})
}

func cumulativeByPriority(payments []domain.Payment) []PriorityPoint {
	sums := map[time.Time]*PriorityPoint{}
	var first, last time.Time
	for _, p := range payments {
		if p.Status != "" && p.Status != domain.PaymentCompleted {
			continue
		}
		priority, ok := paymentPriority(p)
		if !ok {
			continue
		}
		key := periodStart(p.CreatedAt, GranularityMonth)
		if len(sums) == 0 || key.Before(first) {
			first = key
		}
		if len(sums) == 0 || key.After(last) {
			last = key
		}
		pt, ok := sums[key]
		if !ok {
			pt = &PriorityPoint{}
			sums[key] = pt
		}
		switch priority {
		case "low":
			pt.Low += p.AmountReceived
		case "medium":
			pt.Medium += p.AmountReceived
		case "high":
			pt.High += p.AmountReceived
		case "critical":
			pt.Critical += p.AmountReceived
		}
	}

	out := []PriorityPoint{}
	if len(sums) == 0 {
		return out
	}

	var running PriorityPoint
	for m := first; !m.After(last); m = nextPeriod(m, GranularityMonth) {
		if pt, ok := sums[m]; ok {
			running.Low += pt.Low
			running.Medium += pt.Medium
			running.High += pt.High
			running.Critical += pt.Critical
		}
		point := running
		point.Month = periodLabel(m, GranularityMonth)
		out = append(out, point)
	}
	return out
}

// paymentPriority resolves the series a payment belongs to, falling back to
// the owning case priority.
func paymentPriority(p domain.Payment) (string, bool) {
	if p.Priority != nil {
		switch v := strings.ToLower(strings.TrimSpace(*p.Priority)); v {
		case "low", "medium", "high", "critical":
			return v, true
		}
	}
	if p.CasePriority != nil {
		switch *p.CasePriority {
		case domain.PriorityUrgent:
			return "critical", true
		case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
			return strings.ToLower(string(*p.CasePriority)), true
		}
	}
	return "", false
}

func periodStart(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	if g == GranularityYear {
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func nextPeriod(t time.Time, g Granularity) time.Time {
	if g == GranularityYear {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}

func periodLabel(t time.Time, g Granularity) string {
	if g == GranularityYear {
		return t.Format("2006")
	}
	return t.Format("2006-01")
}

// Invalidate drops every cached aggregate that a case write can change.
func (s *AnalyticsService) Invalidate(ctx context.Context) error {
	if s.cache == nil || s.ttl <= 0 {
		return nil
	}
	return s.cache.Del(ctx,
		metricsKey,
		agingKey+s.now().UTC().Format(time.DateOnly),
		trendKey+string(GranularityMonth),
		trendKey+string(GranularityYear),
		priorityKey,
	)
}

// cached serves key from the cache, loading and storing it on a miss. Cache
// failures are logged and bypassed. Load errors are returned and never stored.
func cached[T any](ctx context.Context, s *AnalyticsService, key string, load func(context.Context) (T, error)) (T, error) {
	useCache := s.cache != nil && s.ttl > 0
	log := logger.FromContext(ctx)

	if useCache {
		var v T
		err := s.cache.GetJSON(ctx, key, &v)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, clients.ErrCacheMiss) {
			log.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if useCache {
		if err := s.cache.SetJSON(ctx, key, v, s.ttl); err != nil {
			log.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}
