package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"linkbio-service/models"
	"linkbio-service/telemetry"
	"linkbio-service/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BounceThreshold is the session length below which a view counts as a bounce.
const BounceThreshold = 10 * time.Second

type TimeRange string

const (
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
	Range90d TimeRange = "90d"
)

func (r TimeRange) Days() int {
	switch r {
	case Range30d:
		return 30
	case Range90d:
		return 90
	default:
		return 7
	}
}

// ParseTimeRange accepts 7d, 30d and 90d; empty means 7d.
func ParseTimeRange(value string) (TimeRange, error) {
	switch TimeRange(strings.TrimSpace(value)) {
	case "", Range7d:
		return Range7d, nil
	case Range30d:
		return Range30d, nil
	case Range90d:
		return Range90d, nil
	default:
		return "", models.NewValidationError("range", fmt.Sprintf("unsupported time range %q", value))
	}
}

// ComputeTrend is the percentage change from previous to current, 0 when
// there is no previous value.
func ComputeTrend(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// SessionSummary is the headline view statistics of one window.
type SessionSummary struct {
	Views       int
	AvgDuration float64
	BounceRate  float64
}

func SummarizeSessions(durations []int) SessionSummary {
	if len(durations) == 0 {
		return SessionSummary{}
	}
	threshold := int(BounceThreshold / time.Second)
	var total, bounces int
	for _, d := range durations {
		total += d
		if d < threshold {
			bounces++
		}
	}
	n := float64(len(durations))
	return SessionSummary{
		Views:       len(durations),
		AvgDuration: float64(total) / n,
		BounceRate:  float64(bounces) / n * 100,
	}
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// round1 rounds to one decimal and folds -0 into 0.
func round1(v float64) float64 {
	r := math.Round(v*10) / 10
	if r == 0 {
		return 0
	}
	return r
}

type AnalyticsOptions struct {
	CacheTTL       time.Duration
	TopLinks       int
	VisitorHashKey []byte
}

type AnalyticsService struct {
	repo        AnalyticsRepository
	cache       MetricsCache
	opts        AnalyticsOptions
	instruments *telemetry.Instruments
	tracer      trace.Tracer
	now         func() time.Time
}

// NewAnalyticsService builds the aggregator; cache and instruments may be nil.
func NewAnalyticsService(repo AnalyticsRepository, cache MetricsCache, instruments *telemetry.Instruments, opts AnalyticsOptions) *AnalyticsService {
	if opts.TopLinks <= 0 {
		opts.TopLinks = 5
	}
	return &AnalyticsService{
		repo:        repo,
		cache:       cache,
		opts:        opts,
		instruments: instruments,
		tracer:      otel.Tracer("linkbio-service/services"),
		now:         time.Now,
	}
}

func metricsCacheKey(userID string, r TimeRange) string {
	return fmt.Sprintf("%s:%s", userID, r)
}

// ComputeMetrics summarizes a user's views and clicks over the range and
// compares them with the preceding window of the same length. A failing data
// source leaves its slice empty and adds a warning instead of failing.
func (s *AnalyticsService) ComputeMetrics(ctx context.Context, userID, rangeValue string) (models.Metrics, error) {
	timeRange, err := ParseTimeRange(rangeValue)
	if err != nil {
		return models.Metrics{}, err
	}

	ctx, span := s.tracer.Start(ctx, "analytics.compute_metrics", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("analytics.range", string(timeRange)),
	))
	defer span.End()
	started := time.Now()

	if cached, ok := s.cached(ctx, userID, timeRange); ok {
		span.SetAttributes(attribute.Bool("analytics.cached", true))
		s.instruments.AnalyticsComputed(ctx, string(timeRange), true, time.Since(started))
		return cached, nil
	}

	now := s.now().UTC()
	currentFrom := now.AddDate(0, 0, -timeRange.Days())
	previousFrom := currentFrom.AddDate(0, 0, -timeRange.Days())

	metrics := models.Metrics{
		TimeRange: string(timeRange),
		From:      currentFrom,
		To:        now,
		Devices:   []models.DeviceShare{},
		Locations: []models.LocationCount{},
		TopLinks:  []models.LinkPerformance{},
	}
	degrade := func(source string, err error) {
		log.Printf("warning: analytics source degraded source=%s user_id=%s err=%v", source, userID, err)
		metrics.Warnings = append(metrics.Warnings, source+" unavailable")
	}

	currentDurations, err := s.repo.ListSessionDurations(ctx, userID, currentFrom, now)
	if err != nil {
		degrade("page views", err)
	}
	previousDurations, err := s.repo.ListSessionDurations(ctx, userID, previousFrom, currentFrom)
	if err != nil {
		degrade("previous page views", err)
	}
	currentClicks, err := s.repo.CountLinkClicks(ctx, userID, currentFrom, now)
	if err != nil {
		degrade("link clicks", err)
	}
	previousClicks, err := s.repo.CountLinkClicks(ctx, userID, previousFrom, currentFrom)
	if err != nil {
		degrade("previous link clicks", err)
	}

	current := SummarizeSessions(currentDurations)
	previous := SummarizeSessions(previousDurations)
	currentCTR := percentage(currentClicks, current.Views)
	previousCTR := percentage(previousClicks, previous.Views)

	metrics.TotalViews = current.Views
	metrics.TotalClicks = currentClicks
	metrics.AvgSessionDuration = round1(current.AvgDuration)
	metrics.BounceRate = round1(current.BounceRate)
	metrics.ClickThroughRate = round1(currentCTR)
	metrics.Trends = models.Trends{
		Views:            round1(ComputeTrend(float64(current.Views), float64(previous.Views))),
		Clicks:           round1(ComputeTrend(float64(currentClicks), float64(previousClicks))),
		SessionDuration:  round1(ComputeTrend(current.AvgDuration, previous.AvgDuration)),
		BounceRate:       round1(-ComputeTrend(current.BounceRate, previous.BounceRate)),
		ClickThroughRate: round1(ComputeTrend(currentCTR, previousCTR)),
	}

	if devices, err := s.repo.DeviceStats(ctx, userID, currentFrom); err != nil {
		degrade("device stats", err)
	} else {
		metrics.Devices = DeviceShares(devices)
	}
	if countries, err := s.repo.GeoStats(ctx, userID, currentFrom); err != nil {
		degrade("geo stats", err)
	} else {
		metrics.Locations = Locations(countries)
	}
	if counts, err := s.repo.LinkClickCounts(ctx, userID, currentFrom, now, s.opts.TopLinks); err != nil {
		degrade("link performance", err)
	} else {
		metrics.TopLinks = TopLinks(counts, current.Views, s.opts.TopLinks)
	}

	if len(metrics.Warnings) == 0 {
		s.store(ctx, userID, timeRange, metrics)
	}
	span.SetAttributes(
		attribute.Int("analytics.views", metrics.TotalViews),
		attribute.Int("analytics.warnings", len(metrics.Warnings)),
	)
	s.instruments.AnalyticsComputed(ctx, string(timeRange), false, time.Since(started))
	return metrics, nil
}

func (s *AnalyticsService) cached(ctx context.Context, userID string, r TimeRange) (models.Metrics, bool) {
	if s.cache == nil {
		return models.Metrics{}, false
	}
	raw, found, err := s.cache.Get(ctx, metricsCacheKey(userID, r))
	if err != nil {
		log.Printf("warning: analytics cache read failed user_id=%s err=%v", userID, err)
		return models.Metrics{}, false
	}
	if !found {
		return models.Metrics{}, false
	}
	var metrics models.Metrics
	if err := json.Unmarshal([]byte(raw), &metrics); err != nil {
		log.Printf("warning: analytics cache entry unreadable user_id=%s err=%v", userID, err)
		return models.Metrics{}, false
	}
	return metrics, true
}

func (s *AnalyticsService) store(ctx context.Context, userID string, r TimeRange, metrics models.Metrics) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(metrics)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, metricsCacheKey(userID, r), string(raw), s.opts.CacheTTL); err != nil {
		log.Printf("warning: analytics cache write failed user_id=%s err=%v", userID, err)
	}
}

// DeviceShares turns device counts into a percentage distribution, largest first.
func DeviceShares(counts []models.DeviceCount) []models.DeviceShare {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	shares := make([]models.DeviceShare, 0, len(counts))
	for _, c := range counts {
		device := c.DeviceType
		if device == "" {
			device = "unknown"
		}
		shares = append(shares, models.DeviceShare{
			Device:     device,
			Count:      c.Count,
			Percentage: round1(percentage(c.Count, total)),
		})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].Count > shares[j].Count })
	return shares
}

// Locations sorts country counts by count, then by country code.
func Locations(counts []models.CountryCount) []models.LocationCount {
	locations := make([]models.LocationCount, 0, len(counts))
	for _, c := range counts {
		country := c.Country
		if country == "" {
			country = "Unknown"
		}
		locations = append(locations, models.LocationCount{Country: country, Count: c.Count})
	}
	sort.SliceStable(locations, func(i, j int) bool {
		if locations[i].Count != locations[j].Count {
			return locations[i].Count > locations[j].Count
		}
		return locations[i].Country < locations[j].Country
	})
	return locations
}

// TopLinks ranks links by clicks. A link's click-through rate is its clicks
// over the profile's page views in the same window.
func TopLinks(counts []models.LinkClickCount, views, limit int) []models.LinkPerformance {
	ranked := append([]models.LinkClickCount(nil), counts...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Clicks > ranked[j].Clicks })
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	links := make([]models.LinkPerformance, 0, len(ranked))
	for _, c := range ranked {
		links = append(links, models.LinkPerformance{
			LinkID:           c.LinkID,
			Title:            c.Title,
			URL:              c.URL,
			Clicks:           c.Clicks,
			ClickThroughRate: round1(percentage(c.Clicks, views)),
		})
	}
	return links
}

// Visit describes the request that produced an analytics event.
type Visit struct {
	RemoteIP  string
	UserAgent string
	Country   string
}

func (s *AnalyticsService) visitorFields(v Visit) (device, country, hash string) {
	device = utils.DeviceType(v.UserAgent)
	country = strings.ToUpper(strings.TrimSpace(v.Country))
	if len(country) != 2 || country == "XX" {
		country = ""
	}
	hash, err := utils.VisitorHash(s.opts.VisitorHashKey, v.RemoteIP, v.UserAgent)
	if err != nil {
		log.Printf("warning: visitor hash failed err=%v", err)
		hash = ""
	}
	return device, country, hash
}

// RecordPageView appends a view of profileID lasting sessionSeconds.
func (s *AnalyticsService) RecordPageView(ctx context.Context, profileID string, sessionSeconds int, visit Visit) (models.PageView, error) {
	if sessionSeconds < 0 {
		return models.PageView{}, models.NewValidationError("sessionDuration", "must not be negative")
	}
	device, country, hash := s.visitorFields(visit)
	view := models.PageView{
		UserID:          profileID,
		SessionDuration: sessionSeconds,
		DeviceType:      device,
		Country:         country,
		VisitorHash:     hash,
		CreatedAt:       s.now().UTC(),
	}
	id, err := s.repo.InsertPageView(ctx, view)
	if err != nil {
		return models.PageView{}, models.Backend("record page view", err)
	}
	view.ID = id
	s.instruments.PageViewRecorded(ctx, device)
	return view, nil
}

// RecordLinkClick appends a click on one of profileID's links.
func (s *AnalyticsService) RecordLinkClick(ctx context.Context, profileID, linkID string, visit Visit) (models.LinkClick, error) {
	if strings.TrimSpace(linkID) == "" {
		return models.LinkClick{}, models.NewValidationError("linkId", "link required")
	}
	if _, err := uuid.Parse(linkID); err != nil {
		return models.LinkClick{}, models.ErrNotFound
	}
	if _, err := s.repo.GetLink(ctx, profileID, linkID); err != nil {
		return models.LinkClick{}, models.Backend("load link", err)
	}
	device, country, hash := s.visitorFields(visit)
	click := models.LinkClick{
		UserID:      profileID,
		LinkID:      linkID,
		DeviceType:  device,
		Country:     country,
		VisitorHash: hash,
		CreatedAt:   s.now().UTC(),
	}
	id, err := s.repo.InsertLinkClick(ctx, click)
	if err != nil {
		return models.LinkClick{}, models.Backend("record link click", err)
	}
	click.ID = id
	s.instruments.LinkClickRecorded(ctx, device)
	return click, nil
}
