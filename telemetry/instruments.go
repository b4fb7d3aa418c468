package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "linkbio-service"

// Instruments are the domain metrics. A nil *Instruments records nothing.
type Instruments struct {
	pageViews         metric.Int64Counter
	linkClicks        metric.Int64Counter
	subscriptions     metric.Int64UpDownCounter
	analyticsDuration metric.Float64Histogram
}

// NewInstruments registers the instruments on the global meter provider.
func NewInstruments() (*Instruments, error) {
	return newInstruments(otel.Meter(instrumentationName))
}

func newInstruments(meter metric.Meter) (*Instruments, error) {
	var inst Instruments
	var err error

	inst.pageViews, err = meter.Int64Counter("linkbio.page_views",
		metric.WithDescription("Recorded public profile views"))
	if err != nil {
		return nil, err
	}
	inst.linkClicks, err = meter.Int64Counter("linkbio.link_clicks",
		metric.WithDescription("Recorded link clicks"))
	if err != nil {
		return nil, err
	}
	inst.subscriptions, err = meter.Int64UpDownCounter("linkbio.realtime.subscriptions",
		metric.WithDescription("Open realtime subscriptions"))
	if err != nil {
		return nil, err
	}
	inst.analyticsDuration, err = meter.Float64Histogram("linkbio.analytics.duration",
		metric.WithDescription("Time spent computing analytics summaries"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (i *Instruments) PageViewRecorded(ctx context.Context, device string) {
	if i == nil {
		return
	}
	i.pageViews.Add(ctx, 1, metric.WithAttributes(attribute.String("device", device)))
}

func (i *Instruments) LinkClickRecorded(ctx context.Context, device string) {
	if i == nil {
		return
	}
	i.linkClicks.Add(ctx, 1, metric.WithAttributes(attribute.String("device", device)))
}

func (i *Instruments) SubscriptionOpened(ctx context.Context) {
	if i == nil {
		return
	}
	i.subscriptions.Add(ctx, 1)
}

func (i *Instruments) SubscriptionClosed(ctx context.Context) {
	if i == nil {
		return
	}
	i.subscriptions.Add(ctx, -1)
}

func (i *Instruments) AnalyticsComputed(ctx context.Context, timeRange string, cached bool, elapsed time.Duration) {
	if i == nil {
		return
	}
	i.analyticsDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("range", timeRange),
		attribute.Bool("cached", cached),
	))
}
