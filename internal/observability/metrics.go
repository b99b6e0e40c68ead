package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"

	"github.com/sandeepkv93/account-lifecycle-service/internal/config"
)

const meterName = "account-lifecycle-service"

type AppMetrics struct {
	accountFlowCounter   metric.Int64Counter
	authReqDuration      metric.Float64Histogram
	tokenEventCounter    metric.Int64Counter
	accessTokenCounter   metric.Int64Counter
	notificationCounter  metric.Int64Counter
	notificationDuration metric.Float64Histogram
	rateLimitCounter     metric.Int64Counter
	healthResultCounter  metric.Int64Counter
	healthDuration       metric.Float64Histogram
	toolCommandRuns      metric.Int64Counter
	loadgenRequests      metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "auth.request.duration"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					// argon2 dominates login and register latency
					Boundaries: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
				},
			},
		)),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m   AppMetrics
		err error
	)
	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.accountFlowCounter, "auth.account.flow.events", "Account lifecycle operations by flow and outcome"},
		{&m.tokenEventCounter, "auth.token.events", "Refresh token issue, rotation and revocation events"},
		{&m.accessTokenCounter, "auth.access_token.validation.events", "Access token validation results"},
		{&m.notificationCounter, "auth.notification.delivery", "Notification delivery attempts by kind and outcome"},
		{&m.rateLimitCounter, "http.rate_limit.decisions", "Rate limiter decisions"},
		{&m.healthResultCounter, "health.check.results", "Health dependency check results"},
		{&m.toolCommandRuns, "tool.command.runs", "Operator tool command runs"},
		{&m.loadgenRequests, "loadgen.requests", "Requests issued by the load generator"},
	}
	for _, c := range counters {
		if *c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}
	histograms := []struct {
		target *metric.Float64Histogram
		name   string
		desc   string
	}{
		{&m.authReqDuration, "auth.request.duration", "Duration of auth endpoint requests in seconds"},
		{&m.notificationDuration, "auth.notification.duration", "Duration of notification sends in seconds"},
		{&m.healthDuration, "health.check.duration", "Duration of health dependency checks in seconds"},
	}
	for _, h := range histograms {
		if *h.target, err = meter.Float64Histogram(h.name, metric.WithUnit("s"), metric.WithDescription(h.desc)); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAccountFlowEvent(ctx context.Context, flow, outcome string) {
	if m := current(); m != nil {
		m.accountFlowCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("flow", flow),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordAuthRequestDuration(ctx context.Context, endpoint, status string, duration time.Duration) {
	if m := current(); m != nil {
		m.authReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("endpoint", endpoint),
			attribute.String("status", status),
		))
	}
}

func RecordTokenEvent(ctx context.Context, action, outcome string) {
	if m := current(); m != nil {
		m.tokenEventCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordAccessTokenValidation(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.accessTokenCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func RecordNotificationDelivery(ctx context.Context, kind, outcome string, duration time.Duration) {
	if m := current(); m != nil {
		attrs := metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		)
		m.notificationCounter.Add(ctx, 1, attrs)
		if duration > 0 {
			m.notificationDuration.Record(ctx, duration.Seconds(), attrs)
		}
	}
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode string) {
	if m := current(); m != nil {
		m.rateLimitCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("outcome", outcome),
			attribute.String("mode", mode),
		))
	}
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	if m := current(); m != nil {
		m.healthResultCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("check", check),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	if m := current(); m != nil {
		m.healthDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("check", check),
		))
	}
}

func RecordToolCommandRun(ctx context.Context, tool, command, status string) {
	if m := current(); m != nil {
		m.toolCommandRuns.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("command", command),
			attribute.String("status", status),
		))
	}
}

func RecordLoadgenRequest(ctx context.Context, statusClass, scenario string) {
	if m := current(); m != nil {
		m.loadgenRequests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status_class", statusClass),
			attribute.String("scenario", scenario),
		))
	}
}
