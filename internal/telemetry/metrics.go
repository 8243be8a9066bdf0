package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/wolfeidau/raclient"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Action dispatch metrics
	ActionsTotal       metric.Int64Counter
	ActionErrorsTotal  metric.Int64Counter
	ActionsDeniedTotal metric.Int64Counter
	ActionDuration     metric.Float64Histogram

	// Session metrics
	AuthenticateTotal       metric.Int64Counter
	AuthenticateErrorsTotal metric.Int64Counter
	TokenRefreshTotal       metric.Int64Counter
	TokenRefreshErrorsTotal metric.Int64Counter
	LogoutTotal             metric.Int64Counter

	// Asset pipeline metrics
	UploadBytesTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// Tracer returns the tracer used for dispatched actions.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	m := &Metrics{}

	m.ActionsTotal, _ = meter.Int64Counter(
		"raclient.actions.total",
		metric.WithDescription("Total number of actions sent to the server"),
		metric.WithUnit("{action}"),
	)

	m.ActionErrorsTotal, _ = meter.Int64Counter(
		"raclient.actions.errors.total",
		metric.WithDescription("Total number of actions that failed at the transport, in decoding or on the server"),
		metric.WithUnit("{error}"),
	)

	m.ActionsDeniedTotal, _ = meter.Int64Counter(
		"raclient.actions.denied.total",
		metric.WithDescription("Total number of actions rejected locally by a role gate"),
		metric.WithUnit("{action}"),
	)

	m.ActionDuration, _ = meter.Float64Histogram(
		"raclient.actions.duration",
		metric.WithDescription("Round trip duration of actions"),
		metric.WithUnit("ms"),
	)

	m.AuthenticateTotal, _ = meter.Int64Counter(
		"raclient.session.authenticate.total",
		metric.WithDescription("Total number of authenticate attempts"),
		metric.WithUnit("{attempt}"),
	)

	m.AuthenticateErrorsTotal, _ = meter.Int64Counter(
		"raclient.session.authenticate.errors.total",
		metric.WithDescription("Total number of failed authenticate attempts"),
		metric.WithUnit("{error}"),
	)

	m.TokenRefreshTotal, _ = meter.Int64Counter(
		"raclient.session.refresh.total",
		metric.WithDescription("Total number of access token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)

	m.TokenRefreshErrorsTotal, _ = meter.Int64Counter(
		"raclient.session.refresh.errors.total",
		metric.WithDescription("Total number of failed access token refreshes"),
		metric.WithUnit("{error}"),
	)

	m.LogoutTotal, _ = meter.Int64Counter(
		"raclient.session.logout.total",
		metric.WithDescription("Total number of logouts"),
		metric.WithUnit("{logout}"),
	)

	m.UploadBytesTotal, _ = meter.Int64Counter(
		"raclient.assets.upload.bytes",
		metric.WithDescription("Bytes of binary asset payload sent after compression"),
		metric.WithUnit("By"),
	)

	return m
}
