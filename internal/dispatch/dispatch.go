// Package dispatch sends protocol actions over a transport channel. Every
// privileged action passes a local role gate first; a closed gate fails with
// ErrNotPermitted before anything is sent.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/raclient/internal/protocol"
	"github.com/wolfeidau/raclient/internal/telemetry"
	"github.com/wolfeidau/raclient/internal/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrNotPermitted is returned when the session does not pass the gate of an action.
	ErrNotPermitted = errors.New("operation not permitted")

	// ErrTransport is returned when the channel fails to deliver a request or its response.
	ErrTransport = errors.New("transport failure")
)

// Authorizer is the read-only view of the session consulted before each action.
type Authorizer interface {
	IsAuthenticated(ctx context.Context) bool
	IsDeveloper() bool
	IsPlayer() bool
	AccessToken() string
}

// Roundtrip encodes req with authToken, sends it on ch and decodes the reply
// into resp. It applies no gate; the session uses it for its own actions.
func Roundtrip(ctx context.Context, ch transport.Channel, req protocol.Request, authToken string, resp protocol.Response) error {
	msg, err := protocol.Encode(req, authToken)
	if err != nil {
		return err
	}

	data, err := ch.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, req.Action(), err)
	}

	return protocol.Decode(req.Action(), data, resp)
}

// Dispatcher sends gated actions on behalf of the domain managers.
type Dispatcher struct {
	ch      transport.Channel
	auth    Authorizer
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// New creates a dispatcher sending on ch with tokens and roles from auth.
func New(ch transport.Channel, auth Authorizer) *Dispatcher {
	return &Dispatcher{
		ch:      ch,
		auth:    auth,
		metrics: telemetry.GetMetrics(),
		tracer:  telemetry.Tracer(),
	}
}

// Call checks gate, then sends req stamped with the session access token and
// decodes the reply into resp. Failures are logged and returned, never
// panicked; the server's error text is in a *protocol.ServerError.
func (d *Dispatcher) Call(ctx context.Context, gate Gate, req protocol.Request, resp protocol.Response) error {
	action := req.Action()
	attrs := metric.WithAttributes(attribute.String("action", action.String()))

	ctx, span := d.tracer.Start(ctx, "raclient."+action.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("raclient.action", action.String()),
			attribute.String("raclient.gate", gate.String()),
		))
	defer span.End()

	if !gate.allows(ctx, d.auth) {
		d.metrics.ActionsDeniedTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", action.String()),
			attribute.String("gate", gate.String()),
		))
		span.SetStatus(codes.Error, "not permitted")

		log.Warn().
			Str("action", action.String()).
			Str("gate", gate.String()).
			Msg("action rejected by role gate")

		return fmt.Errorf("%w: %s requires %s", ErrNotPermitted, action, gate)
	}

	started := time.Now()
	err := Roundtrip(ctx, d.ch, req, d.auth.AccessToken(), resp)
	elapsed := time.Since(started)

	d.metrics.ActionsTotal.Add(ctx, 1, attrs)
	d.metrics.ActionDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)

	if err != nil {
		kind := ErrorKind(err)
		d.metrics.ActionErrorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", action.String()),
			attribute.String("kind", kind),
		))
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)

		var serverErr *protocol.ServerError
		if errors.As(err, &serverErr) {
			log.Warn().
				Str("action", action.String()).
				Str("server_error", serverErr.Message).
				Dur("duration", elapsed).
				Msg("action failed on server")
		} else {
			log.Error().
				Err(err).
				Str("action", action.String()).
				Str("kind", kind).
				Dur("duration", elapsed).
				Msg("action failed")
		}

		return err
	}

	log.Debug().
		Str("action", action.String()).
		Dur("duration", elapsed).
		Msg("action succeeded")

	return nil
}

// ErrorKind classifies an error returned by Call or Roundtrip for metrics
// and logs: "denied", "transport", "server", "malformed" or "invalid".
func ErrorKind(err error) string {
	var serverErr *protocol.ServerError
	switch {
	case errors.Is(err, ErrNotPermitted):
		return "denied"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.As(err, &serverErr):
		return "server"
	case errors.Is(err, protocol.ErrMalformedResponse):
		return "malformed"
	default:
		return "invalid"
	}
}
