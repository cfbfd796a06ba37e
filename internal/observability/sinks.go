package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cory-johannsen/starfall/internal/config"
	"github.com/cory-johannsen/starfall/internal/telemetry"
)

// Sinks is the telemetry sink chain plus the cleanup for whatever it opened.
type Sinks struct {
	telemetry.Multi
	closers []func(context.Context) error
}

// Close releases every connection and provider opened by NewSinks.
func (s *Sinks) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewSinks builds the sink chain listed in cfg.Sinks, in listed order.
// reg receives the metrics collectors; nil uses the default registerer.
//
// Postcondition: On error every resource opened so far is closed.
func NewSinks(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger, reg prometheus.Registerer) (*Sinks, error) {
	out := &Sinks{}
	for _, name := range cfg.Sinks {
		switch name {
		case "log":
			out.Multi = append(out.Multi, telemetry.NewLogSink(logger))
		case "nats":
			conn, err := telemetry.DialNATS(cfg.NATSURL)
			if err != nil {
				_ = out.Close(ctx)
				return nil, err
			}
			out.closers = append(out.closers, func(context.Context) error { return conn.Drain() })
			out.Multi = append(out.Multi, telemetry.NewNATSSink(conn, cfg.Subject))
		case "metrics":
			out.Multi = append(out.Multi, telemetry.NewMetricsSink(reg, cfg.MetricsNamespace))
		case "trace":
			shutdown, err := telemetry.SetupTracing(ctx)
			if err != nil {
				_ = out.Close(ctx)
				return nil, err
			}
			out.closers = append(out.closers, shutdown)
			out.Multi = append(out.Multi, telemetry.NewTraceSink(telemetry.Tracer("combat")))
		default:
			_ = out.Close(ctx)
			return nil, fmt.Errorf("unknown telemetry sink %q", name)
		}
	}
	return out, nil
}
