package otel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/strongdm/devshell/internal/probe"
)

const (
	probeAttemptsName = "devshell.probe.attempts"
	probeDurationName = "devshell.probe.duration"
)

// ProbeInstruments records one span and one counter increment per host
// command run during discovery.
type ProbeInstruments struct {
	attempts metric.Int64Counter
	duration metric.Int64Histogram
	tracer   trace.Tracer
}

// ProbeSummary totals the probes recorded so far.
type ProbeSummary struct {
	Attempts int64
	Failures int64
}

func newProbeInstruments(p *Provider) (*ProbeInstruments, error) {
	meter := p.meter
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter(instrumentationName)
	}
	tracer := p.tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(instrumentationName)
	}

	attempts, err := meter.Int64Counter(probeAttemptsName,
		metric.WithDescription("Host commands run by discovery probes"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", probeAttemptsName, err)
	}
	duration, err := meter.Int64Histogram(probeDurationName,
		metric.WithDescription("Wall time of discovery probe commands"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", probeDurationName, err)
	}
	return &ProbeInstruments{attempts: attempts, duration: duration, tracer: tracer}, nil
}

// WrapRunner returns r instrumented with the provider's probe instruments.
// A disabled provider returns r unchanged.
func (p *Provider) WrapRunner(r probe.Runner) probe.Runner {
	if !p.Enabled() || p.probes == nil || r == nil {
		return r
	}
	return &instrumentedRunner{next: r, inst: p.probes}
}

type instrumentedRunner struct {
	next probe.Runner
	inst *ProbeInstruments
}

func (r *instrumentedRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (probe.Result, error) {
	ctx, span := r.inst.tracer.Start(ctx, "probe "+name, trace.WithAttributes(
		attribute.String("probe.command", name),
		attribute.StringSlice("probe.args", args),
		attribute.Int64("probe.timeout_ms", timeout.Milliseconds()),
	))
	start := time.Now()
	res, err := r.next.Run(ctx, timeout, name, args...)
	elapsed := time.Since(start)

	outcome := probeOutcome(err)
	span.SetAttributes(
		attribute.Int("probe.exit_code", res.ExitCode),
		attribute.String("probe.outcome", outcome),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.End()

	attrs := metric.WithAttributes(
		attribute.String("probe.command", name),
		attribute.String("probe.outcome", outcome),
	)
	r.inst.attempts.Add(ctx, 1, attrs)
	r.inst.duration.Record(ctx, elapsed.Milliseconds(), attrs)
	return res, err
}

func probeOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// ProbeSummary collects the probe counter from the manual reader.
func (p *Provider) ProbeSummary(ctx context.Context) (ProbeSummary, error) {
	var summary ProbeSummary
	if p == nil || p.metricReader == nil {
		return summary, nil
	}
	var rm metricdata.ResourceMetrics
	if err := p.metricReader.Collect(ctx, &rm); err != nil {
		return summary, fmt.Errorf("collect probe metrics: %w", err)
	}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != probeAttemptsName {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				summary.Attempts += dp.Value
				if outcome, ok := dp.Attributes.Value("probe.outcome"); ok && outcome.AsString() != "ok" {
					summary.Failures += dp.Value
				}
			}
		}
	}
	return summary, nil
}
