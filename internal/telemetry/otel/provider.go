package otel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/strongdm/devshell/internal/envflag"
)

const instrumentationName = "github.com/strongdm/devshell/probe"

// Config controls OTEL exporter behaviour.
type Config struct {
	ServiceName   string
	EnableMetrics bool
	EnableTraces  bool

	// spanExporter replaces the stdout exporter; spans are exported
	// synchronously when set.
	spanExporter sdktrace.SpanExporter
}

// Provider owns OTEL meter/tracer providers and derived probe instruments.
type Provider struct {
	cfg            Config
	meterProvider  *sdkmetric.MeterProvider
	metricReader   *sdkmetric.ManualReader
	tracerProvider *sdktrace.TracerProvider
	meter          metric.Meter
	tracer         trace.Tracer

	probes       *ProbeInstruments
	shutdownOnce sync.Once
}

// Setup initialises the providers requested by cfg. Probe metrics are kept
// in a manual reader and read back with ProbeSummary; traces go to stdout.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.EnableMetrics && !cfg.EnableTraces {
		return &Provider{cfg: cfg}, nil
	}

	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "devshell"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	p := &Provider{cfg: cfg}

	if cfg.EnableMetrics {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(res),
		)
		p.meterProvider = mp
		p.metricReader = reader
		otel.SetMeterProvider(mp)
		p.meter = mp.Meter(instrumentationName)
	}

	if cfg.EnableTraces {
		tp, err := createTracerProvider(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		p.tracerProvider = tp
		otel.SetTracerProvider(tp)
		p.tracer = tp.Tracer(instrumentationName)
	}

	probes, err := newProbeInstruments(p)
	if err != nil {
		return nil, err
	}
	p.probes = probes
	return p, nil
}

func createTracerProvider(_ context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	if cfg.spanExporter != nil {
		return sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(cfg.spanExporter),
			sdktrace.WithResource(res),
		), nil
	}

	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("init stdout trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp, sdktrace.WithMaxExportBatchSize(64)),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

// Shutdown flushes and stops the configured providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var err error
	p.shutdownOnce.Do(func() {
		var errs []error
		if p.meterProvider != nil {
			if shutdownErr := p.meterProvider.Shutdown(ctx); shutdownErr != nil {
				errs = append(errs, shutdownErr)
			}
		}
		if p.tracerProvider != nil {
			if shutdownErr := p.tracerProvider.Shutdown(ctx); shutdownErr != nil {
				errs = append(errs, shutdownErr)
			}
		}
		if len(errs) > 0 {
			err = errors.Join(errs...)
		}
	})
	return err
}

// Enabled reports whether any signal is being recorded.
func (p *Provider) Enabled() bool {
	return p != nil && (p.meterProvider != nil || p.tracerProvider != nil)
}

// LoadConfigFromEnv reads OTEL config from DEVSHELL_OTEL_* toggles.
func LoadConfigFromEnv() Config {
	return Config{
		ServiceName:   "devshell",
		EnableMetrics: envflag.Enabled(envflag.Metrics),
		EnableTraces:  envflag.Enabled(envflag.Traces),
	}
}
