// Package tracing provides the OpenTelemetry tracer used to observe each proxy hop.
package tracing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"

	"hop-proxy/internal/config"
)

const instrumentationName = "hop-proxy/internal/tracing"

// Provider owns the process-wide tracer provider.
type Provider struct {
	sdk *sdktrace.TracerProvider // nil when tracing is disabled
}

// NewProvider builds the tracer provider described by cfg.Tracing.
// When tracing is disabled a no-op provider is used.
func NewProvider(cfg *config.Config) (*Provider, error) {
	return newProvider(cfg.Tracing, os.Stdout)
}

func newProvider(cfg config.TracingConfig, out io.Writer) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	}

	switch strings.ToLower(cfg.Exporter) {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("tracing: stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	case "none", "":
	default:
		return nil, fmt.Errorf("tracing: unknown exporter %q", cfg.Exporter)
	}

	return &Provider{sdk: sdktrace.NewTracerProvider(opts...)}, nil
}

// TracerProvider returns the underlying provider.
func (p *Provider) TracerProvider() trace.TracerProvider {
	if p.sdk == nil {
		return noop.NewTracerProvider()
	}
	return p.sdk
}

// Shutdown flushes pending spans and releases exporter resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return multierr.Append(p.sdk.ForceFlush(ctx), p.sdk.Shutdown(ctx))
}

// Tracer starts spans and reads propagated span contexts from HTTP headers.
type Tracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracer creates a Tracer on p using W3C trace context and baggage propagation.
func NewTracer(p *Provider) *Tracer {
	return New(p.TracerProvider(), propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// New creates a Tracer from an explicit provider and propagator.
func New(tp trace.TracerProvider, propagator propagation.TextMapPropagator) *Tracer {
	return &Tracer{
		tracer:     tp.Tracer(instrumentationName),
		propagator: propagator,
	}
}

// Extract returns the span context carried by header. A missing or malformed
// propagation header yields an invalid span context.
func (t *Tracer) Extract(header http.Header) trace.SpanContext {
	ctx := t.propagator.Extract(context.Background(), propagation.HeaderCarrier(header))
	return trace.SpanContextFromContext(ctx)
}

// Start begins a span named name. A valid parent makes the span its child;
// otherwise the span starts a new trace, ignoring any span already active
// in ctx.
func (t *Tracer) Start(ctx context.Context, name string, parent trace.SpanContext) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindServer)}
	if parent.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, parent)
	} else {
		opts = append(opts, trace.WithNewRoot())
	}
	return t.tracer.Start(ctx, name, opts...)
}
