package tracing

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"hop-proxy/internal/config"
)

const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func recordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return New(tp, propagation.TraceContext{}), sr
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := newProvider(config.TracingConfig{Enabled: false, Exporter: "stdout"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("newProvider() error = %v", err)
	}
	if p.sdk != nil {
		t.Error("sdk provider built while tracing is disabled")
	}

	_, span := NewTracer(p).Start(context.Background(), "op", trace.SpanContext{})
	if span.SpanContext().IsValid() {
		t.Error("disabled provider produced a recording span")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewProvider_StdoutExporter(t *testing.T) {
	var buf bytes.Buffer

	p, err := newProvider(config.TracingConfig{
		Enabled:     true,
		Exporter:    "stdout",
		SampleRatio: 1,
		ServiceName: "hop-proxy-test",
	}, &buf)
	if err != nil {
		t.Fatalf("newProvider() error = %v", err)
	}

	_, span := NewTracer(p).Start(context.Background(), "reverse_proxy", trace.SpanContext{})
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	for _, want := range []string{"reverse_proxy", "hop-proxy-test"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("exported output missing %q", want)
		}
	}
}

func TestNewProvider_NoneExporter(t *testing.T) {
	p, err := newProvider(config.TracingConfig{Enabled: true, Exporter: "none", SampleRatio: 1}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("newProvider() error = %v", err)
	}
	if p.sdk == nil {
		t.Fatal("sdk provider not built while tracing is enabled")
	}

	_, span := NewTracer(p).Start(context.Background(), "op", trace.SpanContext{})
	if !span.SpanContext().IsValid() {
		t.Error("span context is invalid with tracing enabled")
	}
	span.End()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := newProvider(config.TracingConfig{Enabled: true, Exporter: "jaeger"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("newProvider() error = nil, want error for unknown exporter")
	}
	if !strings.Contains(err.Error(), `unknown exporter "jaeger"`) {
		t.Errorf("error = %q, want it to name the exporter", err)
	}
}

func TestProvider_ShutdownWithoutSDK(t *testing.T) {
	var p Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if p.TracerProvider() == nil {
		t.Error("TracerProvider() = nil, want no-op provider")
	}
}

func TestTracer_Extract(t *testing.T) {
	tests := []struct {
		name      string
		header    http.Header
		wantValid bool
	}{
		{name: "valid traceparent", header: http.Header{"Traceparent": {traceparent}}, wantValid: true},
		{name: "missing", header: http.Header{}, wantValid: false},
		{name: "nil header", header: nil, wantValid: false},
		{name: "malformed", header: http.Header{"Traceparent": {"not-a-trace"}}, wantValid: false},
		{name: "zero trace id", header: http.Header{"Traceparent": {"00-00000000000000000000000000000000-00f067aa0ba902b7-01"}}, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := recordingTracer(t)

			sc := tr.Extract(tt.header)
			if sc.IsValid() != tt.wantValid {
				t.Fatalf("IsValid() = %v, want %v", sc.IsValid(), tt.wantValid)
			}
			if !tt.wantValid {
				return
			}
			if got := sc.TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
				t.Errorf("trace id = %s", got)
			}
			if got := sc.SpanID().String(); got != "00f067aa0ba902b7" {
				t.Errorf("span id = %s", got)
			}
			if !sc.IsRemote() {
				t.Error("extracted span context is not marked remote")
			}
		})
	}
}

func TestTracer_StartChildOfParent(t *testing.T) {
	tr, sr := recordingTracer(t)

	parent := tr.Extract(http.Header{"Traceparent": {traceparent}})
	ctx, span := tr.Start(context.Background(), "reverse_proxy", parent)
	if trace.SpanFromContext(ctx) != span {
		t.Error("started span is not active in the returned context")
	}
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	s := ended[0]
	if s.Name() != "reverse_proxy" {
		t.Errorf("name = %q, want reverse_proxy", s.Name())
	}
	if s.SpanKind() != trace.SpanKindServer {
		t.Errorf("kind = %v, want server", s.SpanKind())
	}
	if s.Parent().SpanID() != parent.SpanID() {
		t.Errorf("parent span id = %s, want %s", s.Parent().SpanID(), parent.SpanID())
	}
	if s.SpanContext().TraceID() != parent.TraceID() {
		t.Errorf("trace id = %s, want %s", s.SpanContext().TraceID(), parent.TraceID())
	}
}

func TestTracer_StartNewRootIgnoresAmbientSpan(t *testing.T) {
	tr, sr := recordingTracer(t)

	ambientCtx, ambient := tr.Start(context.Background(), "ambient", trace.SpanContext{})
	defer ambient.End()

	_, span := tr.Start(ambientCtx, "reverse_proxy", trace.SpanContext{})
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	if ended[0].Parent().IsValid() {
		t.Error("span has a parent, want a new root")
	}
	if ended[0].SpanContext().TraceID() == ambient.SpanContext().TraceID() {
		t.Error("span joined the ambient trace, want a new trace")
	}
}
