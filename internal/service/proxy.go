// Package service implements the core proxy forwarding logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hop-proxy/internal/model"
)

// ErrInvalidConfiguration is returned when a Forwarder is built without one
// of its required collaborators.
var ErrInvalidConfiguration = errors.New("invalid forwarder configuration")

// ErrNoResponse is returned when the upstream reports neither a response nor
// an error.
var ErrNoResponse = errors.New("upstream returned no response")

// SpanName is the name of the span wrapping each forwarded request.
const SpanName = "reverse_proxy"

// Span attribute keys.
const (
	AttrHTTPMethod = attribute.Key("http.method")
	AttrHTTPURL    = attribute.Key("http.url")
	AttrHTTPStatus = attribute.Key("http.status_code")
)

// Tracer extracts propagated span contexts and starts spans.
// Implementations must be safe for concurrent use.
type Tracer interface {
	// Extract returns the span context propagated in header. The result is
	// invalid when the header carries none.
	Extract(header http.Header) trace.SpanContext
	// Start begins a span as a child of parent, or as a new root span when
	// parent is invalid. The span is active in the returned context only.
	Start(ctx context.Context, name string, parent trace.SpanContext) (context.Context, trace.Span)
}

// Upstream executes a request against the next hop.
// Implementations must be safe for concurrent use and must not retain the
// request after Execute returns.
type Upstream interface {
	Execute(pr *model.ProxyRequest) (*model.ProxyResponse, error)
}

// Forwarder translates an inbound request into an upstream request and
// returns the sanitized upstream response.
type Forwarder struct {
	tracer   Tracer
	upstream Upstream
	logger   *slog.Logger
}

// NewForwarder creates a Forwarder. Both tracer and upstream are required;
// a nil logger falls back to slog.Default().
func NewForwarder(tracer Tracer, upstream Upstream, logger *slog.Logger) (*Forwarder, error) {
	if tracer == nil {
		return nil, fmt.Errorf("%w: tracer must be set", ErrInvalidConfiguration)
	}
	if upstream == nil {
		return nil, fmt.Errorf("%w: upstream client must be set", ErrInvalidConfiguration)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Forwarder{
		tracer:   tracer,
		upstream: upstream,
		logger:   logger.With("component", "forwarder"),
	}, nil
}

// Forward sends pr to the upstream and returns its response with hop-by-hop,
// Date and Server headers removed. The caller is responsible for closing the
// response body.
//
// The forwarding span is active only in the context handed to the upstream;
// pr.Ctx is left untouched, so the caller's active span is the same before
// and after the call. Upstream errors are returned unchanged.
func (f *Forwarder) Forward(pr *model.ProxyRequest) (resp *model.ProxyResponse, err error) {
	ctx := pr.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := f.tracer.Start(ctx, SpanName, f.tracer.Extract(pr.Header))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	uri := pr.URI()
	span.SetAttributes(
		AttrHTTPMethod.String(pr.Method),
		AttrHTTPURL.String(uri),
	)

	out := &model.ProxyRequest{
		Ctx:     ctx,
		Method:  pr.Method,
		Path:    pr.Path,
		RawPath: pr.RawPath,
		Query:   copyQuery(pr.Query),
		Header:  filterRequestHeaders(pr.Header),
		Body:    pr.Body,
	}
	// Always ask the next hop for a persistent connection.
	out.Header.Set("Connection", "keep-alive")

	f.logger.Debug("forwarding request",
		"method", pr.Method,
		"uri", uri,
	)

	resp, err = f.upstream.Execute(out)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNoResponse
	}

	span.SetAttributes(AttrHTTPStatus.Int(resp.StatusCode))
	stripResponseHeaders(resp.Header)

	return resp, nil
}
