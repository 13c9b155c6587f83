// Package model defines the request and response shapes exchanged across a proxy hop.
package model

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// ProxyRequest is one side of a hop: the request received from the caller,
// or the request built for the upstream.
//
// Ctx is the logical execution context of the request. It carries the
// cancellation signal and the active tracing span.
//
// Path is decoded. RawPath holds the original escaped form when it differs
// from the default encoding of Path (for example an escaped "/"), following
// the url.URL convention.
type ProxyRequest struct {
	Ctx     context.Context
	Method  string
	Path    string
	RawPath string
	Query   url.Values
	Header  http.Header
	Body    io.ReadCloser
}

// EscapedPath returns the path as it appeared on the wire.
func (r *ProxyRequest) EscapedPath() string {
	u := url.URL{Path: r.Path, RawPath: r.RawPath}
	return u.EscapedPath()
}

// URI returns the escaped request path followed by its encoded query, if any.
func (r *ProxyRequest) URI() string {
	if len(r.Query) == 0 {
		return r.EscapedPath()
	}
	return r.EscapedPath() + "?" + r.Query.Encode()
}

// ProxyResponse is the upstream response handed back to the caller.
// The receiver owns Body and must close it.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
