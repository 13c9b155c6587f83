package service

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// hopByHopHeaders are the lowercase names of headers that never cross a hop,
// in either direction.
var hopByHopHeaders = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authorization": true,
	"proxy-authenticate":  true,
	"proxy-connection":    true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

// upstreamDefaultHeaders are response headers describing the upstream server
// itself rather than the resource.
var upstreamDefaultHeaders = map[string]bool{
	"date":   true,
	"server": true,
}

// IsHopByHop reports whether name, in any letter case, is a hop-by-hop header.
func IsHopByHop(name string) bool {
	return hopByHopHeaders[strings.ToLower(name)]
}

// filterRequestHeaders copies every non hop-by-hop header of src, keeping
// the original key spelling and every value in order.
func filterRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if IsHopByHop(key) {
			continue
		}
		dst[key] = slices.Clone(vals)
	}
	return dst
}

// stripResponseHeaders removes hop-by-hop headers and the upstream's Date and
// Server headers from h in place.
func stripResponseHeaders(h http.Header) {
	for key := range h {
		lower := strings.ToLower(key)
		if hopByHopHeaders[lower] || upstreamDefaultHeaders[lower] {
			delete(h, key)
		}
	}
}

func copyQuery(src url.Values) url.Values {
	dst := make(url.Values, len(src))
	for key, vals := range src {
		dst[key] = slices.Clone(vals)
	}
	return dst
}
