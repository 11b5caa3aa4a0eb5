// Package classify sorts inbound request paths into coarse kinds so the
// request-handling layer knows which policy checks apply. It enforces
// nothing itself.
package classify

import (
	"path"
	"strings"
)

// Kind is the classification of an inbound request path.
type Kind int

const (
	// KindHealthCheck is the liveness path; it bypasses every policy check.
	KindHealthCheck Kind = iota
	// KindStaticAsset is a public asset; no identity is needed to serve it.
	KindStaticAsset
	// KindAPI is a JSON API route. Which checks run depends on the endpoint.
	KindAPI
	// KindPage is any other route, served as an application page.
	KindPage
)

func (k Kind) String() string {
	switch k {
	case KindHealthCheck:
		return "health_check"
	case KindStaticAsset:
		return "static_asset"
	case KindAPI:
		return "api"
	default:
		return "page"
	}
}

// HealthPath is the fixed liveness endpoint.
const HealthPath = "/ping"

var assetPrefixes = []string{"/assets/", "/images/", "/static/"}

// Classify maps a request path to its Kind. Deterministic and pure:
// the same path always yields the same kind.
func Classify(p string) Kind {
	if p == HealthPath {
		return KindHealthCheck
	}
	if p == "/favicon.ico" || p == "/robots.txt" {
		return KindStaticAsset
	}
	for _, prefix := range assetPrefixes {
		if strings.HasPrefix(p, prefix) {
			return KindStaticAsset
		}
	}
	if p == "/api" || strings.HasPrefix(p, "/api/") {
		return KindAPI
	}
	// A file extension on the final segment marks an asset wherever it lives.
	if path.Ext(path.Base(p)) != "" {
		return KindStaticAsset
	}
	return KindPage
}

// BypassesPolicy reports whether requests of this kind skip identity,
// entitlement, and quota checks entirely.
func (k Kind) BypassesPolicy() bool {
	return k == KindHealthCheck || k == KindStaticAsset
}
