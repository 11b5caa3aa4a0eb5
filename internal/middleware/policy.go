package middleware

import (
	"net/http"

	"github.com/modelgate-platform/modelgate/internal/classify"
	"github.com/modelgate-platform/modelgate/internal/metrics"
)

// PolicyBypass classifies each request path and short-circuits the kinds
// that skip policy entirely: the liveness probe and static assets. API and
// page requests fall through to the router, where session and quota
// enforcement is mounted per route.
func PolicyBypass(staticDir string) func(http.Handler) http.Handler {
	fileServer := http.FileServer(http.Dir(staticDir))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			kind := classify.Classify(r.URL.Path)
			metrics.RequestsClassifiedTotal.WithLabelValues(kind.String()).Inc()

			switch kind {
			case classify.KindHealthCheck:
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"status":"alive"}`))
			case classify.KindStaticAsset:
				fileServer.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
