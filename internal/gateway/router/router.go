// Package router wires up all API gateway routes and applies the middleware
// chain (RequestID → CORS → Auth → RateLimit).
package router

import (
	"net/http"

	"github.com/permscan/permscan/internal/auth/apikey"
	"github.com/permscan/permscan/internal/auth/ratelimit"
	gwhandler "github.com/permscan/permscan/internal/gateway/handler"
	gwmw "github.com/permscan/permscan/internal/gateway/middleware"
	pkgmw "github.com/permscan/permscan/pkg/middleware"
)

// New builds the full gateway HTTP handler with all routes and middleware.
//
// Route table:
//
//	POST   /api/v1/texts              → ingestion service (proxy)
//	DELETE /api/v1/texts/{id}         → ingestion service (proxy)
//	GET    /api/v1/texts              → list texts        (direct DB)
//	GET    /api/v1/texts/{id}         → get text          (direct DB)
//	GET    /api/v1/scan               → scanner service   (proxy)
//	GET    /api/v1/corpus/stats       → scanner service   (proxy)
//	GET    /api/v1/cache/stats        → scanner service   (proxy)
//	POST   /api/v1/cache/invalidate   → scanner service   (proxy)
//	GET    /api/v1/analytics/stats    → analytics service (proxy)
//	POST   /api/v1/admin/keys         → create API key    (direct DB)
//	GET    /api/v1/admin/keys         → list API keys     (direct DB)
//	GET    /health                    → gateway health
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Auth → RateLimit → handler
func New(h *gwhandler.Handler, validator *apikey.Validator, limiter *ratelimit.Limiter) http.Handler {
	mux := http.NewServeMux()

	// Health (unauthenticated)
	mux.HandleFunc("GET /health", h.Health)

	// Text API
	mux.HandleFunc("POST /api/v1/texts", h.ProxySubmit)
	mux.HandleFunc("DELETE /api/v1/texts/{id}", h.ProxyRemove)
	mux.HandleFunc("GET /api/v1/texts", h.ListTexts)
	mux.HandleFunc("GET /api/v1/texts/{id}", h.GetText)

	// Scan API
	mux.HandleFunc("GET /api/v1/scan", h.ProxyScan)
	mux.HandleFunc("GET /api/v1/corpus/stats", h.ProxyCorpusStats)

	// Cache API
	mux.HandleFunc("GET /api/v1/cache/stats", h.ProxyCacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.ProxyCacheInvalidate)

	// Analytics API
	mux.HandleFunc("GET /api/v1/analytics/stats", h.ProxyAnalytics)

	// Admin API
	mux.HandleFunc("POST /api/v1/admin/keys", h.CreateAPIKey)
	mux.HandleFunc("GET /api/v1/admin/keys", h.ListAPIKeys)

	// Middleware chain, applied inside-out:
	// request → RequestID → CORS → Auth → RateLimit → mux
	var chain http.Handler = mux
	chain = gwmw.RateLimit(limiter)(chain)
	chain = gwmw.Auth(validator)(chain)
	chain = gwmw.CORS(gwmw.DefaultCORSConfig())(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
