package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/mw"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	mws []Middleware
}

var registry []entry

// Register a registrar with optional per-route middlewares.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// Called once from server.New()
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		if len(e.mws) == 0 {
			e.reg(r, d)
			continue
		}
		sub := r.With(e.mws...) // apply per-route middlewares
		e.reg(sub, d)
	}
}

// guarded restricts a route to the allowed networks and hosts.
func guarded(r chi.Router, d deps.Deps) chi.Router {
	return r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))
}

// writes adds the per-IP rate limit of state-changing routes.
func writes(r chi.Router, d deps.Deps) chi.Router {
	r = guarded(r, d)
	if d.RateLimitBurst <= 0 {
		return r
	}
	return r.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.RateLimitBurst,
		RefillPerIPPerMin: d.RateLimitPerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
	}))
}
