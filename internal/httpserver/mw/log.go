package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap/zapcore"

	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/utils"
)

// Log writes one line per request, keyed by the matched route so that
// item ids do not fan out into distinct paths.
func Log(log logger.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			fields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("route", route),
				logger.String("path", r.URL.Path),
				logger.Int("status", status),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("duration", time.Since(start)),
				logger.String("client_ip", utils.ClientIP(r, trustProxy)),
				logger.String("request_id", middleware.GetReqID(r.Context())),
			}

			switch requestLevel(status, route) {
			case zapcore.ErrorLevel:
				log.Error("http_request", fields...)
			case zapcore.WarnLevel:
				log.Warn("http_request", fields...)
			case zapcore.DebugLevel:
				log.Debug("http_request", fields...)
			default:
				log.Info("http_request", fields...)
			}
		})
	}
}

// routePattern is the chi pattern that served r, or the raw path when
// no route matched.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// requestLevel: server errors at Error, rejected clients at Warn, health checks
// at Debug.
func requestLevel(status int, route string) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status == http.StatusTooManyRequests, status == http.StatusForbidden, status == http.StatusUnauthorized:
		return zapcore.WarnLevel
	case route == "/healthz" || route == "/readyz":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
