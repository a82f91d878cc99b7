package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"VTube/logger"
	"VTube/metrics"

	"github.com/gorilla/mux"
)

// Limiter decides whether another request from key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// corsMiddleware answers preflight requests. With "*" any origin may call without
// credentials; otherwise only the listed origins are echoed and may send cookies.
func corsMiddleware(origins string, next http.Handler) http.Handler {
	wildcard := strings.TrimSpace(origins) == "*"
	allowed := make(map[string]bool)
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" && o != "*" {
			allowed[o] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch origin := r.Header.Get("Origin"); {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		default:
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit rejects requests over the limiter's budget with 429.
// A limiter error lets the request through.
func rateLimit(limiter Limiter, trustProxy bool, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, trustProxy)
		ok, err := limiter.Allow(r.Context(), ip)
		if err != nil {
			logger.Warn("[RateLimit] limiter unavailable, allowing request", logger.String("ip", ip), logger.ErrorField(err))
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			metrics.RateLimitedTotal.Inc()
			logger.Warn("[RateLimit] request rejected", logger.String("ip", ip), logger.String("path", r.URL.Path))
			writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger logs one line per request and records request metrics by route template.
func requestLogger(trustProxy bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			logger.Info("[HTTP] request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", rec.status),
				logger.Duration("duration", time.Since(start)),
				logger.String("ip", clientIP(r, trustProxy)))
		})
	}
}

// clientIP returns the connection address, or the first X-Forwarded-For hop
// when the server sits behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
