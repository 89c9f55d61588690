// Package middleware holds the HTTP wrappers shared by every fare route.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	mylog "github.com/mohammed-shakir/flight-fare-estimator/internal/logger"
)

// Logging tags the request context with a request id (echoed back in
// X-Request-ID) and the "http" component. Run it before Recover so panics
// are logged with the id.
func Logging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = mylog.NewID()
			}
			w.Header().Set("X-Request-ID", reqID)

			ctx := mylog.WithComponent(mylog.WithRequestID(r.Context(), reqID), "http")
			l.LogAttrs(ctx, slog.LevelDebug, "fare request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", r.URL.RawQuery),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover turns a handler panic into a 500 and logs it on l.
func Recover(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				l.ErrorContext(r.Context(), "handler panic",
					"path", r.URL.Path,
					"panic", fmt.Sprint(rec))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS lets browser front ends call the read-only fare API.
func CORS() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
