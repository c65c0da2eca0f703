package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request through logrus
func RequestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				entry := logger.WithFields(logrus.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      ww.Status(),
					"bytes":       ww.BytesWritten(),
					"duration_ms": time.Since(start).Milliseconds(),
					"remote":      r.RemoteAddr,
				})
				if id := chimw.GetReqID(r.Context()); id != "" {
					entry = entry.WithField("request_id", id)
				}
				switch {
				case ww.Status() >= 500:
					entry.Error("request failed")
				case ww.Status() >= 400:
					entry.Warn("request rejected")
				default:
					entry.Info("request served")
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
