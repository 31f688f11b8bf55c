package logger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// SlowRequestThreshold marks requests that took long enough to count as slow
const SlowRequestThreshold = time.Second

// RequestLogger logs each HTTP request and feeds the response counters
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		}

		switch {
		case status >= 500:
			ErrorHttp5xx()
			Logger.Error("request", args...)
		case status >= 400:
			WarnHttp4xx(status)
			Logger.Info("request", args...)
		default:
			Logger.Info("request", args...)
		}

		if elapsed > SlowRequestThreshold {
			WarnSlowRequest()
			Warn("slow request", "path", r.URL.Path, "duration_ms", elapsed.Milliseconds())
		}
	})
}
