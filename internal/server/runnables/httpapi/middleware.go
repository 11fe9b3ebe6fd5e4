package httpapi

import (
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// logRequests tags every request with an ID and logs method, path, status,
// and duration. The watch endpoint hijacks the connection, so it bypasses
// the status recorder.
func (r *Runner) logRequests(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := uuid.NewV6()
		if err != nil {
			r.logger.Error("failed to generate request ID", "error", err)
			next(w, req)
			return
		}

		logger := r.logger.With("request_id", id)
		start := time.Now()

		if req.Header.Get("Upgrade") == "websocket" {
			logger.Debug("HTTP request", "method", req.Method, "path", req.URL.Path)
			next(w, req)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, req)

		logger.Debug("HTTP request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	}
}
