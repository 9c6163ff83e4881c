package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"healthops/internal/models"
)

const (
	requestIDHeader = "X-Request-Id"
	actorHeader     = "X-Actor"
	roleHeader      = "X-Role"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		actor, role := identity(r)
		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Str("actor", actor).
			Str("role", string(role)).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// identity reads the caller's display id and role. Roles are advisory and
// only logged.
func identity(r *http.Request) (string, models.Role) {
	return strings.TrimSpace(r.Header.Get(actorHeader)), models.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(roleHeader))))
}
