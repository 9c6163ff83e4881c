package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"healthops/internal/export"
	"healthops/internal/lifecycle"
	"healthops/internal/models"
	"healthops/internal/statusclock"
	"healthops/internal/workflow"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// statusFor maps service and view errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound), errors.Is(err, workflow.ErrRecordNotFound), errors.Is(err, workflow.ErrUnknownContext):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrUnknownTab), errors.Is(err, export.ErrUnknownSink):
		return http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrGuardViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lifecycle.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) campJSON(c models.Camp, now time.Time) map[string]any {
	doc := c.Document()
	doc["id"] = c.ID
	doc[models.FieldVersion] = c.Version
	doc["displayStatus"] = statusclock.CampDisplayStatus(c, now.In(s.deps.Location))
	doc["totalExpense"] = c.TotalExpense()
	if units := s.deps.Formatter.UnitsSold(c); units != nil {
		doc["displayUnitsSold"] = *units
	}
	return doc
}

func (s *HTTPServer) bookingJSON(b models.TestBooking) map[string]any {
	doc := b.Document()
	doc["id"] = b.ID
	doc[models.FieldVersion] = b.Version
	doc["stage"] = statusclock.BookingStage(b)
	doc[models.FieldReportStatus] = b.EffectiveReportStatus()
	return doc
}

// writeCamp answers a camp mutation. A locked record is not an error to the
// caller: it gets the current record back marked unchanged.
func (s *HTTPServer) writeCamp(w http.ResponseWriter, status int, c models.Camp, err error) {
	now := s.deps.Now()
	switch {
	case err == nil:
		writeJSON(w, status, map[string]any{"status": "ok", "record": s.campJSON(c, now)})
	case errors.Is(err, lifecycle.ErrAlreadyLocked):
		writeJSON(w, http.StatusOK, map[string]any{"status": "unchanged", "message": lifecycle.Reason(err), "record": s.campJSON(c, now)})
	default:
		s.writeFailure(w, err)
	}
}

func (s *HTTPServer) writeBooking(w http.ResponseWriter, status int, b models.TestBooking, err error) {
	switch {
	case err == nil:
		writeJSON(w, status, map[string]any{"status": "ok", "record": s.bookingJSON(b)})
	case errors.Is(err, lifecycle.ErrAlreadyLocked):
		writeJSON(w, http.StatusOK, map[string]any{"status": "unchanged", "message": lifecycle.Reason(err), "record": s.bookingJSON(b)})
	default:
		s.writeFailure(w, err)
	}
}

func (s *HTTPServer) writeFailure(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}
	writeError(w, code, lifecycle.Reason(err))
}
