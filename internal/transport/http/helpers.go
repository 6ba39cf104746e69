package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"exam-quiz-service/internal/config"
	"exam-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusFor maps domain error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoQuestionsResolved):
		return http.StatusFailedDependency
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := config.WithContext(r.Context()).WithError(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
		if status == http.StatusInternalServerError {
			writeJSON(w, status, errorResponse{Error: "request failed"})
			return
		}
	} else {
		log.Debug("request rejected")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return id, nil
}

func parseStudentID(r *http.Request) (int64, error) {
	value := strings.TrimSpace(r.URL.Query().Get("studentId"))
	if value == "" {
		return 0, errors.New("studentId is required")
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("studentId must be a positive integer")
	}
	return id, nil
}
