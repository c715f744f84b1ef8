package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chepyr/go-group-tasks/internal/apperr"
	"github.com/chepyr/go-group-tasks/internal/auth"
	"github.com/chepyr/go-group-tasks/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	Service       *service.Service
	Tokens        auth.TokenManager
	TokenTTL      time.Duration
	RateLimiter   *RateLimiter
	WSHub         *WSHub
	Log           logrus.FieldLogger
	InviteBaseURL string
	// AllowedOrigins restricts websocket upgrades; empty means same origin only.
	AllowedOrigins []string
}

type errorResponse struct {
	Error string `json:"error"`
}

func sendError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindInvalid, apperr.KindInvalidStatus:
		return http.StatusBadRequest
	case apperr.KindExpired:
		return http.StatusGone
	}
	if errors.Is(err, service.ErrInvalidCredentials) {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// sendServiceError maps a service error to its status. Internal failures are
// logged and hidden from the client.
func (h *Handler) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger(r).WithError(err).Error("request failed")
		sendError(w, "Internal server error", status)
		return
	}
	sendError(w, err.Error(), status)
}

func (h *Handler) logger(r *http.Request) logrus.FieldLogger {
	log := h.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if id := requestIDFrom(r.Context()); id != "" {
		return log.WithField("request_id", id)
	}
	return log
}

func isJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(strings.ToLower(ct), "application/json")
}

// decodeJSON reads a JSON body of at most 1MB into v and reports failures to
// the client itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id < 1 {
		sendError(w, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
