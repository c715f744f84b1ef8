package handlers

import (
	"net/http"
	"time"

	"github.com/chepyr/go-group-tasks/internal/metrics"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Router wires every route. m may be nil, which drops /metrics and the
// request counter.
func (h *Handler) Router(m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, h.accessLog)
	if m != nil {
		r.Use(m.Middleware)
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	register, login := h.Register, h.Login
	if h.RateLimiter != nil {
		register, login = h.RateLimiter.Limit(register), h.RateLimiter.Limit(login)
	}
	r.HandleFunc("/register", register).Methods(http.MethodPost)
	r.HandleFunc("/login", login).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(h.AuthMiddleware)
	api.HandleFunc("/me", h.HandleMe)
	api.HandleFunc("/groups", h.HandleGroups)
	api.HandleFunc("/groups/invite/{token}", h.JoinInvite).Methods(http.MethodPost)
	api.HandleFunc("/groups/{id:[0-9]+}", h.HandleGroupByID)
	api.HandleFunc("/groups/{id:[0-9]+}/members", h.AddMember).Methods(http.MethodPost)
	api.HandleFunc("/groups/{id:[0-9]+}/members/{userID:[0-9]+}", h.RemoveMember).Methods(http.MethodDelete)
	api.HandleFunc("/groups/{id:[0-9]+}/tasks", h.ListGroupTasks).Methods(http.MethodGet)
	api.HandleFunc("/groups/{id:[0-9]+}/invites", h.HandleGroupInvites)
	api.HandleFunc("/invites/join", h.JoinInvite).Methods(http.MethodPost)
	api.HandleFunc("/invites/{id:[0-9]+}", h.RevokeInvite).Methods(http.MethodDelete)
	api.HandleFunc("/tasks", h.HandleTasks)
	api.HandleFunc("/tasks/{id:[0-9]+}", h.HandleTaskByID)
	api.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sendError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger(r).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request handled")
	})
}
