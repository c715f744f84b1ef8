package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/chepyr/go-group-tasks/internal/apperr"
	"github.com/chepyr/go-group-tasks/internal/models"
	"github.com/google/uuid"
)

type ctxKey int

const (
	userKey ctxKey = iota
	requestIDKey
)

const accessTokenCookie = "access_token"

// bearerToken takes the token from the Authorization header, falling back to
// the access_token cookie set at login.
func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(accessTokenCookie); err == nil {
		return strings.TrimPrefix(c.Value, "Bearer ")
	}
	return ""
}

/*
Verify the JWT, load the user it names and put it in the request context.
Unknown or inactive users are rejected even with a valid signature.
*/
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			sendError(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}
		userID, err := h.Tokens.Verify(token)
		if err != nil {
			sendError(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		user, err := h.Service.GetUser(r.Context(), userID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				sendError(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			h.sendServiceError(w, r, err)
			return
		}
		if !user.IsActive {
			sendError(w, "Inactive user", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, *user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) (models.User, bool) {
	u, ok := r.Context().Value(userKey).(models.User)
	return u, ok
}

// RequestID tags every request with an id, reusing X-Request-ID when the
// client sent one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
