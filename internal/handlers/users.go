package handlers

import (
	"net/http"
	"time"

	"github.com/chepyr/go-group-tasks/internal/models"
	"github.com/chepyr/go-group-tasks/internal/service"
)

// userResponse is a user without the password digest.
type userResponse struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// actor returns the authenticated user, answering 401 when there is none.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := currentUser(r)
	if !ok {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
	}
	return user, ok
}

// POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	user, err := h.Service.Register(r.Context(), service.RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		FullName: input.FullName,
	})
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/me")
	sendJSON(w, http.StatusCreated, toUserResponse(*user))
}

// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	user, err := h.Service.Authenticate(r.Context(), input.Email, input.Password)
	if err != nil {
		h.logger(r).WithField("email", input.Email).Info("login rejected")
		h.sendServiceError(w, r, err)
		return
	}
	token, err := h.Tokens.Mint(user.ID)
	if err != nil {
		h.logger(r).WithError(err).Error("mint token")
		sendError(w, "Cannot create token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	sendJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         toUserResponse(*user),
	})
	h.logger(r).WithField("user_id", user.ID).Info("user logged in")
}

/*
handles routes:
- GET /me - the authenticated user
- PATCH /me - update full_name, password or is_active
- DELETE /me - delete the account
*/
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		sendJSON(w, http.StatusOK, toUserResponse(user))

	case http.MethodPatch:
		var patch service.UserPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		updated, err := h.Service.UpdateUser(r.Context(), user, user.ID, patch)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		if !updated.IsActive {
			h.WSHub.DropUser(user.ID)
		}
		sendJSON(w, http.StatusOK, toUserResponse(*updated))

	case http.MethodDelete:
		// owned groups go with the account, so their watchers are disconnected too
		groups, err := h.Service.ListGroups(r.Context(), user)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		if err := h.Service.DeleteUser(r.Context(), user, user.ID); err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		h.WSHub.DropUser(user.ID)
		for _, g := range groups {
			if g.OwnerID == user.ID {
				h.WSHub.DropGroup(g.ID)
			}
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
