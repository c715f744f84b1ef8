package handlers

import (
	"net/http"
	"strings"

	"github.com/chepyr/go-group-tasks/internal/models"
	"github.com/chepyr/go-group-tasks/internal/service"
	"github.com/gorilla/mux"
)

type inviteResponse struct {
	URL    string         `json:"url"`
	Invite *models.Invite `json:"invite"`
}

/*
handles routes:
- GET /groups/{id}/invites - owner only; every invite with its current state
- POST /groups/{id}/invites - owner only; body {"expires_in_days": 7, "max_uses": 1}, both optional
*/
func (h *Handler) HandleGroupInvites(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		invites, err := h.Service.ListInvites(r.Context(), user, groupID)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		sendJSON(w, http.StatusOK, invites)

	case http.MethodPost:
		var input struct {
			ExpiresInDays *int `json:"expires_in_days"`
			MaxUses       *int `json:"max_uses"`
		}
		if r.ContentLength != 0 && !decodeJSON(w, r, &input) {
			return
		}
		ttl, uses := service.DefaultInviteTTLDays, service.DefaultInviteMaxUses
		if input.ExpiresInDays != nil {
			ttl = *input.ExpiresInDays
		}
		if input.MaxUses != nil {
			uses = *input.MaxUses
		}

		invite, err := h.Service.CreateInvite(r.Context(), user, groupID, ttl, uses)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		sendJSON(w, http.StatusCreated, inviteResponse{
			URL:    h.InviteBaseURL + "/groups/invite/" + invite.Token,
			Invite: invite,
		})

	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

/*
handles routes:
- POST /invites/join - body {"token": "..."}
- POST /groups/invite/{token} - the link handed out at creation
*/
func (h *Handler) JoinInvite(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	token := mux.Vars(r)["token"]
	if token == "" {
		var input struct {
			Token string `json:"token"`
		}
		if !decodeJSON(w, r, &input) {
			return
		}
		token = strings.TrimSpace(input.Token)
	}
	if token == "" {
		sendError(w, "token is required", http.StatusBadRequest)
		return
	}

	groupID, err := h.Service.RedeemInvite(r.Context(), token, user.ID)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.WSHub.Broadcast(Event{Event: EventMemberJoined, GroupID: groupID, UserID: user.ID})
	sendJSON(w, http.StatusOK, map[string]any{"status": "joined", "group_id": groupID})
}

// DELETE /invites/{id}
func (h *Handler) RevokeInvite(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}
	inviteID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.RevokeInvite(r.Context(), user, inviteID); err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
