package handlers

import (
	"net/http"

	"github.com/chepyr/go-group-tasks/internal/service"
)

/*
handles routes:
- GET /groups - list groups the caller belongs to
- POST /groups - create a group owned by the caller
*/
func (h *Handler) HandleGroups(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		groups, err := h.Service.ListGroups(r.Context(), user)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		sendJSON(w, http.StatusOK, groups)

	case http.MethodPost:
		var input struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if !decodeJSON(w, r, &input) {
			return
		}
		group, err := h.Service.CreateGroup(r.Context(), user, input.Name, input.Description)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		sendJSON(w, http.StatusCreated, group)

	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

/*
handles routes:
- GET /groups/{id} - members only
- PUT /groups/{id} - owner only; name and/or description
- DELETE /groups/{id} - owner only; removes the group's tasks and invites too
*/
func (h *Handler) HandleGroupByID(w http.ResponseWriter, r *http.Request) {
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
		group, err := h.Service.GetGroup(r.Context(), user, groupID)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		sendJSON(w, http.StatusOK, group)

	case http.MethodPut, http.MethodPatch:
		var patch service.GroupPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		group, err := h.Service.UpdateGroup(r.Context(), user, groupID, patch)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		sendJSON(w, http.StatusOK, group)

	case http.MethodDelete:
		if err := h.Service.DeleteGroup(r.Context(), user, groupID); err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		h.WSHub.DropGroup(groupID)
		w.WriteHeader(http.StatusNoContent)

	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// POST /groups/{id}/members with {"user_id": n}
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var input struct {
		UserID int `json:"user_id"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.UserID < 1 {
		sendError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	group, err := h.Service.AddMember(r.Context(), user, groupID, input.UserID)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.WSHub.Broadcast(Event{Event: EventMemberJoined, GroupID: groupID, UserID: input.UserID})
	sendJSON(w, http.StatusOK, group)
}

// DELETE /groups/{id}/members/{userID}; members may remove themselves.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	if _, err := h.Service.RemoveMember(r.Context(), user, groupID, memberID); err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.WSHub.DropMember(groupID, memberID)
	w.WriteHeader(http.StatusNoContent)
}

// GET /groups/{id}/tasks
func (h *Handler) ListGroupTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tasks, err := h.Service.ListGroupTasks(r.Context(), user, groupID)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, tasks)
}
