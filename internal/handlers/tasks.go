package handlers

import (
	"net/http"
	"strconv"

	"github.com/chepyr/go-group-tasks/internal/service"
)

/*
handles routes:
- GET /tasks - tasks visible to the caller
- POST /tasks - create a personal task, or a group task when group_id is set
*/
func (h *Handler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		tasks, err := h.Service.ListTasks(r.Context(), user)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		sendJSON(w, http.StatusOK, tasks)

	case http.MethodPost:
		var input service.TaskInput
		if !decodeJSON(w, r, &input) {
			return
		}
		task, err := h.Service.CreateTask(r.Context(), user, input)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		h.WSHub.taskEvent(EventTaskCreated, task)
		w.Header().Set("Location", "/tasks/"+strconv.Itoa(task.ID))
		sendJSON(w, http.StatusCreated, task)

	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

/*
routes:
- GET /tasks/{id}
- PUT|PATCH /tasks/{id} - partial update; null group_id makes the task personal
- DELETE /tasks/{id}
*/
func (h *Handler) HandleTaskByID(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		task, err := h.Service.GetTask(r.Context(), user, taskID)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		sendJSON(w, http.StatusOK, task)

	case http.MethodPut, http.MethodPatch:
		var patch service.TaskPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		task, prevGroup, err := h.Service.UpdateTask(r.Context(), user, taskID, patch)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		h.WSHub.taskEvent(EventTaskUpdated, task)
		if prevGroup != nil {
			h.WSHub.Broadcast(Event{Event: EventTaskDeleted, GroupID: *prevGroup, Task: task})
		}
		sendJSON(w, http.StatusOK, task)

	case http.MethodDelete:
		task, err := h.Service.DeleteTask(r.Context(), user, taskID)
		if err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		h.WSHub.taskEvent(EventTaskDeleted, task)
		w.WriteHeader(http.StatusNoContent)

	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
