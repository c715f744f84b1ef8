package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/chepyr/go-group-tasks/internal/models"
)

func (e *testEnv) createTask(t *testing.T, token string, body map[string]any) models.Task {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/tasks", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: want 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var task models.Task
	decode(t, rec, &task)
	return task
}

func TestTasks_PersonalFlow(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.signup(t, "alice")
	_, bob := env.signup(t, "bob")

	task := env.createTask(t, alice, map[string]any{"title": "buy milk"})
	path := fmt.Sprintf("/tasks/%d", task.ID)

	if rec := env.do(t, http.MethodGet, path, bob, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("bob get: want 403, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPatch, path, bob, map[string]any{"status": "done"}); rec.Code != http.StatusForbidden {
		t.Fatalf("bob patch: want 403, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodPatch, path, alice, map[string]any{"status": "done"})
	if rec.Code != http.StatusOK {
		t.Fatalf("alice patch: want 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var updated models.Task
	decode(t, rec, &updated)
	if updated.Status != models.TaskStatusDone {
		t.Fatalf("status = %q, want done", updated.Status)
	}

	if rec := env.do(t, http.MethodPatch, path, alice, map[string]any{"status": "archived"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status: want 400, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/tasks/999", alice, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing task: want 404, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, path, alice, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: want 204, got %d", rec.Code)
	}
}

func TestTasks_GroupScope(t *testing.T) {
	env := newTestEnv(t)
	_, owner := env.signup(t, "owner")
	_, outsider := env.signup(t, "outsider")
	g := env.createGroup(t, owner, "Eng")

	rec := env.do(t, http.MethodPost, "/tasks", outsider, map[string]any{"title": "sneaky", "group_id": g.ID})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("outsider create: want 403, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/tasks", owner, map[string]any{"title": "x", "group_id": 999})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing group: want 404, got %d", rec.Code)
	}

	task := env.createTask(t, owner, map[string]any{"title": "ship it", "group_id": g.ID})
	if task.GroupID == nil || *task.GroupID != g.ID {
		t.Fatalf("task not in group: %+v", task)
	}
	if rec := env.do(t, http.MethodGet, fmt.Sprintf("/groups/%d/tasks", g.ID), outsider, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("outsider list: want 403, got %d", rec.Code)
	}

	// a null group_id turns the task personal
	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/tasks/%d", task.ID), owner, map[string]any{"group_id": nil})
	if rec.Code != http.StatusOK {
		t.Fatalf("ungroup: want 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var updated models.Task
	decode(t, rec, &updated)
	if !updated.IsPersonal() {
		t.Fatalf("want personal task, got group %v", *updated.GroupID)
	}

	rec = env.do(t, http.MethodGet, "/tasks", owner, nil)
	var tasks []models.Task
	decode(t, rec, &tasks)
	if len(tasks) != 1 {
		t.Fatalf("want 1 visible task, got %d", len(tasks))
	}
}
