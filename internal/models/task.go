package models

import (
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusToDo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// ParseTaskStatus accepts the canonical values plus a few spellings of in_progress.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo":
		return TaskStatusToDo, true
	case "in_progress", "in-progress", "inprogress", "in progress":
		return TaskStatusInProgress, true
	case "done":
		return TaskStatusDone, true
	default:
		return "", false
	}
}

type Task struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status"`
	AssignedToID *int       `json:"assigned_to_id"`
	GroupID      *int       `json:"group_id"`
	DueDate      *time.Time `json:"due_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsPersonal is true for tasks with no group association.
func (t *Task) IsPersonal() bool {
	return t.GroupID == nil
}

func (t *Task) AssignedTo(userID int) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

func (t *Task) InGroup(groupID int) bool {
	return t.GroupID != nil && *t.GroupID == groupID
}
