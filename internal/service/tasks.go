package service

import (
	"context"
	"strings"
	"time"

	"github.com/chepyr/go-group-tasks/internal/apperr"
	"github.com/chepyr/go-group-tasks/internal/models"
	"github.com/chepyr/go-group-tasks/internal/policy"
	"github.com/sirupsen/logrus"
)

const (
	maxTaskTitleLen       = 200
	maxTaskDescriptionLen = 1000
)

type TaskInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	AssignedToID *int       `json:"assigned_to_id"`
	GroupID      *int       `json:"group_id"`
	DueDate      *time.Time `json:"due_date"`
}

// TaskPatch distinguishes an absent key from an explicit null for the
// nullable references.
type TaskPatch struct {
	Title        *string             `json:"title"`
	Description  *string             `json:"description"`
	Status       *string             `json:"status"`
	AssignedToID Optional[int]       `json:"assigned_to_id"`
	GroupID      Optional[int]       `json:"group_id"`
	DueDate      Optional[time.Time] `json:"due_date"`
}

func validateTaskTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.Invalid("title is required")
	}
	if len(title) > maxTaskTitleLen {
		return "", apperr.Invalid("title too long (max %d chars)", maxTaskTitleLen)
	}
	return title, nil
}

func validateTaskDescription(desc string) error {
	if len(desc) > maxTaskDescriptionLen {
		return apperr.Invalid("description too long (max %d chars)", maxTaskDescriptionLen)
	}
	return nil
}

func parseStatus(s string) (models.TaskStatus, error) {
	status, ok := models.ParseTaskStatus(s)
	if !ok {
		return "", apperr.InvalidStatus(s)
	}
	return status, nil
}

// taskGroup returns the task's group, or nil for a personal task.
func taskGroup(doc *models.Document, t *models.Task) *models.Group {
	if t.GroupID == nil {
		return nil
	}
	return doc.Group(*t.GroupID)
}

// checkAssignee verifies the final assignee of t against its final group.
func checkAssignee(doc *models.Document, t *models.Task) error {
	if t.AssignedToID == nil {
		if t.IsPersonal() {
			return apperr.Invalid("a personal task needs an assignee")
		}
		return nil
	}
	if _, err := requireUser(doc, *t.AssignedToID); err != nil {
		return err
	}
	if t.IsPersonal() {
		return nil
	}
	if g := doc.Group(*t.GroupID); g != nil && !g.HasMember(*t.AssignedToID) {
		return apperr.Invalid("assignee %d is not a member of group %d", *t.AssignedToID, g.ID)
	}
	return nil
}

func (s *Service) CreateTask(ctx context.Context, actor models.User, in TaskInput) (*models.Task, error) {
	title, err := validateTaskTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if err := validateTaskDescription(in.Description); err != nil {
		return nil, err
	}
	status := models.TaskStatusToDo
	if in.Status != "" {
		if status, err = parseStatus(in.Status); err != nil {
			return nil, err
		}
	}

	var created models.Task
	err = s.store.Update(ctx, func(doc *models.Document) error {
		var g *models.Group
		if in.GroupID != nil {
			if g, err = requireGroup(doc, *in.GroupID); err != nil {
				return err
			}
		}
		if err := policy.Evaluate(actor.ID, policy.TaskCreate, policy.Resource{Group: g}).Err(); err != nil {
			return err
		}
		now := s.clock()
		created = models.Task{
			Title:        title,
			Description:  in.Description,
			Status:       status,
			AssignedToID: in.AssignedToID,
			GroupID:      in.GroupID,
			DueDate:      in.DueDate,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if created.AssignedToID == nil {
			created.AssignedToID = intPtr(actor.ID)
		}
		if err := checkAssignee(doc, &created); err != nil {
			return err
		}
		created.ID = doc.NextID(models.CollectionTasks)
		doc.Tasks = append(doc.Tasks, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"task_id": created.ID, "user_id": actor.ID}).Info("task created")
	return &created, nil
}

func (s *Service) GetTask(ctx context.Context, actor models.User, taskID int) (*models.Task, error) {
	var out models.Task
	err := s.store.View(ctx, func(doc *models.Document) error {
		t := doc.Task(taskID)
		if t == nil {
			return apperr.NotFound("task %d not found", taskID)
		}
		res := policy.Resource{Task: t, Group: taskGroup(doc, t)}
		if err := policy.Evaluate(actor.ID, policy.TaskView, res).Err(); err != nil {
			return err
		}
		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks returns every task the actor can see: personal tasks assigned to
// them and tasks of groups they belong to.
func (s *Service) ListTasks(ctx context.Context, actor models.User) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.store.View(ctx, func(doc *models.Document) error {
		for i := range doc.Tasks {
			t := &doc.Tasks[i]
			res := policy.Resource{Task: t, Group: taskGroup(doc, t)}
			if policy.Evaluate(actor.ID, policy.TaskView, res).Allowed {
				tasks = append(tasks, *t)
			}
		}
		return nil
	})
	return tasks, err
}

func (s *Service) ListGroupTasks(ctx context.Context, actor models.User, groupID int) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.store.View(ctx, func(doc *models.Document) error {
		g, err := requireGroup(doc, groupID)
		if err != nil {
			return err
		}
		if err := policy.Evaluate(actor.ID, policy.GroupView, policy.Resource{Group: g}).Err(); err != nil {
			return err
		}
		for _, t := range doc.Tasks {
			if t.InGroup(groupID) {
				tasks = append(tasks, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTask applies p to the task. The returned previous group id is set
// when the task left a group, so callers can notify that group too.
func (s *Service) UpdateTask(ctx context.Context, actor models.User, taskID int, p TaskPatch) (*models.Task, *int, error) {
	var title string
	if p.Title != nil {
		var err error
		if title, err = validateTaskTitle(*p.Title); err != nil {
			return nil, nil, err
		}
	}
	if p.Description != nil {
		if err := validateTaskDescription(*p.Description); err != nil {
			return nil, nil, err
		}
	}
	var status models.TaskStatus
	if p.Status != nil {
		var err error
		if status, err = parseStatus(*p.Status); err != nil {
			return nil, nil, err
		}
	}

	var (
		updated   models.Task
		prevGroup *int
	)
	err := s.store.Update(ctx, func(doc *models.Document) error {
		t := doc.Task(taskID)
		if t == nil {
			return apperr.NotFound("task %d not found", taskID)
		}
		res := policy.Resource{Task: t, Group: taskGroup(doc, t)}
		if err := policy.Evaluate(actor.ID, policy.TaskUpdate, res).Err(); err != nil {
			return err
		}

		next := *t
		if p.GroupID.Set {
			if p.GroupID.Value != nil {
				target, err := requireGroup(doc, *p.GroupID.Value)
				if err != nil {
					return err
				}
				if err := policy.Evaluate(actor.ID, policy.TaskMoveToGroup, policy.Resource{Group: target, Task: t}).Err(); err != nil {
					return err
				}
				next.GroupID = intPtr(target.ID)
			} else {
				next.GroupID = nil
			}
		}
		if p.AssignedToID.Set {
			next.AssignedToID = p.AssignedToID.Value
		}
		if err := checkAssignee(doc, &next); err != nil {
			return err
		}
		if p.Title != nil {
			next.Title = title
		}
		if p.Description != nil {
			next.Description = *p.Description
		}
		if p.Status != nil {
			next.Status = status
		}
		if p.DueDate.Set {
			next.DueDate = p.DueDate.Value
		}
		next.UpdatedAt = s.clock()

		if t.GroupID != nil && !next.InGroup(*t.GroupID) {
			prevGroup = intPtr(*t.GroupID)
		}
		*t = next
		updated = next
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, prevGroup, nil
}

// DeleteTask removes the task and returns it as it was.
func (s *Service) DeleteTask(ctx context.Context, actor models.User, taskID int) (*models.Task, error) {
	var deleted models.Task
	err := s.store.Update(ctx, func(doc *models.Document) error {
		t := doc.Task(taskID)
		if t == nil {
			return apperr.NotFound("task %d not found", taskID)
		}
		res := policy.Resource{Task: t, Group: taskGroup(doc, t)}
		if err := policy.Evaluate(actor.ID, policy.TaskDelete, res).Err(); err != nil {
			return err
		}
		deleted = *t
		doc.DeleteTask(taskID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("task_id", taskID).Info("task deleted")
	return &deleted, nil
}
