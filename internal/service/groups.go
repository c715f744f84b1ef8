package service

import (
	"context"
	"strings"

	"github.com/chepyr/go-group-tasks/internal/apperr"
	"github.com/chepyr/go-group-tasks/internal/models"
	"github.com/chepyr/go-group-tasks/internal/policy"
	"github.com/sirupsen/logrus"
)

const (
	maxGroupNameLen        = 100
	maxGroupDescriptionLen = 500
)

func validateGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxGroupNameLen {
		return "", apperr.Invalid("name is required and must be <= %d characters", maxGroupNameLen)
	}
	return name, nil
}

func validateGroupDescription(desc string) error {
	if len(desc) > maxGroupDescriptionLen {
		return apperr.Invalid("description must be <= %d characters", maxGroupDescriptionLen)
	}
	return nil
}

func (s *Service) CreateGroup(ctx context.Context, actor models.User, name, description string) (*models.Group, error) {
	name, err := validateGroupName(name)
	if err != nil {
		return nil, err
	}
	if err := validateGroupDescription(description); err != nil {
		return nil, err
	}

	var created *models.Group
	err = s.store.Update(ctx, func(doc *models.Document) error {
		if _, err := requireUser(doc, actor.ID); err != nil {
			return err
		}
		if doc.GroupByName(name) != nil {
			return apperr.Conflict("group name %q is already used", name)
		}
		now := s.clock()
		g := models.Group{
			ID:          doc.NextID(models.CollectionGroups),
			Name:        name,
			Description: description,
			OwnerID:     actor.ID,
			Members:     []int{actor.ID},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		doc.Groups = append(doc.Groups, g)
		created = cloneGroup(&g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"group_id": created.ID, "owner_id": actor.ID}).Info("group created")
	return created, nil
}

func (s *Service) GetGroup(ctx context.Context, actor models.User, groupID int) (*models.Group, error) {
	var out *models.Group
	err := s.store.View(ctx, func(doc *models.Document) error {
		g, err := requireGroup(doc, groupID)
		if err != nil {
			return err
		}
		if err := policy.Evaluate(actor.ID, policy.GroupView, policy.Resource{Group: g}).Err(); err != nil {
			return err
		}
		out = cloneGroup(g)
		return nil
	})
	return out, err
}

// ListGroups returns the groups whose member set contains the actor.
func (s *Service) ListGroups(ctx context.Context, actor models.User) ([]models.Group, error) {
	groups := []models.Group{}
	err := s.store.View(ctx, func(doc *models.Document) error {
		for i := range doc.Groups {
			if doc.Groups[i].HasMember(actor.ID) {
				groups = append(groups, *cloneGroup(&doc.Groups[i]))
			}
		}
		return nil
	})
	return groups, err
}

type GroupPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Service) UpdateGroup(ctx context.Context, actor models.User, groupID int, p GroupPatch) (*models.Group, error) {
	var name string
	if p.Name != nil {
		var err error
		if name, err = validateGroupName(*p.Name); err != nil {
			return nil, err
		}
	}
	if p.Description != nil {
		if err := validateGroupDescription(*p.Description); err != nil {
			return nil, err
		}
	}

	var out *models.Group
	err := s.store.Update(ctx, func(doc *models.Document) error {
		g, err := requireGroup(doc, groupID)
		if err != nil {
			return err
		}
		if err := policy.Evaluate(actor.ID, policy.GroupUpdate, policy.Resource{Group: g}).Err(); err != nil {
			return err
		}
		if p.Name != nil {
			if other := doc.GroupByName(name); other != nil && other.ID != g.ID {
				return apperr.Conflict("group name %q is already used", name)
			}
			g.Name = name
		}
		if p.Description != nil {
			g.Description = *p.Description
		}
		g.UpdatedAt = s.clock()
		out = cloneGroup(g)
		return nil
	})
	return out, err
}

// DeleteGroup removes the group, every task scoped to it and its invites.
func (s *Service) DeleteGroup(ctx context.Context, actor models.User, groupID int) error {
	err := s.store.Update(ctx, func(doc *models.Document) error {
		g, err := requireGroup(doc, groupID)
		if err != nil {
			return err
		}
		if err := policy.Evaluate(actor.ID, policy.GroupDelete, policy.Resource{Group: g}).Err(); err != nil {
			return err
		}
		doc.DeleteGroup(groupID)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithField("group_id", groupID).Info("group deleted")
	return nil
}

// AddMember lets the owner add a user directly, bypassing invites. Adding an
// existing member is a no-op.
func (s *Service) AddMember(ctx context.Context, actor models.User, groupID, userID int) (*models.Group, error) {
	var out *models.Group
	err := s.store.Update(ctx, func(doc *models.Document) error {
		g, err := requireGroup(doc, groupID)
		if err != nil {
			return err
		}
		if err := policy.Evaluate(actor.ID, policy.GroupManageMembers, policy.Resource{Group: g}).Err(); err != nil {
			return err
		}
		if _, err := requireUser(doc, userID); err != nil {
			return err
		}
		if g.AddMember(userID) {
			g.UpdatedAt = s.clock()
		}
		out = cloneGroup(g)
		return nil
	})
	return out, err
}

// RemoveMember is owner-only, except that members may remove themselves.
// The owner can never be removed. Removing a non-member is a no-op. Tasks
// of the group assigned to the removed user become unassigned.
func (s *Service) RemoveMember(ctx context.Context, actor models.User, groupID, userID int) (*models.Group, error) {
	var out *models.Group
	err := s.store.Update(ctx, func(doc *models.Document) error {
		g, err := requireGroup(doc, groupID)
		if err != nil {
			return err
		}
		action := policy.GroupManageMembers
		if userID == actor.ID {
			action = policy.GroupLeave
		}
		if err := policy.Evaluate(actor.ID, action, policy.Resource{Group: g}).Err(); err != nil {
			return err
		}
		if userID == g.OwnerID {
			return apperr.Invalid("the group owner cannot be removed")
		}
		if !g.RemoveMember(userID) {
			out = cloneGroup(g)
			return nil
		}
		now := s.clock()
		g.UpdatedAt = now
		freed := 0
		for i := range doc.Tasks {
			t := &doc.Tasks[i]
			if t.InGroup(groupID) && t.AssignedTo(userID) {
				t.AssignedToID = nil
				t.UpdatedAt = now
				freed++
			}
		}
		if freed > 0 {
			s.log.WithFields(logrus.Fields{"group_id": groupID, "user_id": userID, "tasks": freed}).
				Info("unassigned tasks of removed member")
		}
		out = cloneGroup(g)
		return nil
	})
	return out, err
}
