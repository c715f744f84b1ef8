package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/chepyr/go-group-tasks/internal/apperr"
	"github.com/chepyr/go-group-tasks/internal/models"
	"github.com/chepyr/go-group-tasks/internal/policy"
	"github.com/sirupsen/logrus"
)

const (
	DefaultInviteTTLDays = 7
	DefaultInviteMaxUses = 1

	inviteTokenBytes = 32
)

// InviteView is an invite together with its state at the time it was read.
type InviteView struct {
	models.Invite
	State models.InviteState `json:"state"`
}

func newInviteToken() (string, error) {
	b := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateInvite issues a token for the group. Only the owner can invite.
func (s *Service) CreateInvite(ctx context.Context, actor models.User, groupID, ttlDays, maxUses int) (*models.Invite, error) {
	if ttlDays < 1 {
		return nil, apperr.Invalid("expires_in_days must be at least 1")
	}
	if maxUses < 1 {
		return nil, apperr.Invalid("max_uses must be at least 1")
	}

	var created models.Invite
	err := s.store.Update(ctx, func(doc *models.Document) error {
		g, err := requireGroup(doc, groupID)
		if err != nil {
			return err
		}
		if err := policy.Evaluate(actor.ID, policy.InviteCreate, policy.Resource{Group: g}).Err(); err != nil {
			return err
		}
		token, err := newInviteToken()
		if err != nil {
			return err
		}
		for doc.InviteByToken(token) != nil {
			if token, err = newInviteToken(); err != nil {
				return err
			}
		}
		now := s.clock()
		created = models.Invite{
			ID:        doc.NextID(models.CollectionInvites),
			Token:     token,
			GroupID:   g.ID,
			CreatedBy: actor.ID,
			CreatedAt: now,
			ExpiresAt: now.Add(time.Duration(ttlDays) * 24 * time.Hour),
			MaxUses:   maxUses,
			IsActive:  true,
		}
		doc.Invites = append(doc.Invites, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"invite_id": created.ID, "group_id": groupID}).Info("invite created")
	return &created, nil
}

// RedeemInvite joins userID to the invite's group and returns the group id.
// Every successful call consumes one use, including calls by existing members.
func (s *Service) RedeemInvite(ctx context.Context, token string, userID int) (int, error) {
	var groupID int
	err := s.store.Update(ctx, func(doc *models.Document) error {
		inv := doc.InviteByToken(token)
		if inv == nil {
			return apperr.NotFound("invite not found")
		}
		switch inv.State(s.clock()) {
		case models.InviteStateActive:
		case models.InviteStateExpired:
			return apperr.Expired("invite has expired")
		default:
			return apperr.Invalid("invite is no longer active")
		}
		if _, err := requireUser(doc, userID); err != nil {
			return err
		}
		g, err := requireGroup(doc, inv.GroupID)
		if err != nil {
			return err
		}
		if g.AddMember(userID) {
			g.UpdatedAt = s.clock()
		}
		inv.UsesCount++
		if inv.UsesCount >= inv.MaxUses {
			inv.IsActive = false
		}
		groupID = g.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"group_id": groupID, "user_id": userID}).Info("invite redeemed")
	return groupID, nil
}

// RevokeInvite deactivates the invite. Revoking twice is harmless.
func (s *Service) RevokeInvite(ctx context.Context, actor models.User, inviteID int) error {
	return s.store.Update(ctx, func(doc *models.Document) error {
		inv := doc.Invite(inviteID)
		if inv == nil {
			return apperr.NotFound("invite %d not found", inviteID)
		}
		res := policy.Resource{Group: doc.Group(inv.GroupID), Invite: inv}
		if err := policy.Evaluate(actor.ID, policy.InviteRevoke, res).Err(); err != nil {
			return err
		}
		inv.IsActive = false
		return nil
	})
}

func (s *Service) ListInvites(ctx context.Context, actor models.User, groupID int) ([]InviteView, error) {
	invites := []InviteView{}
	err := s.store.View(ctx, func(doc *models.Document) error {
		g, err := requireGroup(doc, groupID)
		if err != nil {
			return err
		}
		if err := policy.Evaluate(actor.ID, policy.InviteList, policy.Resource{Group: g}).Err(); err != nil {
			return err
		}
		now := s.clock()
		for _, inv := range doc.Invites {
			if inv.GroupID == groupID {
				invites = append(invites, InviteView{Invite: inv, State: inv.State(now)})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invites, nil
}
