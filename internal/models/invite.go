package models

import "time"

type InviteState string

const (
	InviteStateActive    InviteState = "active"
	InviteStateExhausted InviteState = "exhausted"
	InviteStateExpired   InviteState = "expired"
	InviteStateRevoked   InviteState = "revoked"
)

type Invite struct {
	ID        int       `json:"id"`
	Token     string    `json:"token"`
	GroupID   int       `json:"group_id"`
	CreatedBy int       `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UsesCount int       `json:"uses_count"`
	MaxUses   int       `json:"max_uses"`
	IsActive  bool      `json:"is_active"`
}

// State derives the lifecycle state at now. Expiry is checked against the
// clock, so an invite still flagged active can be expired.
func (i *Invite) State(now time.Time) InviteState {
	switch {
	case !i.IsActive && i.UsesCount >= i.MaxUses:
		return InviteStateExhausted
	case !i.IsActive:
		return InviteStateRevoked
	case now.After(i.ExpiresAt):
		return InviteStateExpired
	default:
		return InviteStateActive
	}
}
