package models

import (
	"slices"
	"time"
)

type Group struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     int       `json:"owner_id"`
	Members     []int     `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (g *Group) HasMember(userID int) bool {
	return slices.Contains(g.Members, userID)
}

// AddMember reports whether userID was newly added.
func (g *Group) AddMember(userID int) bool {
	if g.HasMember(userID) {
		return false
	}
	g.Members = append(g.Members, userID)
	return true
}

// RemoveMember reports whether userID was a member.
func (g *Group) RemoveMember(userID int) bool {
	i := slices.Index(g.Members, userID)
	if i < 0 {
		return false
	}
	g.Members = slices.Delete(g.Members, i, i+1)
	return true
}
