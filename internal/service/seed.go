package service

import (
	"context"
	"time"

	"github.com/chepyr/go-group-tasks/internal/models"
)

type seedUser struct {
	email, password, fullName string
}

var seedUsers = []seedUser{
	{"alice@example.com", "password1", "Alice"},
	{"bob@example.com", "password2", "Bob"},
	{"carol@example.com", "password3", "Carol"},
}

// Seed replaces the document with demo data. Without force it does nothing
// when users already exist. It reports whether the document was written.
func (s *Service) Seed(ctx context.Context, force bool) (bool, error) {
	hashes := make([]string, len(seedUsers))
	for i, u := range seedUsers {
		h, err := s.hasher.Hash(u.password)
		if err != nil {
			return false, err
		}
		hashes[i] = h
	}
	token, err := newInviteToken()
	if err != nil {
		return false, err
	}

	seeded := false
	err = s.store.Update(ctx, func(doc *models.Document) error {
		if len(doc.Users) > 0 && !force {
			return nil
		}
		*doc = *demoDocument(s.clock(), hashes, token)
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if seeded {
		s.log.WithField("force", force).Info("demo data seeded")
	}
	return seeded, nil
}

func demoDocument(now time.Time, hashes []string, token string) *models.Document {
	doc := models.NewDocument()
	for i, u := range seedUsers {
		doc.Users = append(doc.Users, models.User{
			ID:             doc.NextID(models.CollectionUsers),
			Email:          u.email,
			HashedPassword: hashes[i],
			FullName:       u.fullName,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	doc.Groups = append(doc.Groups,
		models.Group{
			ID: doc.NextID(models.CollectionGroups), Name: "Test group", Description: "Initial group",
			OwnerID: 1, Members: []int{1, 2}, CreatedAt: now, UpdatedAt: now,
		},
		models.Group{
			ID: doc.NextID(models.CollectionGroups), Name: "Admins", Description: "Administrators",
			OwnerID: 2, Members: []int{2}, CreatedAt: now, UpdatedAt: now,
		},
	)

	due := now.Add(7 * 24 * time.Hour)
	doc.Tasks = append(doc.Tasks,
		models.Task{
			ID: doc.NextID(models.CollectionTasks), Title: "Prepare the demo",
			Description: "Write the slides and rehearse the technical demo",
			Status:      models.TaskStatusInProgress, AssignedToID: intPtr(1), GroupID: intPtr(1),
			DueDate: &due, CreatedAt: now, UpdatedAt: now,
		},
		models.Task{
			ID: doc.NextID(models.CollectionTasks), Title: "Clean up the database",
			Description: "Remove stale test data",
			Status:      models.TaskStatusToDo, AssignedToID: intPtr(2),
			CreatedAt: now, UpdatedAt: now,
		},
	)

	doc.Invites = append(doc.Invites, models.Invite{
		ID:        doc.NextID(models.CollectionInvites),
		Token:     token,
		GroupID:   1,
		CreatedBy: 1,
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultInviteTTLDays * 24 * time.Hour),
		MaxUses:   DefaultInviteMaxUses,
		IsActive:  true,
	})
	return doc
}
