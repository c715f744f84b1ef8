package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/chepyr/go-group-tasks/internal/apperr"
	"github.com/chepyr/go-group-tasks/internal/models"
	"github.com/chepyr/go-group-tasks/internal/policy"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const minPasswordLen = 4

type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if !emailRe.MatchString(email) {
		return apperr.Invalid("invalid email")
	}
	if len(password) < minPasswordLen {
		return apperr.Invalid("password must be at least %d characters long", minPasswordLen)
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		return nil, err
	}
	// hash outside the gate, bcrypt is slow
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	var created models.User
	err = s.store.Update(ctx, func(doc *models.Document) error {
		if doc.UserByEmail(email) != nil {
			return apperr.Conflict("email already registered")
		}
		now := s.clock()
		created = models.User{
			ID:             doc.NextID(models.CollectionUsers),
			Email:          email,
			HashedPassword: hash,
			FullName:       strings.TrimSpace(in.FullName),
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		doc.Users = append(doc.Users, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("user_id", created.ID).Info("user registered")
	return &created, nil
}

// Authenticate returns ErrInvalidCredentials for an unknown email or a wrong
// password, without telling the two apart.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	var user models.User
	err := s.store.View(ctx, func(doc *models.Document) error {
		u := doc.UserByEmail(email)
		if u == nil {
			return ErrInvalidCredentials
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(user.HashedPassword, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("account is inactive")
	}
	return &user, nil
}

func (s *Service) GetUser(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	err := s.store.View(ctx, func(doc *models.Document) error {
		u, err := requireUser(doc, id)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type UserPatch struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
	IsActive *bool   `json:"is_active"`
}

func (s *Service) UpdateUser(ctx context.Context, actor models.User, userID int, p UserPatch) (*models.User, error) {
	if err := policy.Evaluate(actor.ID, policy.UserManage, policy.Resource{UserID: userID}).Err(); err != nil {
		return nil, err
	}
	var hash string
	if p.Password != nil {
		if len(*p.Password) < minPasswordLen {
			return nil, apperr.Invalid("password must be at least %d characters long", minPasswordLen)
		}
		var err error
		if hash, err = s.hasher.Hash(*p.Password); err != nil {
			return nil, err
		}
	}

	var updated models.User
	err := s.store.Update(ctx, func(doc *models.Document) error {
		u, err := requireUser(doc, userID)
		if err != nil {
			return err
		}
		if p.FullName != nil {
			u.FullName = strings.TrimSpace(*p.FullName)
		}
		if p.IsActive != nil {
			u.IsActive = *p.IsActive
		}
		if hash != "" {
			u.HashedPassword = hash
		}
		u.UpdatedAt = s.clock()
		updated = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteUser removes the account. Groups the user owns go with it, so every
// remaining group still contains its owner; elsewhere the user is dropped
// from member sets and unassigned from tasks.
func (s *Service) DeleteUser(ctx context.Context, actor models.User, userID int) error {
	if err := policy.Evaluate(actor.ID, policy.UserManage, policy.Resource{UserID: userID}).Err(); err != nil {
		return err
	}
	err := s.store.Update(ctx, func(doc *models.Document) error {
		if !doc.DeleteUser(userID) {
			return apperr.NotFound("user %d not found", userID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithField("user_id", userID).Info("user deleted")
	return nil
}
