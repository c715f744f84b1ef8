// Package service implements the membership, invitation and task rules on
// top of the shared document store. Every exported operation is one
// load-check-mutate-save cycle under the store's gate.
package service

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/chepyr/go-group-tasks/internal/apperr"
	"github.com/chepyr/go-group-tasks/internal/auth"
	"github.com/chepyr/go-group-tasks/internal/db"
	"github.com/chepyr/go-group-tasks/internal/models"
	"github.com/sirupsen/logrus"
)

type Service struct {
	store  *db.Store
	hasher auth.Hasher
	log    logrus.FieldLogger
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

func New(store *db.Store, hasher auth.Hasher, opts ...Option) *Service {
	s := &Service{
		store:  store,
		hasher: hasher,
		log:    logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// Optional is a patch field. Set is false when the key was absent; a JSON
// null gives Set with a nil Value.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

func Null[T any]() Optional[T] { return Optional[T]{Set: true} }

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func requireUser(doc *models.Document, id int) (*models.User, error) {
	u := doc.User(id)
	if u == nil {
		return nil, apperr.NotFound("user %d not found", id)
	}
	return u, nil
}

func requireGroup(doc *models.Document, id int) (*models.Group, error) {
	g := doc.Group(id)
	if g == nil {
		return nil, apperr.NotFound("group %d not found", id)
	}
	return g, nil
}

func cloneGroup(g *models.Group) *models.Group {
	out := *g
	out.Members = append([]int(nil), g.Members...)
	return &out
}

func intPtr(v int) *int { return &v }
