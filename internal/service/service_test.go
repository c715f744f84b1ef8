package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/chepyr/go-group-tasks/internal/auth"
	"github.com/chepyr/go-group-tasks/internal/db"
	"github.com/chepyr/go-group-tasks/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc   *Service
	store *db.Store
	clock *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := db.NewStore(db.NewFileBackend(afero.NewMemMapFs(), "/db.json"))
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := New(store, auth.NewBcryptHasher(bcrypt.MinCost), WithClock(clock.Now), WithLogger(log))
	return &fixture{svc: svc, store: store, clock: clock}
}

func (f *fixture) user(t *testing.T, name string) models.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "secret",
		FullName: name,
	})
	require.NoError(t, err)
	return *u
}

func (f *fixture) group(t *testing.T, owner models.User, name string) *models.Group {
	t.Helper()
	g, err := f.svc.CreateGroup(context.Background(), owner, name, "")
	require.NoError(t, err)
	return g
}

func (f *fixture) doc(t *testing.T) *models.Document {
	t.Helper()
	var out *models.Document
	require.NoError(t, f.store.View(context.Background(), func(doc *models.Document) error {
		out = doc
		return nil
	}))
	return out
}

func TestOptional_UnmarshalJSON(t *testing.T) {
	var p TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"group_id": null, "assigned_to_id": 4}`), &p))

	assert.True(t, p.GroupID.Set)
	assert.Nil(t, p.GroupID.Value)
	assert.True(t, p.AssignedToID.Set)
	require.NotNil(t, p.AssignedToID.Value)
	assert.Equal(t, 4, *p.AssignedToID.Value)
	assert.False(t, p.DueDate.Set)
}

func TestSeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeded, err := f.svc.Seed(ctx, false)
	require.NoError(t, err)
	assert.True(t, seeded)

	doc := f.doc(t)
	assert.Len(t, doc.Users, 3)
	assert.Len(t, doc.Groups, 2)
	assert.Len(t, doc.Tasks, 2)
	assert.Len(t, doc.Invites, 1)
	assert.Equal(t, 4, doc.NextIDs[models.CollectionUsers])
	assert.Equal(t, []int{1, 2}, doc.Groups[0].Members)

	alice, err := f.svc.Authenticate(ctx, "alice@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, 1, alice.ID)

	seeded, err = f.svc.Seed(ctx, false)
	require.NoError(t, err)
	assert.False(t, seeded)

	seeded, err = f.svc.Seed(ctx, true)
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Len(t, f.doc(t).Users, 3)
}
