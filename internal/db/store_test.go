package db

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chepyr/go-group-tasks/internal/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewStore(NewFileBackend(fs, "/data/db.json")), fs
}

func TestStore_LoadCreatesDefaultDocument(t *testing.T) {
	store, fs := newMemStore(t)

	err := store.View(context.Background(), func(doc *models.Document) error {
		assert.Empty(t, doc.Users)
		assert.Empty(t, doc.Groups)
		for _, c := range models.Collections {
			assert.Equal(t, 1, doc.NextIDs[c], c)
		}
		return nil
	})
	require.NoError(t, err)

	raw, err := afero.ReadFile(fs, "/data/db.json")
	require.NoError(t, err)

	var layout map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &layout))
	for _, key := range []string{"users", "groups", "tasks", "invites", "next_ids"} {
		assert.Contains(t, layout, key)
	}
}

func TestStore_UpdatePersistsAndAllocatesIDs(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := store.Update(ctx, func(doc *models.Document) error {
			doc.Users = append(doc.Users, models.User{ID: doc.NextID(models.CollectionUsers)})
			return nil
		})
		require.NoError(t, err)
	}
	// freed ids are not reused
	require.NoError(t, store.Update(ctx, func(doc *models.Document) error {
		doc.DeleteUser(3)
		doc.Users = append(doc.Users, models.User{ID: doc.NextID(models.CollectionUsers)})
		return nil
	}))

	require.NoError(t, store.View(ctx, func(doc *models.Document) error {
		ids := []int{}
		for _, u := range doc.Users {
			ids = append(ids, u.ID)
		}
		assert.Equal(t, []int{1, 2, 4}, ids)
		assert.Equal(t, 5, doc.NextIDs[models.CollectionUsers])
		return nil
	}))
}

func TestStore_FailedCallbackPersistsNothing(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Update(ctx, func(doc *models.Document) error {
		doc.Groups = append(doc.Groups, models.Group{ID: doc.NextID(models.CollectionGroups), Name: "lost"})
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.View(ctx, func(doc *models.Document) error {
		assert.Empty(t, doc.Groups)
		assert.Equal(t, 1, doc.NextIDs[models.CollectionGroups])
		return nil
	}))
}

func TestStore_ViewDiscardsChanges(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	require.NoError(t, store.View(ctx, func(doc *models.Document) error {
		doc.Users = append(doc.Users, models.User{ID: 99})
		return nil
	}))
	require.NoError(t, store.View(ctx, func(doc *models.Document) error {
		assert.Nil(t, doc.User(99))
		return nil
	}))
}

type flakyBackend struct {
	inner    Backend
	failSave bool
}

func (b *flakyBackend) Load(ctx context.Context) ([]byte, error) { return b.inner.Load(ctx) }

func (b *flakyBackend) Save(ctx context.Context, data []byte) error {
	if b.failSave {
		return errors.New("disk full")
	}
	return b.inner.Save(ctx, data)
}

func TestStore_FailedSaveKeepsPreviousValue(t *testing.T) {
	backend := &flakyBackend{inner: NewFileBackend(afero.NewMemMapFs(), "/db.json")}
	store := NewStore(backend)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, func(doc *models.Document) error {
		doc.Users = append(doc.Users, models.User{ID: doc.NextID(models.CollectionUsers), Email: "a@example.com"})
		return nil
	}))

	backend.failSave = true
	err := store.Update(ctx, func(doc *models.Document) error {
		doc.User(1).Email = "changed@example.com"
		return nil
	})
	require.Error(t, err)

	backend.failSave = false
	require.NoError(t, store.View(ctx, func(doc *models.Document) error {
		assert.Equal(t, "a@example.com", doc.User(1).Email)
		return nil
	}))
}

func TestStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(ctx, func(doc *models.Document) error {
				doc.Tasks = append(doc.Tasks, models.Task{ID: doc.NextID(models.CollectionTasks)})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.NoError(t, store.View(ctx, func(doc *models.Document) error {
		assert.Len(t, doc.Tasks, 50)
		assert.Equal(t, 51, doc.NextIDs[models.CollectionTasks])
		return nil
	}))
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (o *recordingObserver) ObserveStoreOp(op string, wait, total time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		op += ":err"
	}
	o.ops = append(o.ops, op)
}

func TestStore_ReportsToObserver(t *testing.T) {
	obs := &recordingObserver{}
	store := NewStore(NewFileBackend(afero.NewMemMapFs(), "/db.json"), WithObserver(obs))
	ctx := context.Background()

	require.NoError(t, store.View(ctx, func(*models.Document) error { return nil }))
	_ = store.Update(ctx, func(*models.Document) error { return errors.New("nope") })

	assert.Equal(t, []string{"view", "update:err"}, obs.ops)
}
