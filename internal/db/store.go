package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chepyr/go-group-tasks/internal/models"
)

// ErrNoDocument is returned by a Backend that has nothing stored yet.
var ErrNoDocument = errors.New("document does not exist")

// Backend persists the serialized document as a single blob.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type Observer interface {
	ObserveStoreOp(op string, wait, total time.Duration, err error)
}

/*
Store is the single point of truth for all collections.
Every View/Update loads the whole document and, for Update, writes it back,
all while holding one process-wide mutex. No two operations interleave.
*/
type Store struct {
	mu       sync.Mutex
	backend  Backend
	observer Observer
}

type Option func(*Store)

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View runs fn against a freshly loaded document. Changes fn makes are discarded.
func (s *Store) View(ctx context.Context, fn func(doc *models.Document) error) error {
	return s.run(ctx, "view", false, fn)
}

// Update runs fn and persists the document if fn returns nil. If fn fails,
// or the write fails, the stored document keeps its previous value.
func (s *Store) Update(ctx context.Context, fn func(doc *models.Document) error) error {
	return s.run(ctx, "update", true, fn)
}

func (s *Store) run(ctx context.Context, op string, write bool, fn func(doc *models.Document) error) (err error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	wait := time.Since(start)

	if s.observer != nil {
		defer func() { s.observer.ObserveStoreOp(op, wait, time.Since(start), err) }()
	}

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err = fn(doc); err != nil {
		return err
	}
	if !write {
		return nil
	}
	return s.save(ctx, doc)
}

// load must be called with mu held.
func (s *Store) load(ctx context.Context) (*models.Document, error) {
	data, err := s.backend.Load(ctx)
	if errors.Is(err, ErrNoDocument) {
		doc := models.NewDocument()
		if err := s.save(ctx, doc); err != nil {
			return nil, fmt.Errorf("create default document: %w", err)
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	doc := &models.Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc.Normalize()
	return doc, nil
}

func (s *Store) save(ctx context.Context, doc *models.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}
