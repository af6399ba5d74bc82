package customer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrNotFound is returned when a customer id has no record.
var ErrNotFound = errors.New("customer not found")

// Store exposes customer retrieval and persistence to services.
type Store interface {
	GetByID(ctx context.Context, customerID string) (*Customer, error)
	Save(ctx context.Context, updated *Customer) error
	ListCards(ctx context.Context, customerID string) ([]Card, error)
}

type document struct {
	Customers []Customer `json:"customers"`
}

// FileStore implements Store over a single customers.json document.
// Every call re-reads the file so edits made out of band are picked up;
// writes rewrite the whole document under the lock.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore rooted at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// GetByID looks up one customer by identifier.
func (s *FileStore) GetByID(_ context.Context, customerID string) (*Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	for i := range doc.Customers {
		if doc.Customers[i].ID == customerID {
			c := doc.Customers[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, customerID)
}

// Save replaces the stored record matching updated.ID.
func (s *FileStore) Save(_ context.Context, updated *Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	for i := range doc.Customers {
		if doc.Customers[i].ID == updated.ID {
			doc.Customers[i] = *updated
			return s.write(doc)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, updated.ID)
}

// ListCards returns the cards on file for a customer.
func (s *FileStore) ListCards(ctx context.Context, customerID string) ([]Card, error) {
	c, err := s.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return append([]Card(nil), c.Cards...), nil
}

func (s *FileStore) read() (*document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read customer store: %w", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode customer store: %w", err)
	}
	return &doc, nil
}

func (s *FileStore) write(doc *document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write customer store: %w", err)
	}
	return nil
}
