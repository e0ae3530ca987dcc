package farmers

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no farmer matches the canonical phone.
var ErrNotFound = errors.New("farmers: not found")

// Repository is the persistence surface the ingestion pipeline depends on.
type Repository interface {
	GetByPhone(ctx context.Context, phone string) (*Farmer, error)
	Create(ctx context.Context, f *Farmer) error
	SetApproval(ctx context.Context, phone, status string) error
	MarkWelcomeSent(ctx context.Context, phone string) error
}

// InMemoryRepository keeps farmers in a map, for tests and local development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byPhone map[string]*Farmer
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byPhone: make(map[string]*Farmer)}
}

var _ Repository = (*InMemoryRepository)(nil)

func (r *InMemoryRepository) GetByPhone(_ context.Context, phone string) (*Farmer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byPhone[phone]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *f
	return &copied, nil
}

func (r *InMemoryRepository) Create(_ context.Context, f *Farmer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	copied := *f
	r.byPhone[f.Phone] = &copied
	return nil
}

func (r *InMemoryRepository) SetApproval(_ context.Context, phone, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byPhone[phone]
	if !ok {
		return ErrNotFound
	}
	f.ApprovalStatus = status
	f.IsActive = status == ApprovalApproved
	return nil
}

func (r *InMemoryRepository) MarkWelcomeSent(_ context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byPhone[phone]
	if !ok {
		return ErrNotFound
	}
	f.WelcomeSent = true
	return nil
}
