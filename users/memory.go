package users

import (
	"context"
	"sync"
)

// MemoryRepository keeps accounts in process memory.
// It is used with STORAGE_DRIVER=memory and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]Account
	nextID  int64
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byEmail: make(map[string]Account),
		nextID:  1,
	}
}

// FindByEmail looks an account up by exact email.
func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

// Save inserts the account. The uniqueness check and the insert happen under
// one lock, so concurrent callers with the same email get ErrDuplicateEmail.
func (r *MemoryRepository) Save(ctx context.Context, account *Account) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[account.Email]; exists {
		return nil, ErrDuplicateEmail
	}
	saved := *account
	saved.ID = r.nextID
	r.nextID++
	r.byEmail[saved.Email] = saved
	return &saved, nil
}

// Len returns the number of stored accounts.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEmail)
}

// Ping always succeeds. It lets the memory store back the health endpoint.
func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}
