package auth

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
)

// Roles granted to counsellor accounts.
const (
	RoleAdmin      = "admin"
	RoleCounsellor = "counsellor"
)

var (
	// ErrAccountNotFound is returned when no account matches.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateAccount is returned when the username is taken.
	ErrDuplicateAccount = errors.New("username already exists")
)

// Account is a counsellor or administrator login.
type Account struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Roles        []string   `json:"roles"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	PasswordHash string     `json:"-"`
}

// HasRole reports whether the account holds role.
func (a Account) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

func (a Account) principal() Principal {
	return Principal{UserID: a.ID, Username: a.Username, Roles: a.Roles}
}

// AccountStore persists accounts. Username lookups are case-insensitive.
type AccountStore interface {
	// List returns accounts whose username contains q, ordered by username.
	List(ctx context.Context, q string) ([]Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	GetByUsername(ctx context.Context, username string) (Account, error)
	Insert(ctx context.Context, a Account) (Account, error)
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// MemoryStore keeps accounts in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: map[string]Account{}}
}

func copyAccount(a Account) Account {
	a.Roles = slices.Clone(a.Roles)
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		a.LastLoginAt = &t
	}
	return a
}

func (m *MemoryStore) List(_ context.Context, q string) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(q))
	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		if needle != "" && !strings.Contains(strings.ToLower(a.Username), needle) {
			continue
		}
		out = append(out, copyAccount(a))
	}
	slices.SortFunc(out, func(a, b Account) int {
		return strings.Compare(strings.ToLower(a.Username), strings.ToLower(b.Username))
	})
	return out, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return copyAccount(a), nil
}

func (m *MemoryStore) GetByUsername(_ context.Context, username string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if strings.EqualFold(a.Username, username) {
			return copyAccount(a), nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (m *MemoryStore) Insert(_ context.Context, a Account) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if strings.EqualFold(existing.Username, a.Username) {
			return Account{}, ErrDuplicateAccount
		}
	}
	m.accounts[a.ID] = copyAccount(a)
	return copyAccount(a), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *MemoryStore) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.PasswordHash = hash
	m.accounts[id] = a
	return nil
}

func (m *MemoryStore) TouchLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.LastLoginAt = &at
	m.accounts[id] = a
	return nil
}
