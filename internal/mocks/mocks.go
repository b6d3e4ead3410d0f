package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/avatarctic/email-auth/internal/core/domain/notification"
)

// DispatcherMock records every notification it is asked to send.
type DispatcherMock struct {
	SendFn func(ctx context.Context, n *notification.Notification) error

	mu   sync.Mutex
	sent []*notification.Notification
}

func (m *DispatcherMock) Send(ctx context.Context, n *notification.Notification) error {
	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()
	if m.SendFn != nil {
		return m.SendFn(ctx, n)
	}
	return nil
}

// Sent returns a copy of the recorded notifications.
func (m *DispatcherMock) Sent() []*notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*notification.Notification(nil), m.sent...)
}

// CountingHasher is a fast, reversible hasher that counts comparisons.
type CountingHasher struct {
	compares atomic.Int64
}

func (h *CountingHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (h *CountingHasher) Compare(hash, password string) bool {
	h.compares.Add(1)
	return hash == "hashed:"+password
}

func (h *CountingHasher) Compares() int64 {
	return h.compares.Load()
}

// PolicyMock rejects passwords for which ValidateFn returns violations.
type PolicyMock struct {
	ValidateFn func(password string, i *identity.Identity) []string
}

func (m *PolicyMock) Validate(password string, i *identity.Identity) []string {
	if m.ValidateFn != nil {
		return m.ValidateFn(password, i)
	}
	return nil
}

// IdentityRepositoryMock is a lightweight mock for IdentityRepository
type IdentityRepositoryMock struct {
	CreateFn         func(ctx context.Context, i *identity.Identity) error
	GetByIDFn        func(ctx context.Context, id uuid.UUID) (*identity.Identity, bool, error)
	UpdatePasswordFn func(ctx context.Context, id uuid.UUID, passwordHash string, at time.Time) error
	RecordLoginFn    func(ctx context.Context, id uuid.UUID, at time.Time) error
}

func (m *IdentityRepositoryMock) Create(ctx context.Context, i *identity.Identity) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, i)
	}
	return nil
}
func (m *IdentityRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, bool, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, false, nil
}
func (m *IdentityRepositoryMock) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, at time.Time) error {
	if m.UpdatePasswordFn != nil {
		return m.UpdatePasswordFn(ctx, id, passwordHash, at)
	}
	return nil
}
func (m *IdentityRepositoryMock) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.RecordLoginFn != nil {
		return m.RecordLoginFn(ctx, id, at)
	}
	return nil
}

// TokenGenerator returns the given values in order, then repeats the last one.
func TokenGenerator(values ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v, nil
	}
}

// CacheMock is an in-memory ports.Cache that counts hits and misses.
type CacheMock struct {
	mu     sync.Mutex
	data   map[string][]byte
	Hits   int
	Misses int
}

func (c *CacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if ok {
		c.Hits++
	} else {
		c.Misses++
	}
	return v, ok, nil
}

func (c *CacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = value
	return nil
}

func (c *CacheMock) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Has reports whether key is cached.
func (c *CacheMock) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}
