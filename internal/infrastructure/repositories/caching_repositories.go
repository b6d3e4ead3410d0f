package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/avatarctic/email-auth/internal/core/ports"
)

// Utility helpers
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

func identityKey(id uuid.UUID) string {
	return "identity:id:" + id.String()
}

// cachedIdentity keeps the password hash, which the API encoding of Identity omits.
type cachedIdentity struct {
	identity.Identity
	PasswordHash string `json:"password_hash"`
}

// CachingIdentityRepository decorates an IdentityRepository with cache-aside on GetByID.
// Concurrent misses for the same ID share one database load.
type CachingIdentityRepository struct {
	inner  ports.IdentityRepository
	cache  ports.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *logrus.Logger
}

func NewCachingIdentityRepository(inner ports.IdentityRepository, cache ports.Cache, ttl time.Duration, logger *logrus.Logger) *CachingIdentityRepository {
	return &CachingIdentityRepository{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachingIdentityRepository) Create(ctx context.Context, i *identity.Identity) error {
	return c.inner.Create(ctx, i)
}

func (c *CachingIdentityRepository) GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, bool, error) {
	key := identityKey(id)
	if v, ok := cacheGet[cachedIdentity](c.cache, ctx, key); ok {
		return v.unwrap(), true, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		i, found, err := c.inner.GetByID(ctx, id)
		if err != nil || !found {
			return nil, err
		}
		cacheSetSilently(c.cache, ctx, key, cachedIdentity{Identity: *i, PasswordHash: i.PasswordHash}, c.ttl)
		return i, nil
	})
	if err != nil {
		return nil, false, err
	}
	if res == nil {
		return nil, false, nil
	}
	i, ok := res.(*identity.Identity)
	if !ok {
		return nil, false, fmt.Errorf("unexpected type from singleflight result")
	}
	// Callers must not share the singleflight result.
	cp := *i
	return &cp, true, nil
}

func (c *CachingIdentityRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, at time.Time) error {
	if err := c.inner.UpdatePassword(ctx, id, passwordHash, at); err != nil {
		return err
	}
	c.Invalidate(ctx, id)
	return nil
}

func (c *CachingIdentityRepository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := c.inner.RecordLogin(ctx, id, at); err != nil {
		return err
	}
	c.Invalidate(ctx, id)
	return nil
}

// Invalidate drops the cached identity. Called after transactions that changed it commit.
func (c *CachingIdentityRepository) Invalidate(ctx context.Context, id uuid.UUID) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, identityKey(id)); err != nil && c.logger != nil {
		c.logger.WithFields(logrus.Fields{"identity_id": id}).WithError(err).Warn("cache: failed to invalidate identity")
	}
}

func (v *cachedIdentity) unwrap() *identity.Identity {
	i := v.Identity
	i.PasswordHash = v.PasswordHash
	return &i
}
