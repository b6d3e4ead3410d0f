// Package memstore is an in-process implementation of the store ports. Every
// operation runs under one mutex, so Consume is an atomic compare-and-delete.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avatarctic/email-auth/internal/core/domain/email"
	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/avatarctic/email-auth/internal/core/ports"
)

type state struct {
	identities    map[uuid.UUID]identity.Identity
	addresses     map[uuid.UUID]email.Address
	verifications map[string]email.Token
	resets        map[string]email.Token
}

func newState() *state {
	return &state{
		identities:    map[uuid.UUID]identity.Identity{},
		addresses:     map[uuid.UUID]email.Address{},
		verifications: map[string]email.Token{},
		resets:        map[string]email.Token{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.identities {
		c.identities[k] = v
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	for k, v := range s.verifications {
		c.verifications[k] = v
	}
	for k, v := range s.resets {
		c.resets[k] = v
	}
	return c
}

// Store implements ports.UnitOfWork.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) current() *state { return s.st }

func (s *Store) view() view { return view{mu: &s.mu, st: s.current} }

func (s *Store) Identities() ports.IdentityRepository         { return identityRepo{s.view()} }
func (s *Store) EmailAddresses() ports.EmailAddressRepository { return addressRepo{s.view()} }
func (s *Store) VerificationTokens() ports.TokenRepository    { return tokenRepo{s.view(), verificationTokens} }
func (s *Store) PasswordResetTokens() ports.TokenRepository   { return tokenRepo{s.view(), resetTokens} }

// WithinTx runs fn against a private copy of the state and publishes it only when fn succeeds.
// Other callers are blocked for the duration.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.st.clone()
	if err := fn(ctx, txStores{working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = working
	return nil
}

type txStores struct{ st *state }

func (t txStores) view() view { return view{st: func() *state { return t.st }} }

func (t txStores) Identities() ports.IdentityRepository         { return identityRepo{t.view()} }
func (t txStores) EmailAddresses() ports.EmailAddressRepository { return addressRepo{t.view()} }
func (t txStores) VerificationTokens() ports.TokenRepository    { return tokenRepo{t.view(), verificationTokens} }
func (t txStores) PasswordResetTokens() ports.TokenRepository   { return tokenRepo{t.view(), resetTokens} }

// view is a handle on the state. mu is nil inside a transaction, where the lock is already held.
type view struct {
	mu *sync.Mutex
	st func() *state
}

func (v view) do(fn func(st *state) error) error {
	if v.mu != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
	}
	return fn(v.st())
}

type identityRepo struct{ v view }

func (r identityRepo) Create(ctx context.Context, i *identity.Identity) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.identities[i.ID]; ok {
			return fmt.Errorf("identity %s already exists", i.ID)
		}
		st.identities[i.ID] = *i
		return nil
	})
}

func (r identityRepo) GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, bool, error) {
	var out *identity.Identity
	err := r.v.do(func(st *state) error {
		if i, ok := st.identities[id]; ok {
			out = &i
		}
		return nil
	})
	return out, out != nil, err
}

func (r identityRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, at time.Time) error {
	return r.v.do(func(st *state) error {
		i, ok := st.identities[id]
		if !ok {
			return fmt.Errorf("identity %s not found", id)
		}
		i.PasswordHash = passwordHash
		i.UpdatedAt = at
		st.identities[id] = i
		return nil
	})
}

func (r identityRepo) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.v.do(func(st *state) error {
		i, ok := st.identities[id]
		if !ok {
			return fmt.Errorf("identity %s not found", id)
		}
		i.LastLoginAt = &at
		st.identities[id] = i
		return nil
	})
}

type addressRepo struct{ v view }

func (r addressRepo) Create(ctx context.Context, a *email.Address) error {
	return r.v.do(func(st *state) error {
		if a.NormalizedAddress == "" {
			a.NormalizedAddress = email.Normalize(a.Address)
		}
		for _, existing := range st.addresses {
			if existing.NormalizedAddress == a.NormalizedAddress {
				return ports.ErrDuplicateAddress
			}
		}
		st.addresses[a.ID] = *a
		return nil
	})
}

func (r addressRepo) GetByID(ctx context.Context, id uuid.UUID) (*email.Address, bool, error) {
	var out *email.Address
	err := r.v.do(func(st *state) error {
		if a, ok := st.addresses[id]; ok {
			out = &a
		}
		return nil
	})
	return out, out != nil, err
}

func (r addressRepo) FindByAddress(ctx context.Context, address string, verifiedOnly bool) (*email.Address, bool, error) {
	key := email.Normalize(address)
	return r.find(func(a email.Address) bool {
		return a.NormalizedAddress == key && (!verifiedOnly || a.IsVerified)
	})
}

func (r addressRepo) FindByExactAddress(ctx context.Context, address string, verifiedOnly bool) (*email.Address, bool, error) {
	return r.find(func(a email.Address) bool {
		return a.Address == address && (!verifiedOnly || a.IsVerified)
	})
}

func (r addressRepo) find(match func(email.Address) bool) (*email.Address, bool, error) {
	var out *email.Address
	err := r.v.do(func(st *state) error {
		for _, a := range st.addresses {
			if match(a) {
				a := a
				out = &a
				return nil
			}
		}
		return nil
	})
	return out, out != nil, err
}

func (r addressRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*email.Address, error) {
	var out []*email.Address
	err := r.v.do(func(st *state) error {
		for _, a := range st.addresses {
			if a.OwnerID == ownerID {
				a := a
				out = append(out, &a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func (r addressRepo) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.v.do(func(st *state) error {
		a, ok := st.addresses[id]
		if !ok {
			return fmt.Errorf("email address %s not found", id)
		}
		a.MarkVerified(at)
		st.addresses[id] = a
		return nil
	})
}

func (r addressRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.v.do(func(st *state) error {
		if _, ok := st.addresses[id]; !ok {
			return nil
		}
		delete(st.addresses, id)
		for _, tokens := range []map[string]email.Token{st.verifications, st.resets} {
			for k, t := range tokens {
				if t.EmailID == id {
					delete(tokens, k)
				}
			}
		}
		deleted = true
		return nil
	})
	return deleted, err
}

type tokenKind int

const (
	verificationTokens tokenKind = iota
	resetTokens
)

type tokenRepo struct {
	v    view
	kind tokenKind
}

func (r tokenRepo) table(st *state) map[string]email.Token {
	if r.kind == resetTokens {
		return st.resets
	}
	return st.verifications
}

func (r tokenRepo) Insert(ctx context.Context, t *email.Token) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.addresses[t.EmailID]; !ok {
			return fmt.Errorf("email address %s not found", t.EmailID)
		}
		tokens := r.table(st)
		if _, ok := tokens[t.Token]; ok {
			return ports.ErrDuplicateToken
		}
		tokens[t.Token] = *t
		return nil
	})
}

func (r tokenRepo) Get(ctx context.Context, token string) (*email.Token, bool, error) {
	var out *email.Token
	err := r.v.do(func(st *state) error {
		if t, ok := r.table(st)[token]; ok {
			out = &t
		}
		return nil
	})
	return out, out != nil, err
}

func (r tokenRepo) Consume(ctx context.Context, token string) (*email.Token, bool, error) {
	var out *email.Token
	err := r.v.do(func(st *state) error {
		tokens := r.table(st)
		if t, ok := tokens[token]; ok {
			delete(tokens, token)
			out = &t
		}
		return nil
	})
	return out, out != nil, err
}

func (r tokenRepo) DeleteByEmail(ctx context.Context, emailID uuid.UUID) (int, error) {
	var n int
	err := r.v.do(func(st *state) error {
		tokens := r.table(st)
		for k, t := range tokens {
			if t.EmailID == emailID {
				delete(tokens, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r tokenRepo) MarkSent(ctx context.Context, token string, at time.Time) error {
	return r.v.do(func(st *state) error {
		tokens := r.table(st)
		t, ok := tokens[token]
		if !ok {
			return nil
		}
		t.SentAt = &at
		t.UpdatedAt = at
		tokens[token] = t
		return nil
	})
}

// VerificationTokenCount reports the live verification tokens.
func (s *Store) VerificationTokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.verifications)
}

// PasswordResetTokenCount reports the live password reset tokens.
func (s *Store) PasswordResetTokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.resets)
}
