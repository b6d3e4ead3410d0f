package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/configs"
	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/avatarctic/email-auth/internal/core/ports"
)

// decoyCredential is hashed at startup; unknown addresses are compared against it.
const decoyCredential = "jekyll"

type AuthService struct {
	addresses  ports.EmailAddressRepository
	identities ports.IdentityRepository
	hasher     ports.PasswordHasher
	decoyHash  string
	authConfig *configs.AuthConfig
	logger     *logrus.Logger
}

func NewAuthService(addresses ports.EmailAddressRepository, identities ports.IdentityRepository, hasher ports.PasswordHasher, authConfig *configs.AuthConfig, logger *logrus.Logger) (ports.AuthService, error) {
	decoy, err := hasher.Hash(decoyCredential)
	if err != nil {
		return nil, fmt.Errorf("failed to hash decoy credential: %w", err)
	}
	return &AuthService{
		addresses:  addresses,
		identities: identities,
		hasher:     hasher,
		decoyHash:  decoy,
		authConfig: authConfig,
		logger:     logger,
	}, nil
}

// Authenticate returns the identity owning the verified address when the password
// matches and the identity is active. Every path performs one hash comparison.
func (s *AuthService) Authenticate(ctx context.Context, address, password string) (*identity.Identity, error) {
	addr, found, err := s.addresses.FindByExactAddress(ctx, address, true)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email address: %w", err)
	}
	if !found {
		s.hasher.Compare(s.decoyHash, password)
		return nil, nil
	}

	owner, found, err := s.identities.GetByID(ctx, addr.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if !found {
		s.hasher.Compare(s.decoyHash, password)
		return nil, nil
	}

	if !s.hasher.Compare(owner.PasswordHash, password) || !owner.IsActive {
		return nil, nil
	}
	return owner, nil
}

func (s *AuthService) GetIdentity(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	i, found, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if !found {
		return nil, nil
	}
	return i, nil
}

func (s *AuthService) Login(ctx context.Context, req *identity.LoginRequest) (*identity.AccessToken, error) {
	owner, err := s.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.GenerateAccessToken(owner)
	if err != nil {
		return nil, err
	}

	if err := s.identities.RecordLogin(ctx, owner.ID, time.Now().UTC()); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"identity_id": owner.ID}).WithError(err).Warn("failed to update identity last login time")
		}
	}

	return token, nil
}
