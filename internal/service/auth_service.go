package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"parkpay/internal/models"
	"parkpay/internal/password"
	"parkpay/internal/repository"
)

var (
	// ErrEmailInUse is returned when attempting to register a duplicate email.
	ErrEmailInUse = errors.New("auth: email already registered")
	// ErrInvalidCredentials represents login failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// AccountStore defines the storage contract used by the auth service.
type AccountStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// WalletOpener opens the driver's wallet during registration.
type WalletOpener interface {
	CreateWallet(ctx context.Context, userID int64) (*models.Wallet, error)
}

// AuthService contains registration and login logic. Every new account gets
// a wallet so drivers can top up before their first session.
type AuthService struct {
	accounts  AccountStore
	wallets   WalletOpener
	hasher    password.Hasher
	tokenizer *TokenService
	logger    *zap.Logger
}

// NewAuthService builds AuthService.
func NewAuthService(accounts AccountStore, wallets WalletOpener, hasher password.Hasher, tokenizer *TokenService, logger *zap.Logger) *AuthService {
	return &AuthService{
		accounts:  accounts,
		wallets:   wallets,
		hasher:    hasher,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

// Signup registers a new user and opens their wallet.
func (s *AuthService) Signup(ctx context.Context, email, plain, role string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("auth: email required")
	}
	if plain == "" {
		return nil, errors.New("auth: password required")
	}
	if role == "" {
		role = "driver"
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.accounts.Create(ctx, user); err != nil {
		return nil, err
	}

	if _, err := s.wallets.CreateWallet(ctx, user.ID); err != nil &&
		!errors.Is(err, repository.ErrWalletAlreadyExists) {
		s.logger.Error("failed to open wallet for new account",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("user signed up", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

// Login authenticates a user and produces an access token.
func (s *AuthService) Login(ctx context.Context, email, plain string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || plain == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, plain); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokenizer.Generate(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Verify decodes a presented access token.
func (s *AuthService) Verify(tokenString string) (*Claims, error) {
	return s.tokenizer.Validate(tokenString)
}
