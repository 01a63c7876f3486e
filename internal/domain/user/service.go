package user

import (
	"context"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/harmix/assistant-api/internal/infrastructure/auth"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

const minPasswordLength = 8

// Service implements registration, login and token refresh on top of the
// user repository and the token manager.
type Service struct {
	users  Repository
	tokens *auth.TokenManager
	log    zerolog.Logger
}

func NewService(users Repository, tokens *auth.TokenManager, log zerolog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		log:    log.With().Str("component", "user_service").Logger(),
	}
}

// Register creates an account and immediately signs the user in.
func (s *Service) Register(ctx context.Context, email, name, password, company string) (*auth.TokenPair, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(ctx, email, password); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeConflict, "email is already registered", nil)
	} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to check existing user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeInternal, "failed to hash password", err)
	}

	u := &User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		Company:      strings.TrimSpace(company),
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to create user")
	}
	s.log.Info().Uint("user_id", u.ID).Msg("user registered")

	return s.tokens.IssuePair(ctx, u.ID)
}

// Login verifies the password and issues a token pair. Unknown email and bad
// password produce the same error so the endpoint does not leak which
// accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, invalidCredentials(ctx)
		}
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, invalidCredentials(ctx)
	}
	return s.tokens.IssuePair(ctx, u.ID)
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	userID, err := s.tokens.Verify(ctx, refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	// The account may have been removed since the token was issued.
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeUnauthorized, "account no longer exists", nil)
		}
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to load user")
	}
	return s.tokens.IssuePair(ctx, userID)
}

// Profile returns the account backing an access token subject.
func (s *Service) Profile(ctx context.Context, userID uint) (*User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to load profile")
	}
	return u, nil
}

func validateCredentials(ctx context.Context, email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeValidation, "invalid email address", err)
	}
	if len(password) < minPasswordLength {
		return apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeValidation, "password must be at least 8 characters", nil)
	}
	return nil
}

func invalidCredentials(ctx context.Context) error {
	return apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeUnauthorized, "invalid email or password", nil)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
