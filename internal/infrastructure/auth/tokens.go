package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/harmix/assistant-api/internal/config"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the signed payload of both access and refresh tokens. TokenType
// keeps the two from being used interchangeably.
type Claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is what authentication endpoints hand back to clients.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenManager issues and verifies HS256 tokens signed with the service
// secret. Tokens are self-contained: no server side session state exists.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(cfg *config.Config) *TokenManager {
	return &TokenManager{
		secret:     []byte(cfg.AuthSecretKey),
		issuer:     cfg.TokenIssuer,
		accessTTL:  cfg.AccessTokenLifetime,
		refreshTTL: cfg.RefreshTokenLifetime,
	}
}

// IssuePair mints a fresh access/refresh token pair for the user.
func (m *TokenManager) IssuePair(ctx context.Context, userID uint) (*TokenPair, error) {
	access, err := m.issue(userID, TokenTypeAccess, m.accessTTL)
	if err != nil {
		return nil, apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeInternal, "failed to sign access token", err)
	}
	refresh, err := m.issue(userID, TokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeInternal, "failed to sign refresh token", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, nil
}

func (m *TokenManager) issue(userID uint, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses and validates a token of the expected type and returns the
// user id it was issued to.
func (m *TokenManager) Verify(ctx context.Context, tokenString, wantType string) (uint, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeUnauthorized, "invalid token", err)
	}
	if claims.TokenType != wantType {
		return 0, apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeUnauthorized,
			fmt.Sprintf("token is not a %s token", wantType), nil)
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeUnauthorized, "malformed token subject", err)
	}
	return uint(userID), nil
}
