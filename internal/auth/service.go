package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/market-pay/market_pay/internal/config"
	"github.com/market-pay/market_pay/internal/identity"
)

var (
	// ErrInvalidToken occurs when a token fails signature or claim validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked occurs when a token's version no longer matches the user's.
	ErrTokenRevoked = errors.New("token revoked")
)

// Claims is the JWT payload carried by both access and refresh tokens.
type Claims struct {
	Email   string `json:"email"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

// TokenPair bundles a fresh access/refresh token set.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service issues and verifies HS256 token pairs. Tokens embed the user's
// token version; bumping the version revokes everything outstanding.
type Service struct {
	cfg   config.Config
	users identity.Repository
}

func NewService(cfg config.Config, users identity.Repository) *Service {
	return &Service{cfg: cfg, users: users}
}

// Issue mints an access/refresh pair for an authenticated user.
func (s *Service) Issue(user identity.User) (TokenPair, error) {
	now := time.Now()
	access, err := s.sign(user, s.cfg.JWTSecret, now, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(user, s.cfg.RefreshSecret, now, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) sign(user identity.User, secret string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Email:   user.Email,
		Version: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a compact token against the secret and returns its
// claims. Callers still need to check the token version against the user.
func ParseToken(tokenStr, secret string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccess validates an access token end to end, including the token
// version check against the stored user.
func (s *Service) VerifyAccess(ctx context.Context, tokenStr string) (Claims, error) {
	claims, err := ParseToken(tokenStr, s.cfg.JWTSecret)
	if err != nil {
		return Claims{}, err
	}
	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	if user.TokenVersion != claims.Version {
		return Claims{}, ErrTokenRevoked
	}
	return claims, nil
}

// Refresh verifies a refresh token and mints a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := ParseToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, err
	}
	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return "", 0, ErrInvalidToken
	}
	if user.TokenVersion != claims.Version {
		return "", 0, ErrTokenRevoked
	}
	access, err := s.sign(user, s.cfg.JWTSecret, time.Now(), s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Logout bumps the user's token version so outstanding tokens stop verifying.
func (s *Service) Logout(ctx context.Context, userID string) error {
	_, err := s.users.BumpTokenVersion(ctx, userID)
	return err
}
