package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/myriad-social/myriad_api/internal/apperr"
)

const (
	tokenTypeAccess = "access"
	// TokenTypeBearer is reported in TokenObject.TokenType.
	TokenTypeBearer = "Bearer"
)

// ErrInvalidToken is returned for malformed, expired or foreign access tokens.
var ErrInvalidToken = fmt.Errorf("invalid or expired token: %w", apperr.ErrAuthentication)

// Claims is the verified identity a token asserts.
type Claims struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// TokenObject is the response body of the login and refresh endpoints.
type TokenObject struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
}

// TokenConfig configures TokenService.
type TokenConfig struct {
	Secret    string
	ExpiresIn time.Duration
	Issuer    string
}

type accessClaims struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService signs and parses HS256 access tokens. It holds no state
// beyond its configuration.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenService validates cfg. An empty secret or a non-positive expiry is
// a configuration error.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token secret is empty: %w", apperr.ErrConfiguration)
	}
	if cfg.ExpiresIn <= 0 {
		return nil, fmt.Errorf("token expiry must be positive, got %s: %w", cfg.ExpiresIn, apperr.ErrConfiguration)
	}
	return &TokenService{cfg: cfg, now: time.Now}, nil
}

// GenerateToken signs an access token embedding claims.
func (s *TokenService) GenerateToken(claims Claims) (string, error) {
	if claims.ID == "" {
		return "", apperr.Validation("token subject is empty")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Name:      claims.Name,
		Username:  claims.Username,
		Email:     claims.Email,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   claims.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ExpiresIn)),
		},
	})
	return token.SignedString([]byte(s.cfg.Secret))
}

// ParseToken verifies an access token and returns its claims.
func (s *TokenService) ParseToken(tokenString string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	var parsed accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &parsed, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("token expired: %w", apperr.ErrAuthentication)
		}
		return Claims{}, ErrInvalidToken
	}
	if !token.Valid || parsed.TokenType != tokenTypeAccess || parsed.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{ID: parsed.Subject, Name: parsed.Name, Username: parsed.Username, Email: parsed.Email}, nil
}

// ExpiresIn returns the access token lifetime in seconds.
func (s *TokenService) ExpiresIn() int64 {
	return int64(s.cfg.ExpiresIn.Seconds())
}
