package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/myriad-social/myriad_api/internal/apperr"
	"github.com/myriad-social/myriad_api/internal/kv"
)

const refreshPrefix = "refresh:"

// ErrInvalidRefreshToken is returned for unknown or expired refresh tokens.
var ErrInvalidRefreshToken = fmt.Errorf("invalid or expired refresh token: %w", apperr.ErrAuthentication)

// RefreshService maps opaque refresh tokens to the claims they reissue
// access tokens for. Tokens are long lived and are not rotated on use.
type RefreshService struct {
	store  kv.Store
	tokens *TokenService
	ttl    time.Duration
}

// NewRefreshService builds a refresh token service whose tokens live for ttl.
func NewRefreshService(store kv.Store, tokens *TokenService, ttl time.Duration) *RefreshService {
	return &RefreshService{store: store, tokens: tokens, ttl: ttl}
}

// Issue mints a refresh token bound to claims.
func (s *RefreshService) Issue(ctx context.Context, claims Claims) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < 3; attempt++ {
		token, err := randomToken(32)
		if err != nil {
			return "", err
		}
		ok, err := s.store.SetNX(ctx, refreshPrefix+token, payload, s.ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
	}
	return "", errors.New("could not allocate a unique refresh token")
}

// RefreshToken reissues an access token for the identity bound to refreshToken.
func (s *RefreshService) RefreshToken(ctx context.Context, refreshToken string) (TokenObject, error) {
	if refreshToken == "" {
		return TokenObject{}, ErrInvalidRefreshToken
	}
	payload, err := s.store.Get(ctx, refreshPrefix+refreshToken)
	if errors.Is(err, kv.ErrNotFound) {
		return TokenObject{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return TokenObject{}, err
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return TokenObject{}, fmt.Errorf("decode refresh record: %w", err)
	}
	access, err := s.tokens.GenerateToken(claims)
	if err != nil {
		return TokenObject{}, err
	}
	return TokenObject{AccessToken: access, ExpiresIn: s.tokens.ExpiresIn(), TokenType: TokenTypeBearer}, nil
}

func randomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
