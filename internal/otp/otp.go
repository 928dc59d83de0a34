package otp

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/myriad-social/myriad_api/internal/apperr"
	"github.com/myriad-social/myriad_api/internal/kv"
	"github.com/myriad-social/myriad_api/internal/notification"
)

const (
	codeDigits = 6
	keyPrefix  = "otp:email:"
)

// ErrInvalidCode is returned for unknown, wrong, expired or already used codes.
var ErrInvalidCode = fmt.Errorf("invalid or expired code: %w", apperr.ErrAuthentication)

// Profile is the partial user attached to an email signup.
type Profile struct {
	ID       string
	Name     string
	Username string
	Email    string
}

// Result is returned by RequestByEmail. Token is set only for signups.
type Result struct {
	Token string
}

// Claims is what a redeemed code proves.
type Claims struct {
	Email       string
	SignupToken string
}

type record struct {
	Email       string    `json:"email"`
	CodeHash    []byte    `json:"codeHash"`
	CallbackURL string    `json:"callbackURL,omitempty"`
	SignupToken string    `json:"signupToken,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Service issues and redeems one-time codes sent by email.
type Service struct {
	store    kv.Store
	notifier notification.Notifier
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
	generate func() (string, error)
}

// NewService builds an OTP service whose codes live for ttl.
func NewService(store kv.Store, notifier notification.Notifier, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		generate: generateCode,
	}
}

// RequestByEmail validates email, stores a fresh code for it (replacing any
// earlier one) and mails the code. With a profile it also mints the signup
// token that keys the pending signup.
func (s *Service) RequestByEmail(ctx context.Context, email, callbackURL string, profile *Profile) (Result, error) {
	addr, err := NormalizeEmail(email)
	if err != nil {
		return Result{}, err
	}
	var callback *url.URL
	if callbackURL != "" {
		callback, err = url.Parse(callbackURL)
		if err != nil || callback.Scheme == "" || callback.Host == "" {
			return Result{}, apperr.Validation("invalid callback URL")
		}
	}

	code, err := s.generate()
	if err != nil {
		return Result{}, fmt.Errorf("generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return Result{}, err
	}

	rec := record{
		Email:       addr,
		CodeHash:    hash,
		CallbackURL: callbackURL,
		ExpiresAt:   s.now().Add(s.ttl),
	}
	var res Result
	if profile != nil {
		res.Token = uuid.NewString()
		rec.SignupToken = res.Token
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return Result{}, err
	}
	if err := s.store.Set(ctx, keyPrefix+addr, payload, s.ttl); err != nil {
		return Result{}, err
	}

	msg := notification.Message{
		Kind:        notification.KindOTPEmail,
		Destination: addr,
		Subject:     "Your Myriad verification code",
		Body:        s.body(addr, code, callback, profile),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		return Result{}, fmt.Errorf("send otp: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("otp issued", slog.String("email", addr), slog.Bool("signup", profile != nil))
	}
	return res, nil
}

// Verify redeems code for email. A code is accepted at most once; a wrong
// code leaves the stored record in place.
func (s *Service) Verify(ctx context.Context, email, code string) (Claims, error) {
	addr, err := NormalizeEmail(email)
	if err != nil {
		return Claims{}, ErrInvalidCode
	}
	key := keyPrefix + addr

	rec, err := s.load(s.store.Get(ctx, key))
	if err != nil {
		return Claims{}, err
	}
	if !s.matches(rec, code) {
		return Claims{}, ErrInvalidCode
	}

	consumed, err := s.load(s.store.GetDel(ctx, key))
	if err != nil {
		return Claims{}, err
	}
	if !s.matches(consumed, code) {
		// A newer code replaced the one we checked; put it back untouched.
		if remaining := consumed.ExpiresAt.Sub(s.now()); remaining > 0 {
			s.restore(ctx, key, consumed, remaining)
		}
		return Claims{}, ErrInvalidCode
	}
	return Claims{Email: consumed.Email, SignupToken: consumed.SignupToken}, nil
}

func (s *Service) restore(ctx context.Context, key string, rec record, ttl time.Duration) {
	payload, err := json.Marshal(rec)
	if err == nil {
		_, err = s.store.SetNX(ctx, key, payload, ttl)
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("otp restore failed", slog.String("email", rec.Email), slog.Any("error", err))
	}
}

func (s *Service) load(payload []byte, err error) (record, error) {
	if errors.Is(err, kv.ErrNotFound) {
		return record{}, ErrInvalidCode
	}
	if err != nil {
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return record{}, fmt.Errorf("decode otp record: %w", err)
	}
	return rec, nil
}

func (s *Service) matches(rec record, code string) bool {
	if !s.now().Before(rec.ExpiresAt) {
		return false
	}
	return bcrypt.CompareHashAndPassword(rec.CodeHash, []byte(code)) == nil
}

func (s *Service) body(email, code string, callback *url.URL, profile *Profile) string {
	var b strings.Builder
	if profile != nil && profile.Name != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", profile.Name)
	}
	fmt.Fprintf(&b, "Your Myriad verification code is %s. It expires in %s.\n", code, s.ttl)
	if callback != nil {
		link := *callback
		q := link.Query()
		q.Set("email", email)
		q.Set("code", code)
		link.RawQuery = q.Encode()
		fmt.Fprintf(&b, "\nOr continue here: %s\n", link.String())
	}
	return b.String()
}

// NormalizeEmail validates a bare address and lowercases it.
func NormalizeEmail(email string) (string, error) {
	trimmed := strings.TrimSpace(email)
	parsed, err := mail.ParseAddress(trimmed)
	if err != nil || parsed.Address != trimmed {
		return "", apperr.Validation("Invalid Email Address")
	}
	at := strings.LastIndexByte(trimmed, '@')
	if at < 1 || !strings.Contains(trimmed[at+1:], ".") {
		return "", apperr.Validation("Invalid Email Address")
	}
	return strings.ToLower(trimmed), nil
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
