package otp

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/myriad-social/myriad_api/internal/apperr"
	"github.com/myriad-social/myriad_api/internal/kv"
	"github.com/myriad-social/myriad_api/internal/logging"
	"github.com/myriad-social/myriad_api/internal/notification"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (n *captureNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, codes ...string) (*Service, *captureNotifier, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	notifier := &captureNotifier{}
	svc := NewService(kv.NewMemoryStore(clock.Now), notifier, 10*time.Minute, logging.Discard())
	svc.now = clock.Now
	svc.generate = func() (string, error) {
		if len(codes) == 0 {
			return generateCode()
		}
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	return svc, notifier, clock
}

func TestRequestByEmailRejectsMalformed(t *testing.T) {
	svc, notifier, _ := newTestService(t)
	generated := false
	svc.generate = func() (string, error) {
		generated = true
		return "000000", nil
	}

	for _, email := range []string{"not-an-email", "", "Alice <alice@example.com>", "alice@localhost"} {
		_, err := svc.RequestByEmail(context.Background(), email, "", nil)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", email, err)
		}
	}
	if generated || len(notifier.sent) != 0 {
		t.Fatalf("no code must be generated or sent for malformed email")
	}
}

func TestVerifySingleUse(t *testing.T) {
	svc, notifier, _ := newTestService(t, "123456")
	ctx := context.Background()

	res, err := svc.RequestByEmail(ctx, "Alice@Example.com", "https://app.myriad.social/login", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.Token != "" {
		t.Fatalf("login requests must not mint signup tokens")
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(notifier.sent))
	}
	msg := notifier.sent[0]
	if msg.Destination != "alice@example.com" || !strings.Contains(msg.Body, "123456") {
		t.Fatalf("unexpected mail %+v", msg)
	}
	if !strings.Contains(msg.Body, "https://app.myriad.social/login?code=123456&email=alice%40example.com") {
		t.Fatalf("expected callback link in body: %s", msg.Body)
	}

	if _, err := svc.Verify(ctx, "alice@example.com", "654321"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected wrong code rejected, got %v", err)
	}
	claims, err := svc.Verify(ctx, "alice@example.com", "123456")
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, err := svc.Verify(ctx, "alice@example.com", "123456"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected second verify to fail, got %v", err)
	}
	if !errors.Is(ErrInvalidCode, apperr.ErrAuthentication) {
		t.Fatalf("invalid code must be an authentication error")
	}
}

func TestVerifyExpired(t *testing.T) {
	svc, _, clock := newTestService(t, "111111")
	ctx := context.Background()
	if _, err := svc.RequestByEmail(ctx, "bob@example.com", "", nil); err != nil {
		t.Fatalf("request: %v", err)
	}
	clock.now = clock.now.Add(11 * time.Minute)
	if _, err := svc.Verify(ctx, "bob@example.com", "111111"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected expired code rejected, got %v", err)
	}
}

func TestNewerRequestReplacesCode(t *testing.T) {
	svc, _, _ := newTestService(t, "111111", "222222")
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := svc.RequestByEmail(ctx, "carol@example.com", "", nil); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if _, err := svc.Verify(ctx, "carol@example.com", "111111"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected replaced code rejected, got %v", err)
	}
	if _, err := svc.Verify(ctx, "carol@example.com", "222222"); err != nil {
		t.Fatalf("expected latest code accepted: %v", err)
	}
}

func TestSignupTokenMinted(t *testing.T) {
	svc, notifier, _ := newTestService(t, "333333")
	ctx := context.Background()
	res, err := svc.RequestByEmail(ctx, "dave@example.com", "", &Profile{ID: "u1", Name: "Dave", Username: "dave", Email: "dave@example.com"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected signup token")
	}
	if !strings.HasPrefix(notifier.sent[0].Body, "Hi Dave,") {
		t.Fatalf("expected greeting, got %q", notifier.sent[0].Body)
	}
	claims, err := svc.Verify(ctx, "dave@example.com", "333333")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.SignupToken != res.Token {
		t.Fatalf("expected signup token %s on claims, got %s", res.Token, claims.SignupToken)
	}
}

func TestRequestByEmailRejectsBadCallback(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.RequestByEmail(context.Background(), "eve@example.com", "not a url", nil); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateCode(t *testing.T) {
	code, err := generateCode()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != codeDigits {
		t.Fatalf("expected %d digits, got %q", codeDigits, code)
	}
}

// racingStore lets a newer code land between the read and the consume of
// Verify, and fails to write anything back afterwards.
type racingStore struct {
	kv.Store
	beforeGetDel func()
}

func (s *racingStore) GetDel(ctx context.Context, key string) ([]byte, error) {
	if s.beforeGetDel != nil {
		hook := s.beforeGetDel
		s.beforeGetDel = nil
		hook()
	}
	return s.Store.GetDel(ctx, key)
}

func (s *racingStore) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, errors.New("connection reset")
}

func TestVerifyLogsFailedRestore(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := &racingStore{Store: kv.NewMemoryStore(clock.Now)}
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	svc := NewService(store, &captureNotifier{}, 10*time.Minute, logger)
	svc.now = clock.Now
	codes := []string{"111111", "222222"}
	svc.generate = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	ctx := context.Background()
	if _, err := svc.RequestByEmail(ctx, "frank@example.com", "", nil); err != nil {
		t.Fatalf("request: %v", err)
	}
	store.beforeGetDel = func() {
		if _, err := svc.RequestByEmail(ctx, "frank@example.com", "", nil); err != nil {
			t.Fatalf("second request: %v", err)
		}
	}

	if _, err := svc.Verify(ctx, "frank@example.com", "111111"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected superseded code to fail, got %v", err)
	}
	if !strings.Contains(logs.String(), "otp restore failed") {
		t.Fatalf("expected the failed restore to be logged, got %q", logs.String())
	}
}
