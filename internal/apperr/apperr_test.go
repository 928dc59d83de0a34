package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad email %q", "x"), http.StatusUnprocessableEntity},
		{Authentication("bad signature"), http.StatusUnauthorized},
		{fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("create: %w", ErrConflict), http.StatusConflict},
		{fiber.NewError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Fatalf("Status(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
