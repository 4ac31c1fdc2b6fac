package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cajadual/backend/internal/domain"
	"cajadual/backend/internal/receipt"
	"cajadual/backend/internal/store"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t, "")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
}

func TestMutatingRequestWithoutCSRFTokenRejected(t *testing.T) {
	api := newTestAPI(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/open", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", res.Code)
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	c := newClient(t, newTestAPI(t, ""))
	veryLong := strings.Repeat("a", (1<<20)+1024)

	rec := c.do(http.MethodPost, "/api/v1/cart/lines", map[string]string{"code": veryLong}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too large body, got %d", rec.Code)
	}
}

func TestRateChangeRequiresPIN(t *testing.T) {
	c := newClient(t, newTestAPI(t, "482915"))
	body := map[string]string{"rate": "38.10"}

	c.expect(c.do(http.MethodPut, "/api/v1/exchange-rate", body, nil), http.StatusForbidden)
	c.expect(c.do(http.MethodPut, "/api/v1/exchange-rate", body, map[string]string{"X-Manager-PIN": "000000"}), http.StatusForbidden)
	c.expect(c.do(http.MethodPut, "/api/v1/exchange-rate", body, map[string]string{"X-Manager-PIN": "482915"}), http.StatusOK)
	c.expect(c.do(http.MethodGet, "/api/v1/exchange-rate", nil, nil), http.StatusOK)
}

func TestRateChangePINRateLimitReturns429(t *testing.T) {
	c := newClient(t, newTestAPI(t, "482915"))
	body := map[string]string{"rate": "38.10"}

	for i := 0; i < 9; i++ {
		rec := c.do(http.MethodPut, "/api/v1/exchange-rate", body, map[string]string{"X-Manager-PIN": "000000"})
		if i < 8 && rec.Code != http.StatusForbidden {
			t.Fatalf("attempt %d expected 403 before limit, got %d", i+1, rec.Code)
		}
		if i == 8 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 9 expected 429, got %d", rec.Code)
		}
	}
}

func TestRateChangePINSuccessesDoNotCountTowardLimit(t *testing.T) {
	c := newClient(t, newTestAPI(t, "482915"))
	body := map[string]string{"rate": "38.10"}

	for i := 0; i < 12; i++ {
		rec := c.do(http.MethodPut, "/api/v1/exchange-rate", body, map[string]string{"X-Manager-PIN": "482915"})
		if rec.Code != http.StatusOK {
			t.Fatalf("change %d expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestPINGateBlocksAfterFailuresOnly(t *testing.T) {
	gate, err := newPINGate("482915")
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	gate.limiter = newAttemptLimiter(2, time.Minute)

	if err := gate.Check("till-1", "482915"); err != nil {
		t.Fatalf("expected valid PIN to pass, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := gate.Check("till-1", "111111"); !errors.Is(err, errPINInvalid) {
			t.Fatalf("failure %d expected errPINInvalid, got %v", i+1, err)
		}
	}
	if err := gate.Check("till-1", "482915"); !errors.Is(err, errTooManyPINTries) {
		t.Fatalf("expected errTooManyPINTries after two failures, got %v", err)
	}
	if err := gate.Check("till-2", "482915"); err != nil {
		t.Fatalf("expected other till to pass, got %v", err)
	}
}

func TestPINGateAcceptsBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("482915"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	gate, err := newPINGate(string(hash))
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	if err := gate.Check("k", "482915"); err != nil {
		t.Fatalf("expected hashed PIN to validate, got %v", err)
	}
	if err := gate.Check("k", "482916"); !errors.Is(err, errPINInvalid) {
		t.Fatalf("expected errPINInvalid, got %v", err)
	}

	var disabled *pinGate
	if err := disabled.Check("k", ""); err != nil {
		t.Fatalf("expected disabled gate to allow, got %v", err)
	}
}

func TestStatusForErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: -1", domain.ErrInvalidQuantity), http.StatusBadRequest},
		{domain.ErrInvalidRate, http.StatusBadRequest},
		{domain.ErrUnknownMethod, http.StatusBadRequest},
		{receipt.ErrInvalidToken, http.StatusBadRequest},
		{fmt.Errorf("%w: not open", domain.ErrInvalidState), http.StatusConflict},
		{domain.ErrEmptyCart, http.StatusConflict},
		{domain.ErrPaymentIncomplete, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: sale x", store.ErrNotFound), http.StatusNotFound},
		{domain.ErrPersistenceFailure, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestWriteErrorHidesInternalDetailsButNotPersistenceFailures(t *testing.T) {
	api := newTestAPI(t, "")

	rec := httptest.NewRecorder()
	api.writeError(rec, http.StatusInternalServerError, errors.New("pq: relation sales does not exist"))
	if strings.Contains(rec.Body.String(), "relation") {
		t.Fatalf("expected generic message, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	api.fail(rec, fmt.Errorf("%w: sale sale-1 was not recorded: disk full", domain.ErrPersistenceFailure))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "was not recorded") {
		t.Fatalf("expected 503 with message kept, got %d %s", rec.Code, rec.Body.String())
	}
}
