package httpapi

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	errPINRequired     = errors.New("rate change PIN required")
	errPINInvalid      = errors.New("invalid rate change PIN")
	errTooManyPINTries = errors.New("too many rate change PIN attempts")
)

// pinGate guards exchange-rate changes. It is a control against accidental
// changes at the till, not authentication.
type pinGate struct {
	hash    []byte
	limiter *attemptLimiter
}

// newPINGate returns nil when pin is empty, which disables the gate. pin may
// be given in plain text or as a bcrypt hash.
func newPINGate(pin string) (*pinGate, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return nil, nil
	}
	hash := []byte(pin)
	if !isPINHash(pin) {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	}
	return &pinGate{hash: hash, limiter: newAttemptLimiter(8, time.Minute)}, nil
}

// Check reports nil when the gate is disabled or pin matches. Only missing
// or wrong PINs count against key.
func (g *pinGate) Check(key string, pin string) error {
	if g == nil {
		return nil
	}
	if g.limiter.Blocked(key) {
		return errTooManyPINTries
	}
	input := strings.TrimSpace(pin)
	if input == "" {
		g.limiter.Fail(key)
		return errPINRequired
	}
	if bcrypt.CompareHashAndPassword(g.hash, []byte(input)) != nil {
		g.limiter.Fail(key)
		return errPINInvalid
	}
	return nil
}

func isPINHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
