package claim

import (
	"crypto/subtle"
	"errors"
	"time"
)

var (
	// ErrTokenExpired is returned when the claim is past expiresAt or older than the max age
	ErrTokenExpired = errors.New("token-expired")
	// ErrSecretMismatch is returned when the claim does not carry the session's current secret
	ErrSecretMismatch = errors.New("secret-mismatch")
)

// Verifier checks presented claims. It does not look at session liveness;
// callers check that separately.
type Verifier struct {
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier returns a Verifier accepting claims issued at most maxAge ago.
// A nil clock means time.Now.
func NewVerifier(maxAge time.Duration, clock func() time.Time) *Verifier {
	if clock == nil {
		clock = time.Now
	}
	return &Verifier{maxAge: maxAge, now: clock}
}

// MaxAge returns the oldest claim age still accepted
func (v *Verifier) MaxAge() time.Duration {
	return v.maxAge
}

// Verify checks, in order: expiry, secret equality, then age.
// The age check still holds when expiresAt was pushed forward by the client.
func (v *Verifier) Verify(c Claim, expectedSecret string) error {
	now := v.now().UnixMilli()

	if now > c.ExpiresAt {
		return ErrTokenExpired
	}

	if subtle.ConstantTimeCompare([]byte(c.Secret), []byte(expectedSecret)) != 1 {
		return ErrSecretMismatch
	}

	if now-c.Timestamp > v.maxAge.Milliseconds() {
		return ErrTokenExpired
	}

	return nil
}
