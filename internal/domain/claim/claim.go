package claim

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// secretBytes is the entropy of a session secret before hex encoding
const secretBytes = 32

// Claim is the payload rendered into the QR code and presented back by a student.
// Timestamps are unix milliseconds.
type Claim struct {
	SessionID string `json:"sessionId" validate:"required"`
	Secret    string `json:"secret" validate:"required"`
	Timestamp int64  `json:"timestamp" validate:"required,gt=0"`
	ExpiresAt int64  `json:"expiresAt" validate:"required,gt=0"`
}

// IssuedAt returns the issue time of the claim
func (c Claim) IssuedAt() time.Time {
	return time.UnixMilli(c.Timestamp)
}

// Expiry returns the moment after which the claim is rejected
func (c Claim) Expiry() time.Time {
	return time.UnixMilli(c.ExpiresAt)
}

// Payload encodes the claim as the JSON string embedded in the QR image
func (c Claim) Payload() (string, error) {
	data, err := sonic.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode claim: %w", err)
	}
	return string(data), nil
}

// GenerateSecret returns a fresh hex-encoded session secret
func GenerateSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Issuer mints claims for a session's current secret
type Issuer struct {
	window time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer whose claims live for window.
// A nil clock means time.Now.
func NewIssuer(window time.Duration, clock func() time.Time) *Issuer {
	if clock == nil {
		clock = time.Now
	}
	return &Issuer{window: window, now: clock}
}

// Window returns the lifetime of issued claims
func (i *Issuer) Window() time.Duration {
	return i.window
}

// Issue builds a claim for sessionID carrying secret verbatim. It has no side effects.
func (i *Issuer) Issue(sessionID, secret string) Claim {
	issuedAt := i.now()
	return Claim{
		SessionID: sessionID,
		Secret:    secret,
		Timestamp: issuedAt.UnixMilli(),
		ExpiresAt: issuedAt.Add(i.window).UnixMilli(),
	}
}
