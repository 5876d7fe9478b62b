package auth

import (
	"errors"
	"time"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/user"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const (
	claimEmail = "email"
	claimRole  = "role"
)

// AccessTokenClaims wraps a parsed or freshly built access token
type AccessTokenClaims struct {
	Token jwt.Token
}

func (c *AccessTokenClaims) Subject() string {
	sub, _ := c.Token.Subject()
	return sub
}

func (c *AccessTokenClaims) Issuer() string {
	iss, _ := c.Token.Issuer()
	return iss
}

func (c *AccessTokenClaims) TokenID() string {
	jti, _ := c.Token.JwtID()
	return jti
}

func (c *AccessTokenClaims) Expiration() time.Time {
	exp, _ := c.Token.Expiration()
	return exp
}

// Email returns the email private claim
func (c *AccessTokenClaims) Email() string {
	var email string
	if err := c.Token.Get(claimEmail, &email); err != nil {
		return ""
	}
	return email
}

// Role returns the role private claim
func (c *AccessTokenClaims) Role() user.Role {
	var role string
	if err := c.Token.Get(claimRole, &role); err != nil {
		return ""
	}
	return user.Role(role)
}

// Validate checks the claims this service relies on beyond signature and expiry
func (c *AccessTokenClaims) Validate(issuer string) error {
	if c.Expiration().IsZero() {
		return errors.New("token missing expiration claim")
	}
	if issuer != "" && c.Issuer() != issuer {
		return errors.New("token issuer mismatch")
	}
	if c.Subject() == "" {
		return errors.New("token missing subject")
	}
	if !c.Role().IsValid() {
		return errors.New("token carries an unknown role")
	}
	return nil
}

// Identity is the caller as seen by handlers, whichever credential form was used
type Identity struct {
	UserID    string
	Email     string
	Role      user.Role
	TokenID   string
	ExpiresAt time.Time
}

// HasRole reports whether the identity holds one of roles
func (i *Identity) HasRole(roles ...user.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity is an administrator
func (i *Identity) IsAdmin() bool {
	return i.Role == user.RoleAdmin
}

func identityFromClaims(claims *AccessTokenClaims) *Identity {
	return &Identity{
		UserID:    claims.Subject(),
		Email:     claims.Email(),
		Role:      claims.Role(),
		TokenID:   claims.TokenID(),
		ExpiresAt: claims.Expiration(),
	}
}
