package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/user"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/utils"
)

const (
	// IdentityKey is the key used to store the identity in Fiber context
	IdentityKey = "identity"
)

// Revoker tracks access tokens invalidated before their expiry
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MiddlewareConfig configures AuthMiddleware
type MiddlewareConfig struct {
	Verifier   TokenVerifier
	Revoker    Revoker // optional
	Issuer     string
	CookieName string
}

// extractToken reads the bearer header first and falls back to the cookie
func extractToken(c *fiber.Ctx, cookieName string) (string, string) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", "invalid_authorization_header"
		}
		token := strings.TrimSpace(parts[1])
		if token == "" {
			return "", "missing_token"
		}
		return token, ""
	}

	if cookieName != "" {
		if token := c.Cookies(cookieName); token != "" {
			return token, ""
		}
	}

	return "", "missing_token"
}

// AuthMiddleware accepts either an Authorization bearer token or the access token cookie
// and stores the resulting Identity in the request locals.
func AuthMiddleware(cfg MiddlewareConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, problem := extractToken(c, cfg.CookieName)
		if problem != "" {
			return utils.ErrorResponse(c, problem, fiber.StatusUnauthorized)
		}

		claims, err := cfg.Verifier.Verify(token)
		if err != nil {
			return utils.ErrorResponse(c, "invalid_token", fiber.StatusUnauthorized)
		}

		if err := claims.Validate(cfg.Issuer); err != nil {
			return utils.ErrorResponse(c, "token_expired_or_invalid", fiber.StatusUnauthorized)
		}

		if cfg.Revoker != nil && claims.TokenID() != "" {
			revoked, err := cfg.Revoker.IsRevoked(c.UserContext(), claims.TokenID())
			if err != nil {
				slog.Error("Failed to check token revocation", "user_id", claims.Subject(), "error", err)
				return utils.ErrorResponse(c, "token_validation_error", fiber.StatusInternalServerError)
			}
			if revoked {
				return utils.ErrorResponse(c, "token_revoked", fiber.StatusUnauthorized)
			}
		}

		c.Locals(IdentityKey, identityFromClaims(claims))

		return c.Next()
	}
}

// RequireRole rejects identities that hold none of roles. It must run after AuthMiddleware.
func RequireRole(roles ...user.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := GetIdentity(c)
		if identity == nil {
			return utils.ErrorResponse(c, "unauthorized", fiber.StatusUnauthorized)
		}
		if !identity.HasRole(roles...) {
			return utils.ErrorResponse(c, "forbidden", fiber.StatusForbidden)
		}
		return c.Next()
	}
}

// GetIdentity extracts the identity from Fiber context
func GetIdentity(c *fiber.Ctx) *Identity {
	identity, ok := c.Locals(IdentityKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}
