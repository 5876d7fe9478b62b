package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/user"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// LoginResponse represents the response from a successful login
type LoginResponse struct {
	AccessToken string             `json:"access_token"`
	TokenType   string             `json:"token_type"`
	ExpiresAt   time.Time          `json:"expires_at"`
	User        *user.UserResponse `json:"user"`
}

// AuthService is what the auth handler needs
type AuthService interface {
	Login(ctx context.Context, req user.LoginRequest) (*LoginResponse, error)
	Register(ctx context.Context, req user.RegisterRequest) (*user.UserResponse, error)
	Logout(ctx context.Context, identity *Identity) error
	Me(ctx context.Context, identity *Identity) (*user.UserResponse, error)
}

// Signer signs access tokens
type Signer interface {
	Sign(claims *AccessTokenClaims) (string, error)
}

// Service handles authentication operations
type Service struct {
	Users   user.Service
	Signer  Signer
	Revoker Revoker // optional
	issuer  string
	ttl     time.Duration
	now     func() time.Time
}

// NewService creates a new auth service
func NewService(users user.Service, signer Signer, revoker Revoker, issuer string, ttl time.Duration) *Service {
	return &Service{
		Users:   users,
		Signer:  signer,
		Revoker: revoker,
		issuer:  issuer,
		ttl:     ttl,
		now:     time.Now,
	}
}

// GenerateAccessToken builds and signs a token for u
func (s *Service) GenerateAccessToken(u *user.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)

	token, err := jwt.NewBuilder().
		Subject(u.ID.String()).
		Issuer(s.issuer).
		IssuedAt(now).
		Expiration(exp).
		JwtID(uuid.NewString()).
		Claim(claimEmail, u.Email).
		Claim(claimRole, string(u.Role)).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := s.Signer.Sign(&AccessTokenClaims{Token: token})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

func (s *Service) Login(ctx context.Context, req user.LoginRequest) (*LoginResponse, error) {
	u, err := s.Users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	access, exp, err := s.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
		User:        u.ToResponse(),
	}, nil
}

// Register creates a student or teacher account. Admins are created from the CLI.
func (s *Service) Register(ctx context.Context, req user.RegisterRequest) (*user.UserResponse, error) {
	if req.Role == user.RoleAdmin {
		return nil, ErrAdminRegistration
	}

	u, err := s.Users.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return u.ToResponse(), nil
}

// Logout revokes the presented token until it would have expired anyway.
// Without a revoker the client simply drops the token.
func (s *Service) Logout(ctx context.Context, identity *Identity) error {
	if identity == nil {
		return ErrMissingIdentity
	}
	if s.Revoker == nil || identity.TokenID == "" {
		return nil
	}
	return s.Revoker.Revoke(ctx, identity.TokenID, identity.ExpiresAt)
}

func (s *Service) Me(ctx context.Context, identity *Identity) (*user.UserResponse, error) {
	if identity == nil {
		return nil, ErrMissingIdentity
	}
	u, err := s.Users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return u.ToResponse(), nil
}
