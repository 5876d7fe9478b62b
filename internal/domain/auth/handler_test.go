package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/user"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req user.LoginRequest) (*LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LoginResponse), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, req user.RegisterRequest) (*user.UserResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.UserResponse), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, identity *Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *MockAuthService) Me(ctx context.Context, identity *Identity) (*user.UserResponse, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.UserResponse), args.Error(1)
}

func jsonRequest(method, target string, body any) *http.Request {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func readError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func TestHandler_Login(t *testing.T) {
	cookie := CookieConfig{Name: "access_token", Secure: true}

	t.Run("successful login sets cookie", func(t *testing.T) {
		svc := new(MockAuthService)
		h := NewHandler(svc, nil, cookie)
		app := fiber.New()
		app.Post("/auth/login", h.Login)

		req := user.LoginRequest{Email: "prof@campus.edu", Password: "secret123"}
		svc.On("Login", mock.Anything, req).Return(&LoginResponse{
			AccessToken: "signed.jwt.value",
			TokenType:   "Bearer",
			ExpiresAt:   time.Now().Add(time.Hour),
			User:        &user.UserResponse{ID: uuid.New(), Email: req.Email, Role: user.RoleTeacher},
		}, nil)

		resp, err := app.Test(jsonRequest("POST", "/auth/login", req))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		cookies := resp.Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "access_token", cookies[0].Name)
		assert.Equal(t, "signed.jwt.value", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		svc.AssertExpectations(t)
	})

	t.Run("invalid JSON never reaches the service", func(t *testing.T) {
		svc := new(MockAuthService)
		app := fiber.New()
		app.Post("/auth/login", NewHandler(svc, nil, cookie).Login)

		resp, err := app.Test(jsonRequest("POST", "/auth/login", `{"email": "x", "password": }`))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_body", readError(t, resp))
		svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	})

	t.Run("validation failure", func(t *testing.T) {
		svc := new(MockAuthService)
		app := fiber.New()
		app.Post("/auth/login", NewHandler(svc, nil, cookie).Login)

		resp, err := app.Test(jsonRequest("POST", "/auth/login", map[string]string{"email": "not-an-email"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_failed", readError(t, resp))
	})

	t.Run("bad credentials", func(t *testing.T) {
		svc := new(MockAuthService)
		app := fiber.New()
		app.Post("/auth/login", NewHandler(svc, nil, cookie).Login)
		svc.On("Login", mock.Anything, mock.Anything).Return(nil, user.ErrInvalidCredentials)

		resp, err := app.Test(jsonRequest("POST", "/auth/login", user.LoginRequest{Email: "a@campus.edu", Password: "wrong-pass"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "invalid_credentials", readError(t, resp))
	})

	t.Run("store failure", func(t *testing.T) {
		svc := new(MockAuthService)
		app := fiber.New()
		app.Post("/auth/login", NewHandler(svc, nil, cookie).Login)
		svc.On("Login", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

		resp, err := app.Test(jsonRequest("POST", "/auth/login", user.LoginRequest{Email: "a@campus.edu", Password: "secret123"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "internal_server_error", readError(t, resp))
	})
}

func TestHandler_Register(t *testing.T) {
	valid := user.RegisterRequest{
		Email: "new@campus.edu", Password: "secret123", Name: "New Student", Role: user.RoleStudent, StudentID: "CS-9",
	}

	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{name: "created", wantStatus: fiber.StatusCreated},
		{name: "email taken", serviceErr: user.ErrEmailExists, wantStatus: fiber.StatusConflict, wantError: "email_exists"},
		{name: "admin refused", serviceErr: ErrAdminRegistration, wantStatus: fiber.StatusBadRequest, wantError: "admin_registration_disabled"},
		{name: "missing student id", serviceErr: user.ErrStudentIDRequired, wantStatus: fiber.StatusBadRequest, wantError: "student_id_required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAuthService)
			app := fiber.New()
			app.Post("/auth/register", NewHandler(svc, nil, CookieConfig{}).Register)

			if tt.serviceErr != nil {
				svc.On("Register", mock.Anything, valid).Return(nil, tt.serviceErr)
			} else {
				svc.On("Register", mock.Anything, valid).Return(&user.UserResponse{ID: uuid.New(), Email: valid.Email}, nil)
			}

			resp, err := app.Test(jsonRequest("POST", "/auth/register", valid))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, readError(t, resp))
			}
		})
	}
}

func withIdentity(identity *Identity, h fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if identity != nil {
			c.Locals(IdentityKey, identity)
		}
		return h(c)
	}
}

func TestHandler_LogoutAndMe(t *testing.T) {
	identity := &Identity{UserID: uuid.NewString(), Role: user.RoleStudent, TokenID: "jti-1"}

	t.Run("logout clears cookie", func(t *testing.T) {
		svc := new(MockAuthService)
		h := NewHandler(svc, nil, CookieConfig{Name: "access_token"})
		app := fiber.New()
		app.Post("/auth/logout", withIdentity(identity, h.Logout))
		svc.On("Logout", mock.Anything, identity).Return(nil)

		resp, err := app.Test(httptest.NewRequest("POST", "/auth/logout", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Len(t, resp.Cookies(), 1)
		assert.Empty(t, resp.Cookies()[0].Value)
	})

	t.Run("me", func(t *testing.T) {
		svc := new(MockAuthService)
		h := NewHandler(svc, nil, CookieConfig{})
		app := fiber.New()
		app.Get("/auth/me", withIdentity(identity, h.Me))
		svc.On("Me", mock.Anything, identity).Return(&user.UserResponse{Email: "me@campus.edu"}, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/auth/me", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("me without identity", func(t *testing.T) {
		svc := new(MockAuthService)
		h := NewHandler(svc, nil, CookieConfig{})
		app := fiber.New()
		app.Get("/auth/me", h.Me)
		svc.On("Me", mock.Anything, (*Identity)(nil)).Return(nil, ErrMissingIdentity)

		resp, err := app.Test(httptest.NewRequest("GET", "/auth/me", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestHandler_JWKS(t *testing.T) {
	ks := newTestKeyStore(t)
	app := fiber.New()
	app.Get("/.well-known/jwks.json", NewHandler(new(MockAuthService), ks, CookieConfig{}).JWKS)

	resp, err := app.Test(httptest.NewRequest("GET", "/.well-known/jwks.json", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Keys, 1)
	assert.Equal(t, "key-main", body.Keys[0]["kid"])
	assert.NotContains(t, body.Keys[0], "d", "private exponent must not be published")
}
