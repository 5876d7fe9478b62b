package auth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/user"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/utils"
)

// CookieConfig controls the access token cookie set on login
type CookieConfig struct {
	Name   string
	Secure bool
}

type Handler struct {
	authService AuthService
	keyStore    *KeyStore
	cookie      CookieConfig
}

func NewHandler(s AuthService, keyStore *KeyStore, cookie CookieConfig) *Handler {
	return &Handler{authService: s, keyStore: keyStore, cookie: cookie}
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req user.LoginRequest
	if ok, err := utils.ParseAndValidate(c, &req); !ok {
		return err
	}

	res, err := h.authService.Login(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) || errors.Is(err, user.ErrUserInactive) {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized)
		}
		slog.Error("Login failed", "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer.Code, fiber.StatusInternalServerError)
	}

	if h.cookie.Name != "" {
		c.Cookie(&fiber.Cookie{
			Name:     h.cookie.Name,
			Value:    res.AccessToken,
			HTTPOnly: true,
			Secure:   h.cookie.Secure,
			Path:     "/",
			SameSite: fiber.CookieSameSiteLaxMode,
			Expires:  res.ExpiresAt,
		})
	}

	return utils.SuccessResponse(c, res, "Login successful")
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req user.RegisterRequest
	if ok, err := utils.ParseAndValidate(c, &req); !ok {
		return err
	}

	res, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailExists), errors.Is(err, user.ErrStudentIDExists):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict)
		case errors.Is(err, user.ErrStudentIDRequired), errors.Is(err, user.ErrInvalidRole), errors.Is(err, ErrAdminRegistration):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest)
		}
		slog.Error("Registration failed", "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer.Code, fiber.StatusInternalServerError)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"user": res,
	}, "User registered successfully", fiber.StatusCreated)
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if err := h.authService.Logout(c.UserContext(), identity); err != nil {
		if errors.Is(err, ErrMissingIdentity) {
			return utils.ErrorResponse(c, "unauthorized", fiber.StatusUnauthorized)
		}
		slog.Error("Logout failed", "user_id", identity.UserID, "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer.Code, fiber.StatusInternalServerError)
	}

	if h.cookie.Name != "" {
		c.Cookie(&fiber.Cookie{
			Name:     h.cookie.Name,
			Value:    "",
			HTTPOnly: true,
			Secure:   h.cookie.Secure,
			Path:     "/",
			Expires:  time.Unix(0, 0),
		})
	}

	return utils.SuccessResponse(c, nil, "Logged out")
}

func (h *Handler) Me(c *fiber.Ctx) error {
	res, err := h.authService.Me(c.UserContext(), GetIdentity(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingIdentity):
			return utils.ErrorResponse(c, "unauthorized", fiber.StatusUnauthorized)
		case errors.Is(err, user.ErrUserNotFound):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusNotFound)
		}
		return utils.ErrorResponse(c, utils.ErrInternalServer.Code, fiber.StatusInternalServerError)
	}
	return utils.SuccessResponse(c, fiber.Map{"user": res}, "Profile retrieved")
}

// JWKS serves the public signing keys
func (h *Handler) JWKS(c *fiber.Ctx) error {
	return c.JSON(h.keyStore.JWKS())
}
