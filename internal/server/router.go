package server

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/cache"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/config"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/attendance"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/auth"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/claim"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/course"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/session"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/user"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/metrics"
)

// SetupRoutes wires repositories, caches, services and handlers on top of
// database.DB and cache.RedisClient, then registers every route.
// It fails when the signing keys cannot be loaded or the active key is missing.
// The session service is returned so the caller can drive the reaper.
func SetupRoutes(app *fiber.App, envConfig *config.Environment, cfg *config.Config) (session.Service, error) {
	db := database.DB
	redisClient := cache.RedisClient

	keyStore, err := auth.LoadKeys(cfg.Auth.KeysPath, cfg.Auth.ActiveKID)
	if err != nil {
		return nil, fmt.Errorf("failed to load keys: %w", err)
	}

	activeKey, err := keyStore.GetActiveKey()
	if err != nil {
		return nil, fmt.Errorf("active key with KID %s not found in key store: %w", cfg.Auth.ActiveKID, err)
	}
	keyID, _ := activeKey.KeyID()
	slog.Info("Active key loaded", "key", cfg.Auth.ActiveKID, "key_id", keyID)

	// Initialize repositories
	userRepo := user.NewRepository(db)
	courseRepo := course.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	attendanceRepo := attendance.NewRepository(db)

	// Redis-backed collaborators stay nil interfaces when Redis is disabled
	var (
		revoker     auth.Revoker
		markers     attendance.ClaimMarker
		sessionOpts []session.Option
	)
	if redisClient != nil {
		revoker = cache.NewTokenRevocations(redisClient)
		markers = cache.NewClaimMarkers(redisClient)
		sessionOpts = append(sessionOpts, session.WithCache(cache.NewSessionCache(redisClient, sessionRepo, cfg.Attendance.SessionCacheTTL())))
	}

	// Initialize services
	window := cfg.Attendance.QRWindow()
	userService := user.NewService(userRepo)
	courseService := course.NewService(courseRepo)
	sessionService := session.NewService(sessionRepo, courseService, claim.NewIssuer(window, nil), sessionOpts...)

	var recorderOpts []attendance.RecorderOption
	if markers != nil {
		recorderOpts = append(recorderOpts, attendance.WithMarkers(markers))
	}
	recorder := attendance.NewRecorder(attendanceRepo, sessionService, claim.NewVerifier(window, nil), recorderOpts...)
	attendanceService := attendance.NewService(attendanceRepo, markers)

	authService := auth.NewService(userService, keyStore, revoker, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL())

	// Initialize handlers
	authHandler := auth.NewHandler(authService, keyStore, auth.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure || envConfig.IsProduction(),
	})
	courseHandler := course.NewHandler(courseService)
	sessionHandler := session.NewHandler(sessionService)
	attendanceHandler := attendance.NewHandler(recorder, attendanceService, sessionService)

	requireAuth := auth.AuthMiddleware(auth.MiddlewareConfig{
		Verifier:   keyStore,
		Revoker:    revoker,
		Issuer:     cfg.Auth.Issuer,
		CookieName: cfg.Auth.CookieName,
	})
	staff := auth.RequireRole(user.RoleTeacher, user.RoleAdmin)

	// Operational endpoints
	app.Get("/health", healthHandler)
	app.Get("/metrics", metrics.Handler())
	app.Get("/.well-known/jwks.json", authHandler.JWKS)

	api := app.Group("/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/logout", requireAuth, authHandler.Logout)
	authGroup.Get("/me", requireAuth, authHandler.Me)

	courseGroup := api.Group("/courses", requireAuth)
	courseGroup.Post("", staff, courseHandler.Create)
	courseGroup.Get("", courseHandler.List)

	sessionGroup := api.Group("/sessions", requireAuth)
	sessionGroup.Post("", staff, sessionHandler.Create)
	sessionGroup.Get("/my-sessions", staff, sessionHandler.MySessions)
	sessionGroup.Get("/active", sessionHandler.Active)
	sessionGroup.Get("/:id", sessionHandler.Get)
	sessionGroup.Put("/:id", staff, sessionHandler.Update)
	sessionGroup.Get("/:id/qr", staff, sessionHandler.QR)
	sessionGroup.Get("/:id/qr.png", staff, sessionHandler.QRImage)
	sessionGroup.Post("/:id/rotate", staff, sessionHandler.Rotate)
	sessionGroup.Post("/:id/close", staff, sessionHandler.Close)

	attendanceGroup := api.Group("/attendance", requireAuth)
	attendanceGroup.Post("/claim", auth.RequireRole(user.RoleStudent), attendanceHandler.Claim)
	attendanceGroup.Get("/history", auth.RequireRole(user.RoleStudent), attendanceHandler.History)
	attendanceGroup.Get("/session/:id", staff, attendanceHandler.SessionAttendance)
	attendanceGroup.Delete("/:id", auth.RequireRole(user.RoleAdmin), attendanceHandler.Delete)

	return sessionService, nil
}
