package session

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/auth"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/user"
)

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(f *fixture, identity *auth.Identity) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if identity != nil {
			c.Locals(auth.IdentityKey, identity)
		}
		return c.Next()
	})

	h := NewHandler(f.svc)
	app.Post("/sessions", h.Create)
	app.Get("/sessions/my-sessions", h.MySessions)
	app.Get("/sessions/active", h.Active)
	app.Get("/sessions/:id", h.Get)
	app.Put("/sessions/:id", h.Update)
	app.Get("/sessions/:id/qr", h.QR)
	app.Get("/sessions/:id/qr.png", h.QRImage)
	app.Post("/sessions/:id/rotate", h.Rotate)
	app.Post("/sessions/:id/close", h.Close)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target string, body any) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func (f *fixture) owner() *auth.Identity {
	return &auth.Identity{UserID: f.teacherID.String(), Role: user.RoleTeacher}
}

func TestHandler_Create(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(f, f.owner())

	t.Run("created with a qr code", func(t *testing.T) {
		resp, env := doRequest(t, app, http.MethodPost, "/sessions", map[string]any{
			"courseId": f.course.ID.String(),
			"title":    "Lecture 5",
			"duration": 45,
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var data struct {
			Session Response   `json:"session"`
			QR      QRResponse `json:"qr"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, 45, data.Session.Duration)
		assert.Equal(t, StateOpen, data.Session.State)
		assert.Equal(t, data.Session.ID.String(), data.QR.QRData.SessionID)
		assert.True(t, strings.HasPrefix(data.QR.QRCode, "data:image/png;base64,"))
		assert.Equal(t, data.QR.QRData.ExpiresAt, data.QR.ExpiresAt)
	})

	t.Run("validation", func(t *testing.T) {
		resp, env := doRequest(t, app, http.MethodPost, "/sessions", map[string]any{
			"courseId": f.course.ID.String(),
			"title":    "x",
			"duration": 500,
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_failed", env.Error)
	})

	t.Run("unknown course", func(t *testing.T) {
		resp, env := doRequest(t, app, http.MethodPost, "/sessions", map[string]any{
			"courseId": uuid.NewString(),
			"title":    "Lecture 6",
		})
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "course_not_found", env.Error)
	})
}

func TestHandler_Get(t *testing.T) {
	f := newFixture(t)
	sess := f.create(t, 60)
	app := newTestApp(f, &auth.Identity{UserID: uuid.NewString(), Role: user.RoleStudent})

	resp, env := doRequest(t, app, http.MethodGet, "/sessions/"+sess.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(env.Data), sess.Secret)

	resp, env = doRequest(t, app, http.MethodGet, "/sessions/"+uuid.NewString(), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session-not-found", env.Error)
}

func TestHandler_Ownership(t *testing.T) {
	f := newFixture(t)
	sess := f.create(t, 60)
	intruder := newTestApp(f, &auth.Identity{UserID: uuid.NewString(), Role: user.RoleTeacher})

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/sessions/" + sess.ID.String() + "/qr"},
		{http.MethodGet, "/sessions/" + sess.ID.String() + "/qr.png"},
		{http.MethodPost, "/sessions/" + sess.ID.String() + "/rotate"},
		{http.MethodPost, "/sessions/" + sess.ID.String() + "/close"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			resp, env := doRequest(t, intruder, route.method, route.path, nil)
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
			assert.Equal(t, "forbidden", env.Error)
		})
	}

	got, err := f.svc.Get(t.Context(), sess.ID.String())
	require.NoError(t, err)
	assert.True(t, got.Active)
}

func TestHandler_QR(t *testing.T) {
	f := newFixture(t)
	sess := f.create(t, 60)
	app := newTestApp(f, f.owner())

	resp, env := doRequest(t, app, http.MethodGet, "/sessions/"+sess.ID.String()+"/qr", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var qr QRResponse
	require.NoError(t, json.Unmarshal(env.Data, &qr))
	assert.Equal(t, sess.Secret, qr.QRData.Secret)
	assert.Equal(t, f.clock.Now().Add(20*time.Second).UnixMilli(), qr.ExpiresAt)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+sess.ID.String()+"/qr.png", nil)
	pngResp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, pngResp.StatusCode)
	assert.Equal(t, "image/png", pngResp.Header.Get("Content-Type"))
	body, err := io.ReadAll(pngResp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))

	t.Run("expired session", func(t *testing.T) {
		f.clock.Advance(2 * time.Hour)
		resp, env := doRequest(t, app, http.MethodGet, "/sessions/"+sess.ID.String()+"/qr", nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "session-time-expired", env.Error)
	})
}

func TestHandler_CloseAndRotate(t *testing.T) {
	f := newFixture(t)
	sess := f.create(t, 60)
	app := newTestApp(f, f.owner())

	resp, _ := doRequest(t, app, http.MethodPost, "/sessions/"+sess.ID.String()+"/rotate", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	rotated, err := f.svc.Get(t.Context(), sess.ID.String())
	require.NoError(t, err)
	assert.NotEqual(t, sess.Secret, rotated.Secret)

	resp, env := doRequest(t, app, http.MethodPost, "/sessions/"+sess.ID.String()+"/close", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var data struct {
		Session Response `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, StateClosed, data.Session.State)
	assert.NotNil(t, data.Session.EndTime)

	resp, _ = doRequest(t, app, http.MethodPost, "/sessions/"+sess.ID.String()+"/close", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env = doRequest(t, app, http.MethodGet, "/sessions/"+sess.ID.String()+"/qr", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "session-inactive", env.Error)

	resp, env = doRequest(t, app, http.MethodPut, "/sessions/"+sess.ID.String(), map[string]any{"title": "Too late"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "session-inactive", env.Error)
}

func TestHandler_MySessions(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Minute)
		f.create(t, 60)
	}
	app := newTestApp(f, f.owner())

	resp, env := doRequest(t, app, http.MethodGet, "/sessions/my-sessions?page=1&limit=2&status=active", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var data struct {
		Sessions   []Response `json:"sessions"`
		Pagination struct {
			Current int   `json:"current"`
			Pages   int   `json:"pages"`
			Total   int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Sessions, 2)
	assert.Equal(t, 1, data.Pagination.Current)
	assert.Equal(t, 2, data.Pagination.Pages)
	assert.Equal(t, int64(3), data.Pagination.Total)

	resp, env = doRequest(t, app, http.MethodGet, "/sessions/my-sessions?status=archived", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_status", env.Error)

	resp, env = doRequest(t, app, http.MethodGet, "/sessions/active", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Sessions, 3)
}
