package session

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/auth"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/claim"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/course"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/utils"
)

// QRResponse is what display clients poll to refresh the QR code
type QRResponse struct {
	QRData    claim.Claim `json:"qrData"`
	QRCode    string      `json:"qrCode"`
	ExpiresAt int64       `json:"expiresAt"`
}

type Handler struct {
	service Service
}

func NewHandler(s Service) *Handler {
	return &Handler{service: s}
}

// errorStatus maps domain errors to HTTP statuses; ok is false for unexpected errors
func errorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, course.ErrCourseNotFound):
		return fiber.StatusNotFound, true
	case errors.Is(err, ErrSessionInactive), errors.Is(err, ErrSessionTimeExpired):
		return fiber.StatusBadRequest, true
	}
	return 0, false
}

func (h *Handler) fail(c *fiber.Ctx, err error, op string) error {
	if status, ok := errorStatus(err); ok {
		return utils.ErrorResponse(c, err.Error(), status)
	}
	slog.Error("Session operation failed", "operation", op, "session_id", c.Params("id"), "error", err)
	return utils.ErrorResponse(c, utils.ErrInternalServer.Code, fiber.StatusInternalServerError)
}

// owned loads :id and checks that the caller owns it or is an admin.
// When ok is false the response has already been written.
func (h *Handler) owned(c *fiber.Ctx, op string) (sess *Session, ok bool, err error) {
	sess, err = h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, false, h.fail(c, err, op)
	}
	if !h.service.IsOwnerOrAdmin(auth.GetIdentity(c), sess) {
		return nil, false, utils.ErrorResponse(c, utils.ErrForbidden.Code, fiber.StatusForbidden)
	}
	return sess, true, nil
}

func (h *Handler) qrResponse(c *fiber.Ctx, id string) (*QRResponse, error) {
	cl, err := h.service.IssueClaim(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	payload, err := cl.Payload()
	if err != nil {
		return nil, err
	}
	dataURL, err := claim.RenderDataURL(payload)
	if err != nil {
		return nil, err
	}
	return &QRResponse{QRData: cl, QRCode: dataURL, ExpiresAt: cl.ExpiresAt}, nil
}

func (h *Handler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if ok, err := utils.ParseAndValidate(c, &req); !ok {
		return err
	}

	identity := auth.GetIdentity(c)
	teacherID, err := uuid.Parse(identity.UserID)
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized.Code, fiber.StatusUnauthorized)
	}

	sess, err := h.service.Create(c.UserContext(), teacherID, req)
	if err != nil {
		return h.fail(c, err, "create")
	}

	qr, err := h.qrResponse(c, sess.ID.String())
	if err != nil {
		return h.fail(c, err, "create")
	}

	return utils.SuccessResponse(c, fiber.Map{
		"session": sess.ToResponse(h.service.Now()),
		"qr":      qr,
	}, "Session created successfully", fiber.StatusCreated)
}

func (h *Handler) MySessions(c *fiber.Ctx) error {
	status, ok := ParseStatusFilter(c.Query("status"))
	if !ok {
		return utils.ErrorResponse(c, "invalid_status", fiber.StatusBadRequest)
	}
	page, limit := utils.PageParams(c)

	sessions, total, err := h.service.ListMine(c.UserContext(), auth.GetIdentity(c).UserID, status, page, limit)
	if err != nil {
		return h.fail(c, err, "list")
	}

	return utils.SuccessResponse(c, fiber.Map{
		"sessions":   h.toResponses(sessions),
		"pagination": utils.NewPagination(page, limit, total),
	}, "Sessions retrieved")
}

func (h *Handler) Active(c *fiber.Ctx) error {
	sessions, err := h.service.ListActive(c.UserContext())
	if err != nil {
		return h.fail(c, err, "list_active")
	}
	return utils.SuccessResponse(c, fiber.Map{"sessions": h.toResponses(sessions)}, "Active sessions retrieved")
}

func (h *Handler) Get(c *fiber.Ctx) error {
	sess, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "get")
	}
	return utils.SuccessResponse(c, fiber.Map{"session": sess.ToResponse(h.service.Now())}, "Session retrieved")
}

func (h *Handler) Update(c *fiber.Ctx) error {
	var req UpdateRequest
	if ok, err := utils.ParseAndValidate(c, &req); !ok {
		return err
	}
	if _, ok, err := h.owned(c, "update"); !ok {
		return err
	}

	sess, err := h.service.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return h.fail(c, err, "update")
	}
	return utils.SuccessResponse(c, fiber.Map{"session": sess.ToResponse(h.service.Now())}, "Session updated")
}

func (h *Handler) QR(c *fiber.Ctx) error {
	sess, ok, err := h.owned(c, "qr")
	if !ok {
		return err
	}

	qr, err := h.qrResponse(c, sess.ID.String())
	if err != nil {
		return h.fail(c, err, "qr")
	}
	return utils.SuccessResponse(c, qr, "QR code generated")
}

// QRImage serves a fresh claim as a bare PNG for kiosk displays
func (h *Handler) QRImage(c *fiber.Ctx) error {
	sess, ok, err := h.owned(c, "qr_png")
	if !ok {
		return err
	}

	cl, err := h.service.IssueClaim(c.UserContext(), sess.ID.String())
	if err != nil {
		return h.fail(c, err, "qr_png")
	}
	payload, err := cl.Payload()
	if err != nil {
		return h.fail(c, err, "qr_png")
	}
	png, err := claim.RenderPNG(payload)
	if err != nil {
		return h.fail(c, err, "qr_png")
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(png)
}

func (h *Handler) Rotate(c *fiber.Ctx) error {
	sess, ok, err := h.owned(c, "rotate")
	if !ok {
		return err
	}

	sess, err = h.service.RotateSecret(c.UserContext(), sess.ID.String())
	if err != nil {
		return h.fail(c, err, "rotate")
	}
	return utils.SuccessResponse(c, fiber.Map{"session": sess.ToResponse(h.service.Now())}, "Session secret rotated")
}

func (h *Handler) Close(c *fiber.Ctx) error {
	sess, ok, err := h.owned(c, "close")
	if !ok {
		return err
	}

	sess, err = h.service.Close(c.UserContext(), sess.ID.String(), TriggerManual)
	if err != nil {
		return h.fail(c, err, "close")
	}
	return utils.SuccessResponse(c, fiber.Map{"session": sess.ToResponse(h.service.Now())}, "Session closed")
}

func (h *Handler) toResponses(sessions []Session) []*Response {
	now := h.service.Now()
	out := make([]*Response, 0, len(sessions))
	for i := range sessions {
		out = append(out, sessions[i].ToResponse(now))
	}
	return out
}
