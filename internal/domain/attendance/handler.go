package attendance

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/auth"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/session"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/utils"
)

type Handler struct {
	recorder *Recorder
	service  Service
	sessions session.Service
}

func NewHandler(recorder *Recorder, s Service, sessions session.Service) *Handler {
	return &Handler{recorder: recorder, service: s, sessions: sessions}
}

// claimStatus maps a claim rejection to its HTTP status
func claimStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrDuplicateClaim):
		return fiber.StatusConflict
	case ReasonCode(err) != "":
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// Claim records the caller's attendance from a scanned QR payload
func (h *Handler) Claim(c *fiber.Ctx) error {
	var req ClaimRequest
	if ok, err := utils.ParseAndValidate(c, &req); !ok {
		return err
	}

	identity := auth.GetIdentity(c)
	studentID, err := uuid.Parse(identity.UserID)
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized.Code, fiber.StatusUnauthorized)
	}

	deviceInfo := req.DeviceInfo
	if deviceInfo == "" {
		deviceInfo = c.Get(fiber.HeaderUserAgent)
	}

	rec, err := h.recorder.Record(c.UserContext(), RecordInput{
		StudentID:  studentID,
		SessionID:  req.SessionID,
		Claim:      req.QRData,
		DeviceInfo: deviceInfo,
		IPAddress:  c.IP(),
	})
	if err != nil {
		status := claimStatus(err)
		if status == fiber.StatusInternalServerError {
			slog.Error("Attendance claim failed", "operation", "claim", "session_id", req.SessionID, "student_id", studentID, "error", err)
			return utils.ErrorResponse(c, utils.ErrInternalServer.Code, status)
		}
		return utils.ErrorResponse(c, err.Error(), status)
	}

	return utils.SuccessResponse(c, fiber.Map{"record": rec.ToResponse()}, "Attendance marked successfully", fiber.StatusCreated)
}

// History lists the caller's own attendance
func (h *Handler) History(c *fiber.Ctx) error {
	identity := auth.GetIdentity(c)
	page, limit := utils.PageParams(c)

	courseID := c.Query("course")
	if courseID != "" {
		if _, err := uuid.Parse(courseID); err != nil {
			return utils.ErrorResponse(c, "invalid_course", fiber.StatusBadRequest)
		}
	}

	entries, total, err := h.service.History(c.UserContext(), identity.UserID, courseID, page, limit)
	if err != nil {
		slog.Error("Failed to load attendance history", "student_id", identity.UserID, "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer.Code, fiber.StatusInternalServerError)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"records":    entries,
		"pagination": utils.NewPagination(page, limit, total),
	}, "Attendance history retrieved")
}

// SessionAttendance lists who attended a session; owner or admin only
func (h *Handler) SessionAttendance(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusNotFound)
		}
		slog.Error("Failed to load session", "session_id", c.Params("id"), "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer.Code, fiber.StatusInternalServerError)
	}
	if !h.sessions.IsOwnerOrAdmin(auth.GetIdentity(c), sess) {
		return utils.ErrorResponse(c, utils.ErrForbidden.Code, fiber.StatusForbidden)
	}

	entries, err := h.service.SessionAttendance(c.UserContext(), sess.ID.String())
	if err != nil {
		slog.Error("Failed to list session attendance", "session_id", sess.ID, "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer.Code, fiber.StatusInternalServerError)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"session":    sess.ToResponse(h.sessions.Now()),
		"attendance": entries,
		"total":      len(entries),
	}, "Session attendance retrieved")
}

// Delete is the admin correction path
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusNotFound)
		}
		slog.Error("Failed to delete attendance record", "record_id", c.Params("id"), "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer.Code, fiber.StatusInternalServerError)
	}
	return utils.SuccessResponse(c, nil, "Attendance record deleted")
}
