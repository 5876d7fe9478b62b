package course

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/auth"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/user"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/utils"
)

type Handler struct {
	service Service
}

func NewHandler(s Service) *Handler {
	return &Handler{service: s}
}

// Create returns the caller's course with the given code, creating it on first use
func (h *Handler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if ok, err := utils.ParseAndValidate(c, &req); !ok {
		return err
	}

	teacherID, err := uuid.Parse(auth.GetIdentity(c).UserID)
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized.Code, fiber.StatusUnauthorized)
	}

	course, created, err := h.service.GetOrCreate(c.UserContext(), teacherID, req)
	if err != nil {
		slog.Error("Failed to create course", "teacher_id", teacherID, "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer.Code, fiber.StatusInternalServerError)
	}

	if created {
		return utils.SuccessResponse(c, fiber.Map{"course": course}, "Course created", fiber.StatusCreated)
	}
	return utils.SuccessResponse(c, fiber.Map{"course": course}, "Course already exists")
}

// List shows teachers their own courses and everyone else all courses
func (h *Handler) List(c *fiber.Ctx) error {
	identity := auth.GetIdentity(c)

	var (
		courses []Course
		err     error
	)
	if identity.Role == user.RoleTeacher {
		courses, err = h.service.ListForTeacher(c.UserContext(), identity.UserID)
	} else {
		courses, err = h.service.ListAll(c.UserContext())
	}
	if err != nil {
		slog.Error("Failed to list courses", "user_id", identity.UserID, "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer.Code, fiber.StatusInternalServerError)
	}

	return utils.SuccessResponse(c, fiber.Map{"courses": courses}, "Courses retrieved")
}
