package utils

import (
	"math"

	"github.com/gofiber/fiber/v2"
)

// SuccessResponse sends a success JSON response
func SuccessResponse(c *fiber.Ctx, data any, message string, code ...int) error {
	statusCode := fiber.StatusOK
	if len(code) > 0 {
		statusCode = code[0]
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"success": true,
		"data":    data,
		"message": message,
	})
}

// ErrorResponse sends an error JSON response with a failure flag and message.
// If an explicit HTTP status code is provided it is used; otherwise 500 Internal Server Error is sent.
// The JSON body contains the fields "success": false and "error": <message>.
func ErrorResponse(c *fiber.Ctx, message string, code ...int) error {
	statusCode := fiber.StatusInternalServerError
	if len(code) > 0 {
		statusCode = code[0]
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// APIErrorResponse sends a structured APIError. An explicit status overrides
// apiErr.Status on a copy; shared error values are never mutated.
func APIErrorResponse(c *fiber.Ctx, apiErr *APIError, code ...int) error {
	out := *apiErr
	if len(code) > 0 {
		out.Status = code[0]
	}
	if out.Status == 0 {
		out.Status = fiber.StatusInternalServerError
	}

	return c.Status(out.Status).JSON(fiber.Map{
		"success": false,
		"error":   out,
	})
}

// Pagination describes one page of a listing
type Pagination struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	// MaxPage keeps (page-1)*limit inside an int32 row offset
	MaxPage = math.MaxInt32 / MaxPageLimit
)

// PageParams reads ?page and ?limit, clamping them to sane bounds
func PageParams(c *fiber.Ctx) (page, limit int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit = c.QueryInt("limit", DefaultPageLimit)
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// NewPagination builds the pagination block for a result set of total rows
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{Current: page, Pages: pages, Total: total, Limit: limit}
}

// Offset converts a 1-based page into a row offset
func Offset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if page > MaxPage {
		page = MaxPage
	}
	return (page - 1) * limit
}
