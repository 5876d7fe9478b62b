package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Validate is the shared validator instance; it caches struct metadata
var Validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError is one failed rule on a request field
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidateStruct runs the validate tags of v
func ValidateStruct(v any) error {
	return Validate.Struct(v)
}

// FieldErrors flattens validator errors into a JSON-friendly list
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		// drop the top-level struct name: "ClaimRequest.QRData.Secret" -> "QRData.Secret"
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, FieldError{Field: field, Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// ValidationErrorResponse sends 400 validation_failed with per-field details
func ValidationErrorResponse(c *fiber.Ctx, err error) error {
	return c.Status(ErrValidation.Status).JSON(fiber.Map{
		"success": false,
		"error":   ErrValidation.Code,
		"details": FieldErrors(err),
	})
}

// ParseAndValidate decodes the JSON body into out and validates it.
// It writes the error response itself and reports whether the caller may continue.
func ParseAndValidate(c *fiber.Ctx, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, ErrorResponse(c, ErrBadRequest.Code, fiber.StatusBadRequest)
	}
	if err := ValidateStruct(out); err != nil {
		return false, ValidationErrorResponse(c, err)
	}
	return true, nil
}
