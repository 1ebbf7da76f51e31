package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
)

// Field limits matching database schema constraints.
const (
	MaxTagNameLen = 64 // types.name / restrictions.name
	MaxTagListLen = 16 // tag names accepted in one query
	MaxDimension  = 1024
)

// tagNameRe matches tag names as stored: letters, digits, spaces, dashes.
var tagNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _-]*$`)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateOrientation normalizes and checks a door orientation value.
func ValidateOrientation(raw string) (string, string) {
	o := strings.TrimSpace(raw)
	if o == "" {
		return "", "orientation is required"
	}
	switch strings.ToLower(o) {
	case "door":
		return model.OrientationDoor, ""
	case "trapdoor":
		return model.OrientationTrapdoor, ""
	case "skydoor":
		return model.OrientationSkydoor, ""
	}
	return "", "orientation must be Door, Trapdoor or Skydoor"
}

// ValidateDimension checks a door dimension query value.
func ValidateDimension(n int, field string) string {
	if n < 1 {
		return field + " must be a positive integer"
	}
	if n > MaxDimension {
		return field + " is out of range"
	}
	return ""
}

// ValidateTagNames parses a comma-separated tag name list, trimming parts
// and dropping empties. Names are checked against the stored charset; case
// normalization is left to the vocabulary's alias resolution.
func ValidateTagNames(raw string) ([]string, string) {
	if strings.TrimSpace(raw) == "" {
		return nil, ""
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(p) > MaxTagNameLen {
			return nil, "tag name must be at most 64 characters"
		}
		if !tagNameRe.MatchString(p) {
			return nil, "tag name contains invalid characters"
		}
		names = append(names, p)
	}
	if len(names) > MaxTagListLen {
		return nil, "too many tag names in one query"
	}
	return names, ""
}
