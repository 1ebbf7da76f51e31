package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/redstone-squid/Redstone-Squid/internal/middleware"
	"github.com/redstone-squid/Redstone-Squid/internal/service"
)

type AdminHandler struct {
	records *service.RecordService
}

func NewAdminHandler(records *service.RecordService) *AdminHandler {
	return &AdminHandler{records: records}
}

// Rebuild handles POST /admin/rebuild — a full recomputation of the record
// index. The rebuild takes an exclusive lock on the record table, so the
// route sits behind a strict rate limit.
func (h *AdminHandler) Rebuild(c fiber.Ctx) error {
	slots, err := h.records.Rebuild(c.Context())
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Rebuild failed")
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"slots":  slots,
	})
}
