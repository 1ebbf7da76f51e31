package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/redstone-squid/Redstone-Squid/internal/middleware"
	"github.com/redstone-squid/Redstone-Squid/internal/model"
	"github.com/redstone-squid/Redstone-Squid/internal/service"
)

type RecordHandler struct {
	records *service.RecordService
	vocab   *service.VocabService
}

func NewRecordHandler(records *service.RecordService, vocab *service.VocabService) *RecordHandler {
	return &RecordHandler{records: records, vocab: vocab}
}

// Get handles GET /api/records — a point lookup of one record slot.
// Query: orientation, width, height, depth (default 1), types and
// restrictions as comma-separated names (aliases accepted).
func (h *RecordHandler) Get(c fiber.Ctx) error {
	orientation, errMsg := middleware.ValidateOrientation(fiber.Query[string](c, "orientation"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	width := fiber.Query[int](c, "width")
	height := fiber.Query[int](c, "height")
	depth := fiber.Query[int](c, "depth", 1)
	for _, dim := range []struct {
		n     int
		field string
	}{{width, "width"}, {height, "height"}, {depth, "depth"}} {
		if errMsg := middleware.ValidateDimension(dim.n, dim.field); errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
		}
	}

	typeNames, errMsg := middleware.ValidateTagNames(fiber.Query[string](c, "types"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	restrictionNames, errMsg := middleware.ValidateTagNames(fiber.Query[string](c, "restrictions"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	typeIDs, err := h.vocab.ResolveTypes(typeNames)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "UNKNOWN_TYPE", err.Error())
	}
	restrictionIDs, err := h.vocab.ResolveRestrictions(restrictionNames)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "UNKNOWN_RESTRICTION", err.Error())
	}

	key := model.RecordKey{
		Orientation:       orientation,
		DoorWidth:         width,
		DoorHeight:        height,
		DoorDepth:         depth,
		TypeIDs:           typeIDs,
		RestrictionSubset: restrictionIDs,
	}

	slot, err := h.records.Lookup(c.Context(), key)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to lookup record")
	}
	if slot == nil {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "No record holder for this category")
	}

	return c.JSON(slot)
}
