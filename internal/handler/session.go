package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/redstone-squid/Redstone-Squid/internal/middleware"
	"github.com/redstone-squid/Redstone-Squid/internal/repository"
	"github.com/redstone-squid/Redstone-Squid/internal/service"
)

type SessionHandler struct {
	votes *service.VoteService
}

func NewSessionHandler(votes *service.VoteService) *SessionHandler {
	return &SessionHandler{votes: votes}
}

// Get handles GET /api/sessions/:sessionId — a read-only view of a vote
// session with its current tally and the result the tally implies.
func (h *SessionHandler) Get(c fiber.Ctx) error {
	sessionID, err := strconv.ParseInt(c.Params("sessionId"), 10, 64)
	if err != nil || sessionID <= 0 {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD",
			"Session id must be a positive integer")
	}

	session, err := h.votes.Session(c.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Vote session not found")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to load vote session")
	}

	net, recommendation, err := h.votes.Tally(c.Context(), sessionID)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to tally vote session")
	}

	return c.JSON(fiber.Map{
		"session":        session,
		"net_weight":     net,
		"recommendation": recommendation,
	})
}
