package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/mgsgtaprohd-gif/nb-plowed/internal/middleware"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/model"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/service"
)

const invalidPayloadMsg = "Invalid payload."

type VoteHandler struct {
	svc          *service.VoteService
	proxyHeaders []string
}

// NewVoteHandler creates the vote handler. proxyHeaders lists the trusted
// headers carrying the client address, in priority order.
func NewVoteHandler(svc *service.VoteService, proxyHeaders []string) *VoteHandler {
	return &VoteHandler{svc: svc, proxyHeaders: proxyHeaders}
}

// Submit handles POST /api/vote
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		Metrics.VotesRejected.WithLabelValues("invalid").Inc()
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, invalidPayloadMsg)
	}

	address := middleware.ClientAddress(c, h.proxyHeaders)

	err := h.svc.Submit(c.Context(), string(req.StreetID), req.Vote, address)
	if err == nil {
		Metrics.VotesTotal.WithLabelValues(req.Vote).Inc()
		return c.JSON(model.VoteResponse{OK: true})
	}

	var rl *service.RateLimitError
	switch {
	case errors.Is(err, service.ErrInvalidPayload):
		Metrics.VotesRejected.WithLabelValues("invalid").Inc()
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, invalidPayloadMsg)
	case errors.As(err, &rl):
		Metrics.VotesRejected.WithLabelValues(rl.Reason).Inc()
		if rl.RetryAfter > 0 {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(rl.RetryAfter.Seconds())))
		}
		return middleware.ErrorResponse(c, fiber.StatusTooManyRequests, rl.Error())
	default:
		Metrics.VotesRejected.WithLabelValues("store_unavailable").Inc()
		middleware.Logger.Error().Err(err).Msg("vote submission failed")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record vote.")
	}
}
