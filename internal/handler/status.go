package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/mgsgtaprohd-gif/nb-plowed/internal/middleware"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/model"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/service"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/streets"
)

type StatusHandler struct {
	svc     *service.StatusService
	catalog *streets.Catalog
}

// NewStatusHandler creates the status handler. catalog may be nil, which
// disables the street listing.
func NewStatusHandler(svc *service.StatusService, catalog *streets.Catalog) *StatusHandler {
	return &StatusHandler{svc: svc, catalog: catalog}
}

// GetStatus handles GET /api/status
func (h *StatusHandler) GetStatus(c fiber.Ctx) error {
	byStreet, err := h.compute(c)
	if err != nil {
		middleware.Logger.Error().Err(err).Msg("status aggregation failed")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load status.")
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(model.StatusResponse{ByStreetID: byStreet})
}

// ListStreets handles GET /api/streets?q=
func (h *StatusHandler) ListStreets(c fiber.Ctx) error {
	if h.catalog == nil || h.catalog.Len() == 0 {
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "Street catalog not loaded.")
	}

	byStreet, err := h.compute(c)
	if err != nil {
		middleware.Logger.Error().Err(err).Msg("status aggregation failed")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load status.")
	}

	matches := h.catalog.Search(c.Query("q"))
	entries := make([]model.StreetEntry, 0, len(matches))
	for _, s := range matches {
		status, ok := byStreet[s.ID]
		if !ok {
			status = service.StatusFromTally(model.StreetTally{StreetID: s.ID})
		}
		entries = append(entries, model.StreetEntry{
			StreetID:     s.ID,
			Name:         s.Name,
			StreetStatus: status,
		})
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(model.StreetsResponse{Streets: entries})
}

func (h *StatusHandler) compute(c fiber.Ctx) (map[string]model.StreetStatus, error) {
	start := time.Now()
	byStreet, err := h.svc.Compute(c.Context())
	Metrics.StatusDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	Metrics.StatusStreets.Set(float64(len(byStreet)))
	return byStreet, nil
}
