package handler

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v3"

	"github.com/tubelens/tubelens-go/internal/middleware"
	"github.com/tubelens/tubelens-go/internal/service"
)

type ChannelHandler struct {
	cache *service.ChannelCacheReader
	redis *service.CacheService
}

func NewChannelHandler(cache *service.ChannelCacheReader, redis *service.CacheService) *ChannelHandler {
	return &ChannelHandler{cache: cache, redis: redis}
}

// Get handles GET /api/channels/:channelId — the cached channel row plus its
// most recent snapshot. Cache-aside: check Redis first, fall back to the
// channel cache, then populate Redis.
func (h *ChannelHandler) Get(c fiber.Ctx) error {
	channelID, errMsg := middleware.ValidateChannelID(c.Params("channelId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	if h.redis != nil {
		cached, err := h.redis.GetChannel(c.Context(), channelID)
		if err != nil {
			log.Printf("cache: channel get error: %v", err)
		} else if cached != nil {
			var resp service.ChannelView
			if err := json.Unmarshal(cached, &resp); err == nil {
				return c.JSON(resp)
			}
		}
	}

	resp, err := h.cache.Lookup(c.Context(), channelID)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to lookup channel")
	}
	if resp == nil {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Channel has not been synced")
	}

	if h.redis != nil {
		if err := h.redis.SetChannel(c.Context(), channelID, resp); err != nil {
			log.Printf("cache: channel set error: %v", err)
		}
	}

	return c.JSON(resp)
}
