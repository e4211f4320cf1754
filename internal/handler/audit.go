package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5"

	"github.com/tubelens/tubelens-go/internal/middleware"
	"github.com/tubelens/tubelens-go/internal/model"
	"github.com/tubelens/tubelens-go/internal/service"
	"github.com/tubelens/tubelens-go/internal/youtube"
)

const defaultListLimit = 50

// runTimeout bounds a whole pipeline run. A stalled external call fails its
// stage rather than pinning the audit in running forever.
const runTimeout = 15 * time.Minute

// createAuditRequest is the POST /api/audits body.
type createAuditRequest struct {
	ChannelReference string              `json:"channelReference"`
	AuditType        string              `json:"auditType"`
	ForceRefresh     bool                `json:"forceRefresh"`
	PeerCategories   []string            `json:"peerCategories"`
	BrandContext     *model.BrandContext `json:"brandContext"`
}

// auditResponse is an audit plus its sections, the shape poll clients read.
type auditResponse struct {
	*model.Audit
	Sections []model.Section `json:"sections"`
}

type AuditHandler struct {
	pipeline *service.Pipeline
	store    service.AuditStore
	cache    *service.CacheService
}

func NewAuditHandler(pipeline *service.Pipeline, store service.AuditStore, cache *service.CacheService) *AuditHandler {
	return &AuditHandler{pipeline: pipeline, store: store, cache: cache}
}

// Create handles POST /api/audits. The channel reference is resolved
// synchronously so bad input is rejected before any audit record exists;
// the pipeline itself runs in the background and is observed by polling.
func (h *AuditHandler) Create(c fiber.Ctx) error {
	var req createAuditRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Request body must be valid JSON")
	}

	ref, errMsg := middleware.ValidateChannelReference(req.ChannelReference)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	auditType := model.AuditType(req.AuditType)
	if auditType == "" {
		auditType = model.AuditTypeProspect
	}
	if auditType != model.AuditTypeProspect && auditType != model.AuditTypeClientBaseline {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "auditType must be prospect or client_baseline")
	}

	categories, errMsg := middleware.ValidateCategories(req.PeerCategories)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	scope := model.AllPeers()
	if len(categories) > 0 {
		scope = model.ScopedPeers(categories)
	}

	cfg := model.AuditConfig{
		ForceRefresh: req.ForceRefresh,
		PeerScope:    scope,
		BrandContext: req.BrandContext,
	}

	audit, err := h.pipeline.CreateAudit(c.Context(), ref, auditType, cfg)
	if err != nil {
		if errors.Is(err, youtube.ErrChannelNotFound) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "CHANNEL_NOT_FOUND", "Channel reference could not be resolved")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create audit")
	}

	// Run mutates the audit it drives; the goroutine gets its own copy so
	// serializing the created state below cannot race the pipeline's writes.
	launched := *audit
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if err := h.pipeline.Run(ctx, &launched); err != nil {
			log.Printf("audit %s: %v", launched.ID, err)
			return
		}
		// Ingestion may have re-synced the channel row; drop the stale
		// cached lookup.
		if h.cache != nil {
			if err := h.cache.InvalidateChannel(ctx, launched.ChannelID); err != nil {
				log.Printf("cache: channel invalidate error: %v", err)
			}
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(audit)
}

// Get handles GET /api/audits/:auditId — the polling read. Cache-aside with
// a TTL shorter than the poll interval, so progress never looks frozen.
func (h *AuditHandler) Get(c fiber.Ctx) error {
	auditID, errMsg := middleware.ValidateAuditID(c.Params("auditId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	if h.cache != nil {
		cached, err := h.cache.GetAudit(c.Context(), auditID)
		if err != nil {
			log.Printf("cache: audit get error: %v", err)
		} else if cached != nil {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(cached)
		}
	}

	resp, err := h.loadAudit(c.Context(), auditID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Audit not found")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to lookup audit")
	}

	if h.cache != nil {
		if err := h.cache.SetAudit(c.Context(), auditID, resp); err != nil {
			log.Printf("cache: audit set error: %v", err)
		}
	}

	return c.JSON(resp)
}

// Sections handles GET /api/audits/:auditId/sections.
func (h *AuditHandler) Sections(c fiber.Ctx) error {
	auditID, errMsg := middleware.ValidateAuditID(c.Params("auditId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	sections, err := h.store.GetAuditSections(c.Context(), auditID)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to lookup sections")
	}
	if sections == nil {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Audit not found")
	}

	return c.JSON(fiber.Map{"auditId": auditID, "sections": sections})
}

// List handles GET /api/audits?limit=N.
func (h *AuditHandler) List(c fiber.Ctx) error {
	limit := fiber.Query[int](c, "limit", defaultListLimit)
	if limit < 1 || limit > 200 {
		limit = defaultListLimit
	}

	audits, err := h.store.ListAudits(c.Context(), limit)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list audits")
	}
	if audits == nil {
		audits = []model.Audit{}
	}

	return c.JSON(fiber.Map{"audits": audits})
}

// Delete handles DELETE /api/audits/:auditId.
func (h *AuditHandler) Delete(c fiber.Ctx) error {
	auditID, errMsg := middleware.ValidateAuditID(c.Params("auditId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	audit, err := h.store.GetAudit(c.Context(), auditID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Audit not found")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to lookup audit")
	}
	if audit.Status == model.AuditStatusRunning {
		return middleware.ErrorResponse(c, fiber.StatusConflict, "AUDIT_RUNNING", "A running audit cannot be deleted")
	}

	if err := h.store.DeleteAudit(c.Context(), auditID); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete audit")
	}

	if h.cache != nil {
		if err := h.cache.InvalidateAudit(c.Context(), auditID); err != nil {
			log.Printf("cache: audit invalidate error: %v", err)
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Export handles GET /api/audits/:auditId/export — the full report as a
// downloadable JSON document. Only terminal audits export; a running audit
// would produce a half-written report.
func (h *AuditHandler) Export(c fiber.Ctx) error {
	auditID, errMsg := middleware.ValidateAuditID(c.Params("auditId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	resp, err := h.loadAudit(c.Context(), auditID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Audit not found")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to lookup audit")
	}
	if !resp.IsTerminal() {
		return middleware.ErrorResponse(c, fiber.StatusConflict, "AUDIT_RUNNING", "Audit has not finished yet")
	}

	body, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render report")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="audit-%s.json"`, auditID))
	return c.Send(body)
}

func (h *AuditHandler) loadAudit(ctx context.Context, auditID string) (*auditResponse, error) {
	audit, err := h.store.GetAudit(ctx, auditID)
	if err != nil {
		return nil, err
	}
	sections, err := h.store.GetAuditSections(ctx, auditID)
	if err != nil {
		return nil, err
	}
	return &auditResponse{Audit: audit, Sections: sections}, nil
}
