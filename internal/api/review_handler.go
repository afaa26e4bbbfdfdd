package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/leathercraft-class-submissions/internal/config"
	"github.com/leathercraft-class-submissions/internal/models"
	"github.com/leathercraft-class-submissions/internal/service"
	"github.com/leathercraft-class-submissions/internal/shopify"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ReviewHandler handles the operator review workflow
type ReviewHandler struct {
	services    *service.Services
	shopEnabled bool
	log         zerolog.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		services:    services,
		shopEnabled: cfg.Shopify.Enabled(),
		log:         log.With().Str("handler", "review").Logger(),
	}
}

// moderateRequest is the body of POST /admin/v1/review (JSON or form)
type moderateRequest struct {
	ID     string `json:"id" form:"id"`
	Intent string `json:"intent" form:"intent"`
}

// ListPending handles GET /admin/v1/review?source=store|shopify
// The metaobject listing is the default whenever Shopify is configured.
func (h *ReviewHandler) ListPending(c *gin.Context) {
	ctx := c.Request.Context()

	source := c.Query("source")
	if source == "" {
		source = "store"
		if h.shopEnabled {
			source = "shopify"
		}
	}

	switch source {
	case "shopify":
		entries, err := h.services.Moderation.ListPendingMetaobjects(ctx)
		if err != nil {
			h.moderationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "source": source, "count": len(entries), "entries": entries})
	case "store":
		subs, err := h.services.Moderation.ListPending(ctx, listLimit(c))
		if err != nil {
			h.moderationError(c, err)
			return
		}
		if subs == nil {
			subs = []*models.ClassSubmission{}
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "source": source, "count": len(subs), "submissions": subs})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "source must be one of: store, shopify"})
	}
}

// Moderate handles POST /admin/v1/review
func (h *ReviewHandler) Moderate(c *gin.Context) {
	ctx := c.Request.Context()

	var req moderateRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid request body"})
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Missing id"})
		return
	}

	var (
		res *models.ModerationResult
		err error
	)
	switch strings.ToLower(strings.TrimSpace(req.Intent)) {
	case "approve":
		res, err = h.services.Moderation.Approve(ctx, req.ID, false)
	case "approve_publish", "approve-and-publish":
		res, err = h.services.Moderation.Approve(ctx, req.ID, true)
	case "publish":
		res, err = h.services.Moderation.Publish(ctx, req.ID)
	case "reject":
		res, err = h.services.Moderation.Reject(ctx, req.ID)
	case "sync":
		res, err = h.services.Moderation.Sync(ctx, req.ID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Unknown intent"})
		return
	}
	if err != nil {
		h.moderationError(c, err)
		return
	}

	h.log.Info().
		Str("id", req.ID).
		Str("intent", req.Intent).
		Str("status", string(res.Status)).
		Bool("published", res.Published).
		Msg("Moderation action applied")

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": res.Message, "result": res})
}

// ListSubmissions handles GET /admin/v1/submissions?status=&limit=
func (h *ReviewHandler) ListSubmissions(c *gin.Context) {
	var status models.Status
	if raw := c.Query("status"); raw != "" {
		st, ok := models.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "status must be one of: pending, approved, rejected"})
			return
		}
		status = st
	}

	subs, err := h.services.Moderation.ListSubmissions(c.Request.Context(), status, listLimit(c))
	if err != nil {
		h.moderationError(c, err)
		return
	}
	if subs == nil {
		subs = []*models.ClassSubmission{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(subs), "submissions": subs})
}

// GetSubmission handles GET /admin/v1/submissions/:id
func (h *ReviewHandler) GetSubmission(c *gin.Context) {
	sub, err := h.services.Moderation.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.moderationError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// GetBatch handles GET /admin/v1/batches/:id
func (h *ReviewHandler) GetBatch(c *gin.Context) {
	batch, err := h.services.Moderation.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.moderationError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// moderationError maps service and Admin API failures to responses.
// User errors from the API are passed through verbatim. A partial approval
// also returns the state that was reached.
func (h *ReviewHandler) moderationError(c *gin.Context, err error) {
	var (
		userErrs shopify.UserErrors
		gqlErr   *shopify.GraphQLError
		partial  *service.PartialError
	)

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition):
		code = http.StatusConflict
	case errors.As(err, &userErrs):
		code = http.StatusBadRequest
	case errors.Is(err, shopify.ErrNotConfigured):
		code = http.StatusServiceUnavailable
	case errors.As(err, &gqlErr):
		code = http.StatusBadGateway
		h.log.Warn().Err(err).Msg("Admin API returned errors")
	default:
		h.log.Error().Err(err).Msg("Review action failed")
	}

	resp := gin.H{"ok": false, "error": err.Error()}
	if errors.As(err, &partial) {
		resp["result"] = partial.Result
	}
	c.JSON(code, resp)
}

// listLimit reads ?limit=, falling back to the default for missing or bad values
func listLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
