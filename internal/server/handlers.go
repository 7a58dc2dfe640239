package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fixturefox/fixturefox/internal/engine"
	"github.com/fixturefox/fixturefox/internal/models"
	"github.com/fixturefox/fixturefox/internal/services"
)

// SourceHandler handles source management endpoints
type SourceHandler struct {
	container *services.Container
}

// NewSourceHandler creates a new source handler
func NewSourceHandler(container *services.Container) *SourceHandler {
	return &SourceHandler{container: container}
}

// ListSources lists configured sources
func (h *SourceHandler) ListSources(c *gin.Context) {
	enabledOnly := c.Query("enabled") == "true"

	sourceList, err := h.container.SourceRepository().List(c.Request.Context(), enabledOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sourceList})
}

// CreateSource creates a new source
func (h *SourceHandler) CreateSource(c *gin.Context) {
	var source models.Source
	if err := c.ShouldBindJSON(&source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.container.SourceRepository().Create(c.Request.Context(), &source); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, source)
}

// GetSource gets a specific source
func (h *SourceHandler) GetSource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	source, err := h.container.SourceRepository().GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, source)
}

// UpdateSource updates a source configuration
func (h *SourceHandler) UpdateSource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var source models.Source
	if err := c.ShouldBindJSON(&source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	source.ID = id

	if err := h.container.SourceRepository().Update(c.Request.Context(), &source); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, source)
}

// DeleteSource removes a source
func (h *SourceHandler) DeleteSource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.container.SourceRepository().Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetHealthSummaries reports backoff and throttle state for every source
func (h *SourceHandler) GetHealthSummaries(c *gin.Context) {
	summaries, err := h.container.Engine().HealthSummaries(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": summaries})
}

// GetSourceHealth reports the raw health record of one source
func (h *SourceHandler) GetSourceHealth(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	health := h.container.Tracker().Health(id)
	c.JSON(http.StatusOK, health)
}

// ProfileHandler handles quality profile and format rule endpoints
type ProfileHandler struct {
	container *services.Container
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(container *services.Container) *ProfileHandler {
	return &ProfileHandler{container: container}
}

// ListProfiles lists quality profiles
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	profileList, err := h.container.ProfileRepository().ListProfiles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profileList})
}

// GetProfile gets a specific quality profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	profile, err := h.container.ProfileRepository().GetProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SaveProfile creates or updates a quality profile. Validation happens at
// save time so malformed definitions never reach evaluation.
func (h *ProfileHandler) SaveProfile(c *gin.Context) {
	var profile models.QualityProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.container.ProfileRepository().SaveProfile(c.Request.Context(), &profile); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListRules lists format rules
func (h *ProfileHandler) ListRules(c *gin.Context) {
	rules, err := h.container.ProfileRepository().ListRules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// SaveRule creates or updates a format rule. Patterns compile at save time;
// a pattern that does not compile is rejected here.
func (h *ProfileHandler) SaveRule(c *gin.Context) {
	var rule models.FormatRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.container.ProfileRepository().SaveRule(c.Request.Context(), &rule); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// ReleaseHandler handles release evaluation and the rejection ledger
type ReleaseHandler struct {
	container *services.Container
}

// NewReleaseHandler creates a new release handler
func NewReleaseHandler(container *services.Container) *ReleaseHandler {
	return &ReleaseHandler{container: container}
}

type evaluateFeedRequest struct {
	ProfileID int64              `json:"profile_id" binding:"required"`
	Items     []*engine.FeedItem `json:"items" binding:"required"`
}

// EvaluateFeed runs a batch of feed items through the decision flow
func (h *ReleaseHandler) EvaluateFeed(c *gin.Context) {
	var req evaluateFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	profile, err := h.container.ProfileRepository().GetProfile(ctx, req.ProfileID)
	if err != nil {
		respondError(c, err)
		return
	}
	rules, err := h.container.ProfileRepository().ListRules(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	evaluations, approved, err := h.container.Engine().ProcessFeed(ctx, req.Items, profile, rules, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"evaluations": evaluations,
		"approved":    approved,
	})
}

// LookupCached returns live cached releases for a search key
func (h *ReleaseHandler) LookupCached(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}

	key := models.ReleaseSearchKey{
		Sport: c.Query("sport"),
		Year:  year,
		Round: c.Query("round"),
	}

	entries, err := h.container.Engine().CacheLookup(c.Request.Context(), key, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"releases": entries})
}

type blocklistRequest struct {
	GUID        string  `json:"guid" binding:"required"`
	SourceID    int64   `json:"source_id" binding:"required"`
	ContentHash *string `json:"content_hash,omitempty"`
	Reason      string  `json:"reason" binding:"required"`
	Message     string  `json:"message"`
}

// AddToBlocklist appends a never-re-approve record for a release
func (h *ReleaseHandler) AddToBlocklist(c *gin.Context) {
	var req blocklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidate := &models.ReleaseCandidate{
		GUID:        req.GUID,
		SourceID:    req.SourceID,
		ContentHash: req.ContentHash,
	}

	if err := h.container.Engine().Blocklist(c.Request.Context(), candidate, req.Reason, req.Message); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusCreated)
}

// ImportHandler handles the import queue endpoints
type ImportHandler struct {
	container *services.Container
}

// NewImportHandler creates a new import handler
func NewImportHandler(container *services.Container) *ImportHandler {
	return &ImportHandler{container: container}
}

// MatchImport matches a completed download file against the library
func (h *ImportHandler) MatchImport(c *gin.Context) {
	var file models.ImportCandidate
	if err := c.ShouldBindJSON(&file); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := h.container.Engine().MatchImport(c.Request.Context(), &file, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, decision)
}

// ListPending lists imports awaiting resolution
func (h *ImportHandler) ListPending(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	pending, err := h.container.Engine().PendingImports(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imports": pending})
}

// ClaimImport atomically claims a pending import. Of concurrent claims on
// one id exactly one succeeds; the rest get a conflict.
func (h *ImportHandler) ClaimImport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	pending, err := h.container.Engine().ClaimImport(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

// CompleteImport finishes a claimed import
func (h *ImportHandler) CompleteImport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.container.Engine().CompleteImport(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RejectImport abandons a claimed import
func (h *ImportHandler) RejectImport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.container.Engine().RejectImport(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseID parses the :id path parameter, writing a 400 on failure
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// respondError maps domain errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrSourceNotFound),
		errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrProfileNotFound),
		errors.Is(err, models.ErrRuleNotFound),
		errors.Is(err, models.ErrImportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrImportAlreadyClaimed),
		errors.Is(err, models.ErrImportStateTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidConfiguration),
		errors.Is(err, models.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
