package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"polyglot-service/internal/clients"
	"polyglot-service/internal/health"
	"polyglot-service/internal/languages"
	"polyglot-service/internal/middleware"
	"polyglot-service/internal/models"
	"polyglot-service/internal/repository"
	"polyglot-service/internal/services"
)

// requestTimeout bounds one API translation end to end, across every tier
// the orchestrator may walk.
const requestTimeout = 30 * time.Second

// statsFallbackGuild buckets usage for callers that carry no guild scope.
const statsFallbackGuild = "global"

// TranslationHandler handles translation API requests
type TranslationHandler struct {
	repo         repository.TranslationRepository
	orchestrator *clients.TranslationOrchestrator
	resolver     *services.TargetResolver
	dir          *languages.Directory
	logger       *logrus.Entry
}

// NewTranslationHandler creates a new translation handler
func NewTranslationHandler(
	repo repository.TranslationRepository,
	orchestrator *clients.TranslationOrchestrator,
	resolver *services.TargetResolver,
	dir *languages.Directory,
	logger *logrus.Entry,
) *TranslationHandler {
	return &TranslationHandler{
		repo:         repo,
		orchestrator: orchestrator,
		resolver:     resolver,
		dir:          dir,
		logger:       logger,
	}
}

// Translate handles single translation requests
// POST /api/v1/translate
func (h *TranslationHandler) Translate(c *gin.Context) {
	var req models.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	target := h.dir.Normalize(req.Target)
	if target == languages.CodeAuto {
		h.rejectTarget(c, clients.ReasonNeedsTarget, "No target language was given. Pass a code, name, or flag emoji in \"target\".")
		return
	}
	if target == languages.CodeUnknown {
		h.rejectTarget(c, clients.ReasonUnknownLanguage, "The requested target language is not in the directory.")
		return
	}

	guildID, ok := middleware.GetGuildID(c)
	if !ok {
		guildID = statsFallbackGuild
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result := h.orchestrator.Translate(ctx, req.Text, h.sourceHint(req.Source), target)
	h.writeResult(c, guildID, req.Text, result)
}

// TranslateForAuthor translates for a specific guild member, resolving the
// target through their preference chain
// POST /api/v1/translate/author
func (h *TranslationHandler) TranslateForAuthor(c *gin.Context) {
	var req models.TranslateForAuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	target := h.resolver.Resolve(ctx, services.ResolveRequest{
		GuildID:  req.GuildID,
		UserID:   req.AuthorID,
		Explicit: req.Target,
	})
	if target == languages.CodeAuto {
		h.rejectTarget(c, clients.ReasonNeedsTarget, "No target language could be resolved for this member. Ask them to set a preference or pass \"target\".")
		return
	}
	if target == languages.CodeUnknown {
		h.rejectTarget(c, clients.ReasonUnknownLanguage, "The requested target language is not in the directory.")
		return
	}

	result := h.orchestrator.Translate(ctx, req.Text, h.sourceHint(req.Source), target)
	h.writeResult(c, req.GuildID, req.Text, result)
}

// GetLanguages returns the full language directory
// GET /api/v1/languages
func (h *TranslationHandler) GetLanguages(c *gin.Context) {
	entries := h.dir.Entries()
	c.JSON(http.StatusOK, gin.H{
		"languages": entries,
		"total":     len(entries),
	})
}

// ResolveLanguage probes the normalizer with arbitrary user input
// GET /api/v1/languages/resolve?q=
func (h *TranslationHandler) ResolveLanguage(c *gin.Context) {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": "query parameter \"q\" is required",
		})
		return
	}

	code := h.dir.Normalize(q)
	c.JSON(http.StatusOK, models.ResolveLanguageResponse{
		Input: q,
		Code:  code,
		Name:  h.dir.DisplayName(code),
	})
}

// GetStats returns per-guild usage statistics together with current
// provider counters
// GET /api/v1/guilds/:guildID/stats
func (h *TranslationHandler) GetStats(c *gin.Context) {
	guildID := c.Param("guildID")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	stats, err := h.repo.GetStats(ctx, guildID)
	if err != nil {
		h.logger.WithField("guild_id", guildID).WithError(err).Error("Failed to load stats")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "STATS_UNAVAILABLE",
			"message": "Failed to load guild statistics",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":     stats,
		"providers": h.orchestrator.GetProviderMetrics(),
	})
}

// sourceHint normalizes an optional source hint. Hints the directory
// cannot place degrade to auto-detection instead of failing the request.
func (h *TranslationHandler) sourceHint(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	code := h.dir.Normalize(source)
	if code == languages.CodeUnknown || code == languages.CodeAuto {
		return ""
	}
	return code
}

// rejectTarget writes the 422 envelope for targets that never reach the
// orchestrator.
func (h *TranslationHandler) rejectTarget(c *gin.Context, reason, message string) {
	health.RecordTranslation("", reason)
	c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
		Error:   reason,
		Message: message,
	})
}

// writeResult maps an orchestrator result onto the HTTP surface and
// records stats and metrics for the request.
func (h *TranslationHandler) writeResult(c *gin.Context, guildID, originalText string, result *clients.TranslationResult) {
	outcome := result.Meta.Reason
	if outcome == "" {
		outcome = "translated"
	}
	if result.Meta.CacheHit {
		outcome = "cached"
	}
	health.RecordTranslation(string(result.Provider), outcome)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.repo.UpdateStats(ctx, guildID, result.Meta.CacheHit, int64(len(originalText))); err != nil {
			h.logger.WithField("guild_id", guildID).WithError(err).Warn("Failed to update stats")
		}
	}()

	if result.Failed() {
		reason := result.Meta.Reason
		h.logger.WithFields(logrus.Fields{
			"guild_id":   guildID,
			"reason":     reason,
			"target":     result.TargetLang,
			"attempted":  result.Meta.Attempted,
			"request_id": middleware.GetRequestID(c),
		}).Warn("Translation request failed")

		c.JSON(statusForReason(reason), models.ErrorResponse{
			Error:     reason,
			Message:   messageForReason(reason, result.TargetLang, h.dir),
			Attempted: result.Meta.Attempted,
		})
		return
	}

	c.JSON(http.StatusOK, models.TranslateResponse{
		OriginalText:   originalText,
		TranslatedText: result.Text,
		SourceLang:     result.SourceLang,
		TargetLang:     result.TargetLang,
		Provider:       string(result.Provider),
		Confidence:     result.Confidence,
		Cached:         result.Meta.CacheHit,
		Reason:         result.Meta.Reason,
	})
}

func statusForReason(reason string) int {
	switch reason {
	case clients.ReasonNeedsTarget, clients.ReasonUnknownLanguage, clients.ReasonUnsupportedTarget:
		return http.StatusUnprocessableEntity
	case clients.ReasonAllProvidersFailed:
		return http.StatusBadGateway
	case clients.ReasonCancelled:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func messageForReason(reason, target string, dir *languages.Directory) string {
	switch reason {
	case clients.ReasonNeedsTarget:
		return "No target language was determined for this request."
	case clients.ReasonUnknownLanguage:
		return "The requested language is not in the directory."
	case clients.ReasonUnsupportedTarget:
		if name := dir.DisplayName(target); name != "" {
			return "No configured provider can translate into " + name + "."
		}
		return "No configured provider can translate into the requested language."
	case clients.ReasonAllProvidersFailed:
		return "Every provider tier failed. Try again shortly."
	case clients.ReasonCancelled:
		return "The request was cancelled before a provider could answer."
	}
	return "Translation failed."
}
