package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"polyglot-service/internal/health"
	"polyglot-service/internal/middleware"
	"polyglot-service/internal/models"
	"polyglot-service/internal/repository"
	"polyglot-service/internal/services"
)

// BroadcastHandler exposes the SOS fan-out over HTTP
type BroadcastHandler struct {
	broadcaster *services.Broadcaster
	repo        repository.TranslationRepository
	logger      *logrus.Entry
}

// NewBroadcastHandler creates a new broadcast handler
func NewBroadcastHandler(broadcaster *services.Broadcaster, repo repository.TranslationRepository, logger *logrus.Entry) *BroadcastHandler {
	return &BroadcastHandler{
		broadcaster: broadcaster,
		repo:        repo,
		logger:      logger,
	}
}

// Broadcast triggers one SOS fan-out and returns its report. The
// broadcaster applies its own overall deadline.
// POST /api/v1/broadcast
func (h *BroadcastHandler) Broadcast(c *gin.Context) {
	var req models.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	origin := req.Origin
	if origin == "" {
		origin = "api"
	}

	report, err := h.broadcaster.Broadcast(c.Request.Context(), services.BroadcastInput{
		GuildID:    req.GuildID,
		SenderID:   req.SenderID,
		ChannelID:  req.ChannelID,
		Origin:     origin,
		SourceText: req.Text,
		SourceLang: req.SourceLang,
	})
	if err != nil {
		health.RecordBroadcast(false)
		if errors.Is(err, services.ErrBroadcastsDisabled) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "BROADCASTS_DISABLED",
				"message": "This guild has disabled SOS broadcasts",
			})
			return
		}

		h.logger.WithFields(logrus.Fields{
			"guild_id":   req.GuildID,
			"request_id": middleware.GetRequestID(c),
		}).WithError(err).Error("Broadcast failed before fan-out")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "BROADCAST_FAILED",
			"message": err.Error(),
		})
		return
	}

	health.RecordBroadcast(true)
	health.RecordBroadcastDeliveries(report.Sent, report.DMFailed, report.TranslationFallback, report.Skipped)

	c.JSON(http.StatusOK, report)
}

// RecentBroadcasts lists the latest fan-out audit rows for a guild
// GET /api/v1/guilds/:guildID/broadcasts
func (h *BroadcastHandler) RecentBroadcasts(c *gin.Context) {
	guildID := c.Param("guildID")

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	records, err := h.repo.RecentBroadcasts(ctx, guildID, limit)
	if err != nil {
		h.logger.WithField("guild_id", guildID).WithError(err).Error("Failed to load broadcast records")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "BROADCASTS_UNAVAILABLE",
			"message": "Failed to load broadcast history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"broadcasts": records,
		"total":      len(records),
	})
}
