package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"polyglot-service/internal/clients"
	"polyglot-service/internal/languages"
	"polyglot-service/internal/models"
	"polyglot-service/internal/repository"
)

// PreferenceHandler manages member language preferences and guild settings
type PreferenceHandler struct {
	repo   repository.TranslationRepository
	dir    *languages.Directory
	logger *logrus.Entry
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(repo repository.TranslationRepository, dir *languages.Directory, logger *logrus.Entry) *PreferenceHandler {
	return &PreferenceHandler{
		repo:   repo,
		dir:    dir,
		logger: logger,
	}
}

// GetPreference returns a member's stored language preference. A null
// preference means the member never set one and resolution falls through
// to roles and the guild default.
// GET /api/v1/guilds/:guildID/members/:userID/preference
func (h *PreferenceHandler) GetPreference(c *gin.Context) {
	guildID := c.Param("guildID")
	userID := c.Param("userID")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	pref, err := h.repo.GetUserPreference(ctx, guildID, userID)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"guild_id": guildID,
			"user_id":  userID,
		}).WithError(err).Error("Failed to load preference")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "PREFERENCE_UNAVAILABLE",
			"message": "Failed to load language preference",
		})
		return
	}

	response := gin.H{
		"guild_id":   guildID,
		"user_id":    userID,
		"preference": nil,
	}
	if pref != nil {
		response["preference"] = gin.H{
			"code":       pref.Code,
			"name":       h.dir.DisplayName(pref.Code),
			"updated_at": pref.UpdatedAt,
		}
	}
	c.JSON(http.StatusOK, response)
}

// SetPreference stores a member's language preference. The value may be
// any directory alias; it is normalized before persisting.
// PUT /api/v1/guilds/:guildID/members/:userID/preference
func (h *PreferenceHandler) SetPreference(c *gin.Context) {
	guildID := c.Param("guildID")
	userID := c.Param("userID")

	var req models.UserPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	code := h.dir.Normalize(req.Language)
	if code == languages.CodeUnknown {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   clients.ReasonUnknownLanguage,
			Message: "\"" + req.Language + "\" is not a recognized language",
		})
		return
	}
	if code == languages.CodeAuto {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   clients.ReasonNeedsTarget,
			Message: "A preference must name a concrete language. Delete the preference to fall back to roles.",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	pref := &models.UserLanguagePreference{
		GuildID: guildID,
		UserID:  userID,
		Code:    code,
	}
	if err := h.repo.SaveUserPreference(ctx, pref); err != nil {
		h.logger.WithFields(logrus.Fields{
			"guild_id": guildID,
			"user_id":  userID,
			"code":     code,
		}).WithError(err).Error("Failed to save preference")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "PREFERENCE_SAVE_FAILED",
			"message": "Failed to save language preference",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"guild_id": guildID,
		"user_id":  userID,
		"code":     code,
		"name":     h.dir.DisplayName(code),
	})
}

// DeletePreference removes a member's preference so resolution falls back
// to roles and the guild default.
// DELETE /api/v1/guilds/:guildID/members/:userID/preference
func (h *PreferenceHandler) DeletePreference(c *gin.Context) {
	guildID := c.Param("guildID")
	userID := c.Param("userID")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.DeleteUserPreference(ctx, guildID, userID); err != nil {
		h.logger.WithFields(logrus.Fields{
			"guild_id": guildID,
			"user_id":  userID,
		}).WithError(err).Error("Failed to delete preference")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "PREFERENCE_DELETE_FAILED",
			"message": "Failed to delete language preference",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"guild_id": guildID,
		"user_id":  userID,
		"message":  "Preference removed; resolution falls back to roles and guild default",
	})
}

// GetGuildSettings returns per-guild translation configuration
// GET /api/v1/guilds/:guildID/settings
func (h *PreferenceHandler) GetGuildSettings(c *gin.Context) {
	guildID := c.Param("guildID")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	settings, err := h.repo.GetGuildSettings(ctx, guildID)
	if err != nil {
		h.logger.WithField("guild_id", guildID).WithError(err).Error("Failed to load guild settings")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "SETTINGS_UNAVAILABLE",
			"message": "Failed to load guild settings",
		})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateGuildSettings applies a partial update to guild configuration.
// Omitted fields keep their current values; default_lang accepts any
// directory alias, or an empty string to clear the default.
// PUT /api/v1/guilds/:guildID/settings
func (h *PreferenceHandler) UpdateGuildSettings(c *gin.Context) {
	guildID := c.Param("guildID")

	var req models.GuildSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	settings, err := h.repo.GetGuildSettings(ctx, guildID)
	if err != nil {
		h.logger.WithField("guild_id", guildID).WithError(err).Error("Failed to load guild settings")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "SETTINGS_UNAVAILABLE",
			"message": "Failed to load guild settings",
		})
		return
	}

	if req.DefaultLang != nil {
		raw := strings.TrimSpace(*req.DefaultLang)
		if raw == "" {
			settings.DefaultLang = ""
		} else {
			code := h.dir.Normalize(raw)
			if code == languages.CodeUnknown || code == languages.CodeAuto {
				c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
					Error:   clients.ReasonUnknownLanguage,
					Message: "\"" + raw + "\" is not a recognized language",
				})
				return
			}
			settings.DefaultLang = code
		}
	}
	if req.AlertChannelID != nil {
		settings.AlertChannelID = strings.TrimSpace(*req.AlertChannelID)
	}
	if req.BroadcastEnabled != nil {
		settings.BroadcastEnabled = *req.BroadcastEnabled
	}

	if err := h.repo.SaveGuildSettings(ctx, settings); err != nil {
		h.logger.WithField("guild_id", guildID).WithError(err).Error("Failed to save guild settings")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "SETTINGS_SAVE_FAILED",
			"message": "Failed to save guild settings",
		})
		return
	}

	c.JSON(http.StatusOK, settings)
}
