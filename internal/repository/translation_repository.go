package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"polyglot-service/internal/models"
)

// TranslationRepository interface for translation data operations
type TranslationRepository interface {
	// User preference operations
	GetUserPreference(ctx context.Context, guildID, userID string) (*models.UserLanguagePreference, error)
	ListGuildPreferences(ctx context.Context, guildID string) (map[string]string, error)
	SaveUserPreference(ctx context.Context, pref *models.UserLanguagePreference) error
	DeleteUserPreference(ctx context.Context, guildID, userID string) error

	// Guild settings operations
	GetGuildSettings(ctx context.Context, guildID string) (*models.GuildSettings, error)
	SaveGuildSettings(ctx context.Context, settings *models.GuildSettings) error

	// Stats operations
	GetStats(ctx context.Context, guildID string) (*models.TranslationStats, error)
	UpdateStats(ctx context.Context, guildID string, cacheHit bool, characters int64) error

	// Broadcast audit operations
	SaveBroadcastRecord(ctx context.Context, record *models.BroadcastRecord) error
	RecentBroadcasts(ctx context.Context, guildID string, limit int) ([]models.BroadcastRecord, error)
}

// translationRepository implements TranslationRepository
type translationRepository struct {
	db *gorm.DB
}

// NewTranslationRepository creates a new translation repository
func NewTranslationRepository(db *gorm.DB) TranslationRepository {
	return &translationRepository{db: db}
}

// GetUserPreference returns the stored language preference for a guild
// member. A nil preference with a nil error means the member never set one.
func (r *translationRepository) GetUserPreference(ctx context.Context, guildID, userID string) (*models.UserLanguagePreference, error) {
	var pref models.UserLanguagePreference
	err := r.db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		First(&pref).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// ListGuildPreferences returns every stored preference in a guild as a
// user ID to language code map. Used by broadcast fan-out to avoid one
// query per recipient.
func (r *translationRepository) ListGuildPreferences(ctx context.Context, guildID string) (map[string]string, error) {
	var prefs []models.UserLanguagePreference
	err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Find(&prefs).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(prefs))
	for _, p := range prefs {
		out[p.UserID] = p.Code
	}
	return out, nil
}

// SaveUserPreference inserts or replaces a member's language preference
func (r *translationRepository) SaveUserPreference(ctx context.Context, pref *models.UserLanguagePreference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "updated_at"}),
		}).
		Create(pref).Error
}

// DeleteUserPreference removes a member's language preference so the
// resolution chain falls back to roles and guild default
func (r *translationRepository) DeleteUserPreference(ctx context.Context, guildID, userID string) error {
	return r.db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Delete(&models.UserLanguagePreference{}).Error
}

// GetGuildSettings returns settings for a guild, falling back to defaults
// for guilds that never stored any
func (r *translationRepository) GetGuildSettings(ctx context.Context, guildID string) (*models.GuildSettings, error) {
	var settings models.GuildSettings
	err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		First(&settings).Error
	if err == gorm.ErrRecordNotFound {
		return models.DefaultGuildSettings(guildID), nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveGuildSettings inserts or updates settings for a guild
func (r *translationRepository) SaveGuildSettings(ctx context.Context, settings *models.GuildSettings) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"default_lang", "alert_channel_id", "broadcast_enabled", "updated_at"}),
		}).
		Create(settings).Error
}

// GetStats returns translation statistics for a guild
func (r *translationRepository) GetStats(ctx context.Context, guildID string) (*models.TranslationStats, error) {
	var stats models.TranslationStats
	err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		stats = models.TranslationStats{
			GuildID: guildID,
		}
		if err := r.db.WithContext(ctx).Create(&stats).Error; err != nil {
			return nil, err
		}
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// UpdateStats updates translation statistics
func (r *translationRepository) UpdateStats(ctx context.Context, guildID string, cacheHit bool, characters int64) error {
	updates := map[string]interface{}{
		"total_requests":   gorm.Expr("total_requests + 1"),
		"total_characters": gorm.Expr("total_characters + ?", characters),
		"last_request_at":  time.Now(),
		"updated_at":       time.Now(),
	}

	if cacheHit {
		updates["cache_hits"] = gorm.Expr("cache_hits + 1")
	} else {
		updates["cache_misses"] = gorm.Expr("cache_misses + 1")
	}

	result := r.db.WithContext(ctx).
		Model(&models.TranslationStats{}).
		Where("guild_id = ?", guildID).
		Updates(updates)

	if result.RowsAffected == 0 {
		stats := models.TranslationStats{
			GuildID:         guildID,
			TotalRequests:   1,
			TotalCharacters: characters,
			LastRequestAt:   time.Now(),
		}
		if cacheHit {
			stats.CacheHits = 1
		} else {
			stats.CacheMisses = 1
		}
		return r.db.WithContext(ctx).Create(&stats).Error
	}

	return result.Error
}

// SaveBroadcastRecord persists the audit row for a finished fan-out
func (r *translationRepository) SaveBroadcastRecord(ctx context.Context, record *models.BroadcastRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// RecentBroadcasts returns the latest fan-out audit rows for a guild
func (r *translationRepository) RecentBroadcasts(ctx context.Context, guildID string, limit int) ([]models.BroadcastRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var records []models.BroadcastRecord
	err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
