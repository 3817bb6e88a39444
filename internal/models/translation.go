package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TranslateRequest represents a direct translation request from the API.
type TranslateRequest struct {
	Text   string `json:"text" binding:"required"`
	Target string `json:"target"` // Raw user input: code, name, alias, or flag emoji
	Source string `json:"source"` // Optional hint, auto-detect if empty
}

// TranslateForAuthorRequest asks for a translation addressed to a specific
// guild member, with the target resolved from their preference chain.
type TranslateForAuthorRequest struct {
	Text     string `json:"text" binding:"required"`
	AuthorID string `json:"author_id" binding:"required"`
	GuildID  string `json:"guild_id" binding:"required"`
	Target   string `json:"target"` // Optional explicit override
	Source   string `json:"source"`
}

// TranslateResponse represents the response for a single translation.
type TranslateResponse struct {
	OriginalText   string  `json:"original_text"`
	TranslatedText string  `json:"translated_text"`
	SourceLang     string  `json:"source_lang"`
	TargetLang     string  `json:"target_lang"`
	Provider       string  `json:"provider,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	Cached         bool    `json:"cached"`
	Reason         string  `json:"reason,omitempty"`
}

// ErrorResponse is the envelope for failed API calls.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Message   string   `json:"message,omitempty"`
	Attempted []string `json:"attempted,omitempty"`
}

// ResolveLanguageResponse is the result of a directory lookup probe.
type ResolveLanguageResponse struct {
	Input string `json:"input"`
	Code  string `json:"code"`
	Name  string `json:"name,omitempty"`
}

// UserLanguagePreference stores the explicitly chosen language of one user
// within one guild. Absence of a row means "no preference".
type UserLanguagePreference struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GuildID   string    `json:"guild_id" gorm:"type:varchar(32);not null;uniqueIndex:idx_user_lang_pref_guild_user"`
	UserID    string    `json:"user_id" gorm:"type:varchar(32);not null;uniqueIndex:idx_user_lang_pref_guild_user"`
	Code      string    `json:"code" gorm:"type:varchar(10);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for UserLanguagePreference
func (UserLanguagePreference) TableName() string {
	return "user_language_preferences"
}

// BeforeCreate hook for UserLanguagePreference
func (p *UserLanguagePreference) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// UserPreferenceRequest sets or replaces a member's preferred language.
// The value may be anything the directory can normalize.
type UserPreferenceRequest struct {
	Language string `json:"language" binding:"required,min=1,max=64"`
}

// GuildSettings holds per-guild translation configuration.
type GuildSettings struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GuildID          string    `json:"guild_id" gorm:"type:varchar(32);uniqueIndex;not null"`
	DefaultLang      string    `json:"default_lang" gorm:"type:varchar(10)"`
	AlertChannelID   string    `json:"alert_channel_id" gorm:"type:varchar(32)"`
	BroadcastEnabled bool      `json:"broadcast_enabled" gorm:"default:true"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BeforeCreate hook for GuildSettings
func (s *GuildSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// DefaultGuildSettings returns the settings applied to a guild that has
// never stored any.
func DefaultGuildSettings(guildID string) *GuildSettings {
	return &GuildSettings{
		GuildID:          guildID,
		BroadcastEnabled: true,
	}
}

// GuildSettingsRequest updates per-guild configuration. Nil pointers leave
// the current value untouched.
type GuildSettingsRequest struct {
	DefaultLang      *string `json:"default_lang,omitempty"`
	AlertChannelID   *string `json:"alert_channel_id,omitempty"`
	BroadcastEnabled *bool   `json:"broadcast_enabled,omitempty"`
}

// TranslationStats represents translation statistics per guild.
type TranslationStats struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GuildID         string    `json:"guild_id" gorm:"type:varchar(32);uniqueIndex;not null"`
	TotalRequests   int64     `json:"total_requests" gorm:"default:0"`
	CacheHits       int64     `json:"cache_hits" gorm:"default:0"`
	CacheMisses     int64     `json:"cache_misses" gorm:"default:0"`
	TotalCharacters int64     `json:"total_characters" gorm:"default:0"`
	LastRequestAt   time.Time `json:"last_request_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate hook for TranslationStats
func (s *TranslationStats) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
