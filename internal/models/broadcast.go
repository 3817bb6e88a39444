package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BroadcastRequest triggers an SOS fan-out to every member of a guild.
type BroadcastRequest struct {
	Text       string `json:"text" binding:"required"`
	GuildID    string `json:"guild_id" binding:"required"`
	SenderID   string `json:"sender_id" binding:"required"`
	ChannelID  string `json:"channel_id"` // Origin channel for the untranslated alert
	SourceLang string `json:"source_lang"`
	Origin     string `json:"origin"` // e.g. "slash_command", "reaction", "api"
}

// Recipient is one deliverable guild member as reported by the platform
// gateway. LanguageCodes is ordered; the first entry is the member's
// primary language role, if any.
type Recipient struct {
	ID            string   `json:"id"`
	DisplayName   string   `json:"display_name"`
	Bot           bool     `json:"bot"`
	CanReceiveDM  bool     `json:"can_receive_dm"`
	LanguageCodes []string `json:"language_codes"`
}

// BroadcastErrorDetail is one sampled per-recipient failure from a fan-out.
type BroadcastErrorDetail struct {
	RecipientID string `json:"recipient_id,omitempty"`
	Stage       string `json:"stage"` // "translate" or "deliver"
	Detail      string `json:"detail"`
}

// maxSampledErrors bounds the error sample carried on a report; counters
// stay exact regardless.
const maxSampledErrors = 10

// BroadcastReport summarizes one completed fan-out. Counters are final;
// Errors holds at most a small sample of per-recipient failures.
type BroadcastReport struct {
	GuildID             string                 `json:"guild_id"`
	Origin              string                 `json:"origin,omitempty"`
	Recipients          int                    `json:"recipients"`
	Sent                int                    `json:"sent"`
	DMFailed            int                    `json:"dm_failed"`
	TranslationFallback int                    `json:"translation_fallback"`
	Skipped             int                    `json:"skipped"`
	Groups              int                    `json:"groups"`
	AlertSent           bool                   `json:"alert_sent"`
	DurationMs          int64                  `json:"duration_ms"`
	Errors              []BroadcastErrorDetail `json:"errors,omitempty"`
}

// AddError appends one sampled failure, dropping it silently once the
// sample is full. Callers are responsible for locking.
func (r *BroadcastReport) AddError(recipientID, stage, detail string) {
	if len(r.Errors) >= maxSampledErrors {
		return
	}
	r.Errors = append(r.Errors, BroadcastErrorDetail{
		RecipientID: recipientID,
		Stage:       stage,
		Detail:      detail,
	})
}

// BroadcastRecord is the persisted audit row for one fan-out.
type BroadcastRecord struct {
	ID                  uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GuildID             string    `json:"guild_id" gorm:"type:varchar(32);index;not null"`
	SenderID            string    `json:"sender_id" gorm:"type:varchar(32)"`
	Origin              string    `json:"origin" gorm:"type:varchar(32)"`
	SourceLang          string    `json:"source_lang" gorm:"type:varchar(10)"`
	Recipients          int       `json:"recipients"`
	Sent                int       `json:"sent"`
	DMFailed            int       `json:"dm_failed"`
	TranslationFallback int       `json:"translation_fallback"`
	Skipped             int       `json:"skipped"`
	Groups              int       `json:"groups"`
	DurationMs          int64     `json:"duration_ms"`
	CreatedAt           time.Time `json:"created_at"`
}

// TableName returns the table name for BroadcastRecord
func (BroadcastRecord) TableName() string {
	return "broadcast_records"
}

// BeforeCreate hook for BroadcastRecord
func (r *BroadcastRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RecordFromReport builds the audit row for a finished fan-out.
func RecordFromReport(senderID, sourceLang string, report *BroadcastReport) *BroadcastRecord {
	return &BroadcastRecord{
		GuildID:             report.GuildID,
		SenderID:            senderID,
		Origin:              report.Origin,
		SourceLang:          sourceLang,
		Recipients:          report.Recipients,
		Sent:                report.Sent,
		DMFailed:            report.DMFailed,
		TranslationFallback: report.TranslationFallback,
		Skipped:             report.Skipped,
		Groups:              report.Groups,
		DurationMs:          report.DurationMs,
	}
}
