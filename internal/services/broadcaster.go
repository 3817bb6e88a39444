package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"polyglot-service/internal/clients"
	"polyglot-service/internal/config"
	"polyglot-service/internal/languages"
	"polyglot-service/internal/models"
	"polyglot-service/internal/repository"
)

// ErrBroadcastsDisabled is returned when a guild has switched fan-out off.
var ErrBroadcastsDisabled = errors.New("broadcasts are disabled for this guild")

// Translator is the slice of the orchestrator the broadcaster consumes.
type Translator interface {
	Translate(ctx context.Context, text, sourceHint, targetLang string) *clients.TranslationResult
}

// RecipientSource enumerates the deliverable members of a guild.
// Implemented by PlatformClient.
type RecipientSource interface {
	ListRecipients(ctx context.Context, guildID string) ([]models.Recipient, error)
}

// Messenger delivers messages through the platform gateway.
// Implemented by PlatformClient.
type Messenger interface {
	SendDirectMessage(ctx context.Context, userID, content string) error
	SendChannelMessage(ctx context.Context, channelID, content string) error
}

// BroadcastInput describes one SOS fan-out trigger.
type BroadcastInput struct {
	GuildID    string
	SenderID   string
	ChannelID  string // Origin channel for the untranslated alert
	Origin     string // Audit label: "slash_command", "reaction", "api", ...
	SourceText string
	SourceLang string // Optional hint; detected from script when empty
}

// Broadcaster fans one source message out to every deliverable guild
// member, translated per recipient language, with partial-failure
// tolerance. Groups sharing a target are translated once.
type Broadcaster struct {
	translator Translator
	resolver   *TargetResolver
	recipients RecipientSource
	messenger  Messenger
	repo       repository.TranslationRepository
	dir        *languages.Directory
	logger     *logrus.Entry

	groupConcurrency int
	dmConcurrency    int
	timeout          time.Duration

	// Platform-wide DM budget shared across all groups of all broadcasts.
	dmLimiter *rate.Limiter
}

// NewBroadcaster creates a broadcaster. Zero or negative config values
// fall back to the documented defaults.
func NewBroadcaster(translator Translator, resolver *TargetResolver, recipients RecipientSource, messenger Messenger, repo repository.TranslationRepository, dir *languages.Directory, cfg config.BroadcastConfig, logger *logrus.Entry) *Broadcaster {
	if cfg.GroupConcurrency <= 0 {
		cfg.GroupConcurrency = 10
	}
	if cfg.DMConcurrency <= 0 {
		cfg.DMConcurrency = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DMRatePerSecond <= 0 {
		cfg.DMRatePerSecond = 5
	}
	burst := int(cfg.DMRatePerSecond)
	if burst < 1 {
		burst = 1
	}

	return &Broadcaster{
		translator:       translator,
		resolver:         resolver,
		recipients:       recipients,
		messenger:        messenger,
		repo:             repo,
		dir:              dir,
		logger:           logger,
		groupConcurrency: cfg.GroupConcurrency,
		dmConcurrency:    cfg.DMConcurrency,
		timeout:          cfg.Timeout,
		dmLimiter:        rate.NewLimiter(rate.Limit(cfg.DMRatePerSecond), burst),
	}
}

// Broadcast runs one full fan-out and always returns a report unless the
// trigger itself is invalid, the guild disabled broadcasts, or the roster
// cannot be enumerated. Per-recipient failures never abort siblings; on
// deadline expiry in-flight deliveries fail but completed ones stand.
func (b *Broadcaster) Broadcast(ctx context.Context, input BroadcastInput) (*models.BroadcastReport, error) {
	if strings.TrimSpace(input.SourceText) == "" {
		return nil, fmt.Errorf("broadcast text is empty")
	}
	if input.GuildID == "" {
		return nil, fmt.Errorf("broadcast guild ID is empty")
	}

	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	settings, err := b.repo.GetGuildSettings(ctx, input.GuildID)
	if err != nil {
		b.logger.WithField("guild_id", input.GuildID).WithError(err).Warn("Guild settings lookup failed, assuming defaults")
		settings = models.DefaultGuildSettings(input.GuildID)
	}
	if !settings.BroadcastEnabled {
		return nil, ErrBroadcastsDisabled
	}

	report := &models.BroadcastReport{
		GuildID: input.GuildID,
		Origin:  input.Origin,
	}

	// Alert the origin channel before any DM goes out so observers see
	// the trigger promptly. Alert failure never blocks the fan-out.
	report.AlertSent = b.emitAlert(ctx, input, settings)

	roster, err := b.recipients.ListRecipients(ctx, input.GuildID)
	if err != nil {
		return nil, fmt.Errorf("enumerate recipients: %w", err)
	}

	sourceLang := b.declaredSource(input)

	// Bots and the sender are dropped silently; members with DMs closed
	// are known-undeliverable and counted as failed upfront.
	deliverable := make([]models.Recipient, 0, len(roster))
	for _, rec := range roster {
		if rec.Bot || rec.ID == input.SenderID {
			continue
		}
		report.Recipients++
		if !rec.CanReceiveDM {
			report.DMFailed++
			report.AddError(rec.ID, "deliver", "dms_disabled")
			continue
		}
		deliverable = append(deliverable, rec)
	}

	targets := b.resolver.ResolveAll(ctx, input.GuildID, deliverable)
	groups := make(map[string][]models.Recipient)
	for _, rec := range deliverable {
		tgt := targets[rec.ID]
		if tgt == languages.CodeAuto || tgt == languages.CodeUnknown {
			report.Skipped++
			continue
		}
		groups[tgt] = append(groups[tgt], rec)
	}
	report.Groups = len(groups)

	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, b.groupConcurrency)

	for tgt, members := range groups {
		wg.Add(1)
		go func(tgt string, members []models.Recipient) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			text, fellBack := b.groupText(ctx, input.SourceText, sourceLang, tgt)
			if fellBack {
				mu.Lock()
				report.TranslationFallback += len(members)
				report.AddError("", "translate", fmt.Sprintf("group %s fell back to source text", tgt))
				mu.Unlock()
			}

			b.deliverGroup(ctx, members, text, report, &mu)
		}(tgt, members)
	}
	wg.Wait()

	report.DurationMs = time.Since(started).Milliseconds()
	b.persistRecord(input, sourceLang, report)

	b.logger.WithFields(logrus.Fields{
		"guild_id":             input.GuildID,
		"origin":               input.Origin,
		"recipients":           report.Recipients,
		"sent":                 report.Sent,
		"dm_failed":            report.DMFailed,
		"translation_fallback": report.TranslationFallback,
		"skipped":              report.Skipped,
		"groups":               report.Groups,
		"duration_ms":          report.DurationMs,
	}).Info("Broadcast completed")

	return report, nil
}

// groupText returns the text to deliver for one target group and whether
// it fell back to the source text because translation failed. A target
// matching the source language uses the source text without any provider
// call.
func (b *Broadcaster) groupText(ctx context.Context, text, sourceLang, tgt string) (string, bool) {
	if tgt == sourceLang {
		return text, false
	}

	result := b.translator.Translate(ctx, text, sourceLang, tgt)
	if result.Failed() || result.Text == "" {
		b.logger.WithFields(logrus.Fields{
			"target": tgt,
			"reason": result.Meta.Reason,
		}).Warn("Group translation failed, delivering source text")
		return text, true
	}
	return result.Text, false
}

func (b *Broadcaster) deliverGroup(ctx context.Context, members []models.Recipient, text string, report *models.BroadcastReport, mu *sync.Mutex) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, b.dmConcurrency)

	for _, rec := range members {
		wg.Add(1)
		go func(rec models.Recipient) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := b.dmLimiter.Wait(ctx); err != nil {
				mu.Lock()
				report.DMFailed++
				report.AddError(rec.ID, "deliver", "deadline exceeded before send")
				mu.Unlock()
				return
			}

			if err := b.messenger.SendDirectMessage(ctx, rec.ID, text); err != nil {
				b.logger.WithField("recipient_id", rec.ID).WithError(err).Warn("DM delivery failed")
				mu.Lock()
				report.DMFailed++
				report.AddError(rec.ID, "deliver", err.Error())
				mu.Unlock()
				return
			}

			mu.Lock()
			report.Sent++
			mu.Unlock()
		}(rec)
	}
	wg.Wait()
}

func (b *Broadcaster) emitAlert(ctx context.Context, input BroadcastInput, settings *models.GuildSettings) bool {
	channelID := input.ChannelID
	if channelID == "" {
		channelID = settings.AlertChannelID
	}
	if channelID == "" {
		return false
	}

	alert := "🚨 " + input.SourceText
	if input.Origin != "" {
		alert = fmt.Sprintf("🚨 [%s] %s", input.Origin, input.SourceText)
	}

	if err := b.messenger.SendChannelMessage(ctx, channelID, alert); err != nil {
		b.logger.WithFields(logrus.Fields{
			"guild_id":   input.GuildID,
			"channel_id": channelID,
		}).WithError(err).Warn("Channel alert failed, continuing fan-out")
		return false
	}
	return true
}

// declaredSource normalizes the caller's source hint, falling back to the
// script heuristic so the source-equals-target shortcut always has a code
// to compare against.
func (b *Broadcaster) declaredSource(input BroadcastInput) string {
	if strings.TrimSpace(input.SourceLang) != "" {
		code := b.dir.Normalize(input.SourceLang)
		if code != languages.CodeUnknown && code != languages.CodeAuto {
			return code
		}
	}
	return languages.GuessSource(input.SourceText)
}

// persistRecord writes the audit row on a fresh context: the broadcast
// deadline is usually spent by the time the report is final.
func (b *Broadcaster) persistRecord(input BroadcastInput, sourceLang string, report *models.BroadcastReport) {
	record := models.RecordFromReport(input.SenderID, sourceLang, report)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.repo.SaveBroadcastRecord(ctx, record); err != nil {
		b.logger.WithField("guild_id", input.GuildID).WithError(err).Warn("Failed to persist broadcast record")
	}
}
