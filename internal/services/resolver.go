package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"polyglot-service/internal/languages"
	"polyglot-service/internal/models"
	"polyglot-service/internal/repository"
)

// RoleSource enumerates the language role codes a member carries, ordered
// by role position. Implemented by PlatformClient.
type RoleSource interface {
	UserLanguageCodes(ctx context.Context, guildID, userID string) ([]string, error)
}

// ResolveRequest carries everything known about one resolution. RoleCodes
// may be pre-fetched by the caller; nil means the resolver asks the
// RoleSource itself.
type ResolveRequest struct {
	GuildID   string
	UserID    string
	Explicit  string // Raw user input, wins over everything when valid
	RoleCodes []string
}

// TargetResolver decides which language a translation should be addressed
// to, walking the priority chain: explicit input, stored preference,
// language roles, guild default, service default, auto.
type TargetResolver struct {
	dir      *languages.Directory
	repo     repository.TranslationRepository
	roles    RoleSource
	fallback string
	logger   *logrus.Entry
}

// NewTargetResolver creates a resolver. fallbackLang is the service-wide
// default applied when a guild has none configured; it may be empty.
func NewTargetResolver(dir *languages.Directory, repo repository.TranslationRepository, roles RoleSource, fallbackLang string, logger *logrus.Entry) *TargetResolver {
	r := &TargetResolver{
		dir:    dir,
		repo:   repo,
		roles:  roles,
		logger: logger,
	}
	r.fallback = r.validCode(fallbackLang)
	return r
}

// Resolve returns the target code for one member. It never fails: lookup
// errors are logged and the chain continues, bottoming out at CodeAuto.
// CodeUnknown is returned only for explicit input the directory rejects.
func (r *TargetResolver) Resolve(ctx context.Context, req ResolveRequest) string {
	if strings.TrimSpace(req.Explicit) != "" {
		code := r.dir.Normalize(req.Explicit)
		if code == languages.CodeUnknown {
			return languages.CodeUnknown
		}
		// A literal "auto" means "pick for me": fall through to the chain.
		if code != languages.CodeAuto {
			return code
		}
	}

	if req.GuildID != "" && req.UserID != "" {
		pref, err := r.repo.GetUserPreference(ctx, req.GuildID, req.UserID)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"guild_id": req.GuildID,
				"user_id":  req.UserID,
			}).WithError(err).Warn("Preference lookup failed, continuing resolution")
		} else if pref != nil {
			if code := r.validCode(pref.Code); code != "" {
				return code
			}
		}
	}

	codes := req.RoleCodes
	if codes == nil && r.roles != nil && req.GuildID != "" && req.UserID != "" {
		fetched, err := r.roles.UserLanguageCodes(ctx, req.GuildID, req.UserID)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"guild_id": req.GuildID,
				"user_id":  req.UserID,
			}).WithError(err).Warn("Role lookup failed, continuing resolution")
		} else {
			codes = fetched
		}
	}
	if code := r.firstValid(codes); code != "" {
		return code
	}

	if req.GuildID != "" {
		settings, err := r.repo.GetGuildSettings(ctx, req.GuildID)
		if err != nil {
			r.logger.WithField("guild_id", req.GuildID).WithError(err).Warn("Guild settings lookup failed, continuing resolution")
		} else if code := r.validCode(settings.DefaultLang); code != "" {
			return code
		}
	}

	if r.fallback != "" {
		return r.fallback
	}
	return languages.CodeAuto
}

// ResolveAll resolves a target for every recipient of one guild in a
// single pass, fetching stored preferences and the guild default once.
// Recipients carry their role codes already, so no RoleSource calls are
// made here.
func (r *TargetResolver) ResolveAll(ctx context.Context, guildID string, recipients []models.Recipient) map[string]string {
	prefs, err := r.repo.ListGuildPreferences(ctx, guildID)
	if err != nil {
		r.logger.WithField("guild_id", guildID).WithError(err).Warn("Bulk preference lookup failed, resolving from roles only")
		prefs = nil
	}

	guildDefault := ""
	if settings, err := r.repo.GetGuildSettings(ctx, guildID); err != nil {
		r.logger.WithField("guild_id", guildID).WithError(err).Warn("Guild settings lookup failed, using service default")
	} else {
		guildDefault = r.validCode(settings.DefaultLang)
	}
	if guildDefault == "" {
		guildDefault = r.fallback
	}

	targets := make(map[string]string, len(recipients))
	for i := range recipients {
		rec := &recipients[i]
		if code := r.validCode(prefs[rec.ID]); code != "" {
			targets[rec.ID] = code
			continue
		}
		if code := r.firstValid(rec.LanguageCodes); code != "" {
			targets[rec.ID] = code
			continue
		}
		if guildDefault != "" {
			targets[rec.ID] = guildDefault
			continue
		}
		targets[rec.ID] = languages.CodeAuto
	}
	return targets
}

// validCode normalizes s and returns the canonical code, or "" when s is
// empty or fails directory lookup.
func (r *TargetResolver) validCode(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	code := r.dir.Normalize(s)
	if code == languages.CodeUnknown || code == languages.CodeAuto {
		return ""
	}
	return code
}

func (r *TargetResolver) firstValid(codes []string) string {
	for _, c := range codes {
		if code := r.validCode(c); code != "" {
			return code
		}
	}
	return ""
}
