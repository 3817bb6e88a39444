package languages

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Sentinel codes. CodeAuto means "no target determined yet" and must never
// reach a provider; CodeUnknown means the input failed directory lookup.
const (
	CodeAuto    = "auto"
	CodeUnknown = "unknown"
)

// Provider tier names used for capability checks.
const (
	TierPremium = "premium"
	TierFree    = "free"
	TierBroad   = "broad"
)

// Entry is one row of the language directory.
type Entry struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	NativeName string   `json:"native_name,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
	Flags      []string `json:"flags,omitempty"`
	Premium    bool     `json:"premium"`
	Free       bool     `json:"free"`
	RTL        bool     `json:"rtl,omitempty"`
}

// Directory maps aliases, flag emojis, and dialect codes to canonical
// language codes and holds the per-tier capability sets. It is immutable
// after construction and safe for concurrent reads.
type Directory struct {
	entries []Entry
	byCode  map[string]*Entry
	byAlias map[string]*Entry
	byFlag  map[string]*Entry
}

// New builds the directory from the built-in table.
func New() *Directory {
	d, err := build(builtinTable)
	if err != nil {
		panic(fmt.Sprintf("languages: built-in table invalid: %v", err))
	}
	return d
}

// Load reads a JSON array of entries from path and builds a directory from
// it, replacing the built-in table entirely.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read language directory: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse language directory: %w", err)
	}
	d, err := build(entries)
	if err != nil {
		return nil, fmt.Errorf("language directory %s: %w", path, err)
	}
	return d, nil
}

func build(entries []Entry) (*Directory, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries")
	}
	d := &Directory{
		entries: entries,
		byCode:  make(map[string]*Entry, len(entries)),
		byAlias: make(map[string]*Entry, len(entries)*4),
		byFlag:  make(map[string]*Entry, len(entries)),
	}
	for i := range d.entries {
		e := &d.entries[i]
		code := strings.ToLower(strings.TrimSpace(e.Code))
		if code == "" || code == CodeAuto || code == CodeUnknown {
			return nil, fmt.Errorf("invalid code %q", e.Code)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("entry %q has no display name", code)
		}
		if _, dup := d.byCode[code]; dup {
			return nil, fmt.Errorf("duplicate code %q", code)
		}
		e.Code = code
		d.byCode[code] = e
		if err := index(d.byAlias, code, e); err != nil {
			return nil, err
		}
		for _, a := range e.Aliases {
			if err := index(d.byAlias, strings.ToLower(strings.TrimSpace(a)), e); err != nil {
				return nil, err
			}
		}
		for _, f := range e.Flags {
			if err := index(d.byFlag, strings.TrimSpace(f), e); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

func index(m map[string]*Entry, key string, e *Entry) error {
	if key == "" {
		return fmt.Errorf("entry %q has an empty alias", e.Code)
	}
	if prev, ok := m[key]; ok && prev != e {
		return fmt.Errorf("alias %q claimed by both %q and %q", key, prev.Code, e.Code)
	}
	m[key] = e
	return nil
}

// LookupAlias resolves free-form input to a directory entry. It tries, in
// order: exact alias match (codes are self-aliases), flag emoji match, and
// the root code of a regional variant (pt-br falls back to pt). A miss
// returns (nil, false) and is not an error.
func (d *Directory) LookupAlias(input string) (*Entry, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return nil, false
	}
	s = strings.ReplaceAll(s, "_", "-")
	if e, ok := d.byAlias[s]; ok {
		return e, true
	}
	if e, ok := d.byFlag[s]; ok {
		return e, true
	}
	if root, ok := regionalRoot(s); ok {
		if e, ok := d.byAlias[root]; ok {
			return e, true
		}
	}
	return nil, false
}

// regionalRoot extracts the base code from a regional variant like "en-us"
// or "zh-hant". The root must be 2 or 3 ASCII letters.
func regionalRoot(s string) (string, bool) {
	i := strings.IndexByte(s, '-')
	if i <= 0 || i >= len(s)-1 {
		return "", false
	}
	root := s[:i]
	if len(root) < 2 || len(root) > 3 {
		return "", false
	}
	for _, r := range root {
		if r < 'a' || r > 'z' {
			return "", false
		}
	}
	return root, true
}

// DisplayName returns the human name for a canonical code, or "" when the
// code is not in the directory.
func (d *Directory) DisplayName(code string) string {
	if e, ok := d.byCode[strings.ToLower(code)]; ok {
		return e.Name
	}
	return ""
}

// Has reports whether code is a canonical directory code.
func (d *Directory) Has(code string) bool {
	_, ok := d.byCode[strings.ToLower(code)]
	return ok
}

// Entries returns a copy of all directory rows.
func (d *Directory) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Supports reports whether the given provider tier can translate into code.
// The broad tier covers every directory entry.
func (d *Directory) Supports(provider, code string) bool {
	e, ok := d.byCode[strings.ToLower(code)]
	if !ok {
		return false
	}
	switch provider {
	case TierPremium:
		return e.Premium
	case TierFree:
		return e.Free
	case TierBroad:
		return true
	}
	return false
}

// PremiumTargets returns the set of codes the premium tier can translate to.
func (d *Directory) PremiumTargets() map[string]struct{} {
	return d.targets(func(e *Entry) bool { return e.Premium })
}

// FreeTargets returns the set of codes the free tier can translate to.
func (d *Directory) FreeTargets() map[string]struct{} {
	return d.targets(func(e *Entry) bool { return e.Free })
}

// AllTargets returns the set of every canonical code in the directory.
func (d *Directory) AllTargets() map[string]struct{} {
	return d.targets(func(*Entry) bool { return true })
}

func (d *Directory) targets(include func(*Entry) bool) map[string]struct{} {
	out := make(map[string]struct{}, len(d.entries))
	for i := range d.entries {
		if include(&d.entries[i]) {
			out[d.entries[i].Code] = struct{}{}
		}
	}
	return out
}
