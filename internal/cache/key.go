package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key identifies one (text, source, target) translation.
type Key struct {
	SourceLang string
	TargetLang string
	TextHash   string
}

// NewKey builds a cache key. Whitespace in the text is collapsed before
// hashing so trivially reformatted inputs share an entry. A missing or
// unknown source is keyed as "auto".
func NewKey(text, sourceLang, targetLang string) Key {
	src := strings.ToLower(strings.TrimSpace(sourceLang))
	if src == "" || src == "unknown" {
		src = "auto"
	}
	sum := sha256.Sum256([]byte(collapseWhitespace(text)))
	return Key{
		SourceLang: src,
		TargetLang: strings.ToLower(strings.TrimSpace(targetLang)),
		TextHash:   hex.EncodeToString(sum[:]),
	}
}

// String renders the shared-store form of the key.
func (k Key) String() string {
	return fmt.Sprintf("trans:%s:%s:%s", k.SourceLang, k.TargetLang, k.TextHash)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
