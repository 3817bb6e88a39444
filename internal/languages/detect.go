package languages

import "unicode"

// GuessSource estimates the source language of text from its dominant
// script. It stands in for server-side detection when a provider requires a
// concrete source code. Latin-script and inconclusive inputs return "en".
func GuessSource(text string) string {
	counts := make(map[string]int, 4)
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			counts["ja"]++
		case unicode.Is(unicode.Hangul, r):
			counts["ko"]++
		case unicode.Is(unicode.Han, r):
			counts["zh"]++
		case unicode.Is(unicode.Cyrillic, r):
			counts["ru"]++
		case unicode.Is(unicode.Arabic, r):
			counts["ar"]++
		case unicode.Is(unicode.Hebrew, r):
			counts["he"]++
		case unicode.Is(unicode.Devanagari, r):
			counts["hi"]++
		case unicode.Is(unicode.Thai, r):
			counts["th"]++
		case unicode.Is(unicode.Greek, r):
			counts["el"]++
		case unicode.Is(unicode.Georgian, r):
			counts["ka"]++
		case unicode.Is(unicode.Armenian, r):
			counts["hy"]++
		case unicode.Is(unicode.Ethiopic, r):
			counts["am"]++
		case unicode.Is(unicode.Khmer, r):
			counts["km"]++
		case unicode.Is(unicode.Lao, r):
			counts["lo"]++
		case unicode.Is(unicode.Myanmar, r):
			counts["my"]++
		case unicode.Is(unicode.Sinhala, r):
			counts["si"]++
		case unicode.Is(unicode.Bengali, r):
			counts["bn"]++
		case unicode.Is(unicode.Tamil, r):
			counts["ta"]++
		case unicode.Is(unicode.Telugu, r):
			counts["te"]++
		case unicode.Is(unicode.Gujarati, r):
			counts["gu"]++
		case unicode.Is(unicode.Gurmukhi, r):
			counts["pa"]++
		}
	}
	best, bestCount := "", 0
	for code, n := range counts {
		if n > bestCount {
			best, bestCount = code, n
		}
	}
	if best == "" {
		return "en"
	}
	// Japanese text mixes kana with Han characters; any kana wins over Han.
	if best == "zh" && counts["ja"] > 0 {
		return "ja"
	}
	return best
}
