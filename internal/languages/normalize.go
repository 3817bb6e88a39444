package languages

import "strings"

// Normalize turns arbitrary user input into a canonical code. Empty input
// returns CodeAuto, unrecognized input returns CodeUnknown; it never guesses.
// Output is stable across case variants and repeated application.
func (d *Directory) Normalize(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return CodeAuto
	}
	s = strings.Trim(s, "\"'`“”‘’")
	s = strings.TrimSpace(s)
	if s == "" {
		return CodeAuto
	}
	s = strings.ToLower(s)
	switch s {
	case CodeAuto:
		return CodeAuto
	case CodeUnknown:
		return CodeUnknown
	}
	if e, ok := d.LookupAlias(s); ok {
		return e.Code
	}
	return CodeUnknown
}
