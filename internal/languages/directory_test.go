package languages

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_BuiltinTable(t *testing.T) {
	d := New()

	if got := len(d.Entries()); got < 60 {
		t.Fatalf("Expected at least 60 languages in the built-in table, got %d", got)
	}
}

func TestLookupAlias_EveryAliasResolvesToItsOwnEntry(t *testing.T) {
	d := New()

	for _, e := range d.Entries() {
		inputs := []string{e.Code}
		inputs = append(inputs, e.Aliases...)
		inputs = append(inputs, e.Flags...)

		for _, input := range inputs {
			got, ok := d.LookupAlias(input)
			if !ok {
				t.Errorf("Expected %q to resolve, got no entry", input)
				continue
			}
			if got.Code != e.Code {
				t.Errorf("Expected %q to resolve to %q, got %q", input, e.Code, got.Code)
			}
			if d.DisplayName(got.Code) == "" {
				t.Errorf("Expected a display name for %q", got.Code)
			}
		}
	}
}

func TestLookupAlias_Variants(t *testing.T) {
	d := New()

	testCases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"es", "es", true},
		{"ES", "es", true},
		{"Spanish", "es", true},
		{"español", "es", true},
		{"🇪🇸", "es", true},
		{"🇲🇽", "es", true},
		{"mandarin", "zh", true},
		{"filipino", "tl", true},
		{"pt-br", "pt", true},
		{"pt-PT", "pt", true},
		// no explicit en-nz alias; falls back to the root code
		{"en-NZ", "en", true},
		{"zh_CN", "zh", true},
		{"fr-BE", "fr", true},
		{"  de  ", "de", true},
		{"no", "nb", true},
		{"klingon", "", false},
		{"xx-yy", "", false},
		{"", "", false},
	}

	for _, tc := range testCases {
		e, ok := d.LookupAlias(tc.input)
		if ok != tc.ok {
			t.Errorf("LookupAlias(%q): expected ok=%v, got %v", tc.input, tc.ok, ok)
			continue
		}
		if ok && e.Code != tc.want {
			t.Errorf("LookupAlias(%q): expected %q, got %q", tc.input, tc.want, e.Code)
		}
	}
}

func TestLookupAlias_SharedCountryFlags(t *testing.T) {
	d := New()

	testCases := []struct {
		flag string
		want string
	}{
		{"🇨🇭", "de"},
		{"🇧🇪", "nl"},
		{"🇨🇦", "en"},
		{"🇵🇭", "tl"},
		{"🇮🇳", "hi"},
	}

	for _, tc := range testCases {
		e, ok := d.LookupAlias(tc.flag)
		if !ok {
			t.Errorf("Expected flag %q to resolve", tc.flag)
			continue
		}
		if e.Code != tc.want {
			t.Errorf("Expected flag %q to resolve to %q, got %q", tc.flag, tc.want, e.Code)
		}
	}
}

func TestSupports(t *testing.T) {
	d := New()

	testCases := []struct {
		provider string
		code     string
		want     bool
	}{
		{TierPremium, "es", true},
		{TierPremium, "hi", false},
		{TierPremium, "sw", false},
		{TierFree, "hi", true},
		{TierFree, "sw", false},
		{TierBroad, "sw", true},
		{TierBroad, "es", true},
		{TierBroad, "klingon", false},
		{"other", "es", false},
	}

	for _, tc := range testCases {
		if got := d.Supports(tc.provider, tc.code); got != tc.want {
			t.Errorf("Supports(%q, %q): expected %v, got %v", tc.provider, tc.code, tc.want, got)
		}
	}
}

func TestTargetSets_CoverageOrdering(t *testing.T) {
	d := New()

	premium := d.PremiumTargets()
	free := d.FreeTargets()
	all := d.AllTargets()

	if len(premium) == 0 || len(free) == 0 {
		t.Fatal("Expected non-empty premium and free target sets")
	}
	if len(premium) >= len(free) {
		t.Errorf("Expected premium set (%d) to be narrower than free set (%d)", len(premium), len(free))
	}
	if len(free) >= len(all) {
		t.Errorf("Expected free set (%d) to be narrower than the full directory (%d)", len(free), len(all))
	}
	if _, ok := all["sw"]; !ok {
		t.Error("Expected sw in the full directory")
	}
	if _, ok := free["sw"]; ok {
		t.Error("Expected sw outside the free set")
	}
}

func TestLoad_OverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "languages.json")
	data := `[
		{"code": "en", "name": "English", "aliases": ["english"], "premium": true, "free": true},
		{"code": "eo", "name": "Esperanto", "aliases": ["esperanto"]}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write override file: %v", err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !d.Has("eo") {
		t.Error("Expected override entry eo to be present")
	}
	if d.Has("es") {
		t.Error("Expected built-in entries to be replaced, but es is present")
	}
	if got := d.Normalize("esperanto"); got != "eo" {
		t.Errorf("Expected esperanto to normalize to eo, got %q", got)
	}
}

func TestLoad_RejectsDuplicateAlias(t *testing.T) {
	path := filepath.Join(t.TempDir(), "languages.json")
	data := `[
		{"code": "en", "name": "English", "aliases": ["hello"]},
		{"code": "fr", "name": "French", "aliases": ["hello"]}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write override file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Expected an error for a duplicate alias, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("Expected an error for a missing file, got nil")
	}
}
