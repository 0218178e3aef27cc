package application

import (
	"os"
	"path/filepath"
	"testing"
)

const libraryYAML = `templates:
  - name: production-12m
    decks:
      - idx: 1
        type: INERT
        mode: fixed
        length: 4
        product: Stemming
      - idx: 2
        type: COUPLED
        mode: fill
        product: ANFO
    primers:
      - idx: 1
        depth_formula: "fx: chargeBase - 1"
        detonator: MS Detonator
        booster: Booster 400g
  - name: short-bench
    short_hole_logic: true
    short_hole_threshold: 5
    tiers:
      - min_length: 0
        max_length: 2
        charge_ratio: 0
      - min_length: 2
        charge_ratio: 0.5
    decks:
      - idx: 1
        type: INERT
        mode: fixed
        length: 1
        product: Stemming
      - idx: 2
        type: COUPLED
        mode: fill
        product: ANFO
`

func writeLibrary(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write library: %v", err)
	}
	return path
}

func TestLoadTemplateLibrary(t *testing.T) {
	library, err := LoadTemplateLibrary(writeLibrary(t, libraryYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	names := library.Names()
	if len(names) != 2 || names[0] != "production-12m" || names[1] != "short-bench" {
		t.Fatalf("expected [production-12m short-bench], got %v", names)
	}

	template, ok := library.Get("production-12m")
	if !ok {
		t.Fatalf("template missing")
	}
	if len(template.Decks) != 2 || template.Decks[1].Mode != ModeFill {
		t.Fatalf("decks not parsed: %+v", template.Decks)
	}
	if len(template.Primers) != 1 || template.Primers[0].DetonatorRef != "MS Detonator" {
		t.Fatalf("primers not parsed: %+v", template.Primers)
	}

	short, _ := library.Get("short-bench")
	if !short.ShortHoleLogicEnabled || short.ShortHoleLengthThreshold != 5 {
		t.Fatalf("short-hole settings not parsed: %+v", short)
	}
	if len(short.Tiers) != 2 || short.Tiers[1].ChargeRatio != 0.5 {
		t.Fatalf("tiers not parsed: %+v", short.Tiers)
	}
}

func TestLoadTemplateLibraryEmptyPath(t *testing.T) {
	t.Setenv("TEMPLATE_LIBRARY", "")
	library, err := LoadTemplateLibrary("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(library.Names()) != 0 {
		t.Fatalf("expected empty library, got %v", library.Names())
	}
}

func TestLoadTemplateLibraryRejectsInvalid(t *testing.T) {
	noDecks := `templates:
  - name: hollow
`
	if _, err := LoadTemplateLibrary(writeLibrary(t, noDecks)); err == nil {
		t.Fatalf("template without decks should be rejected")
	}

	unnamed := `templates:
  - decks:
      - idx: 1
        type: COUPLED
        mode: fill
        product: ANFO
`
	if _, err := LoadTemplateLibrary(writeLibrary(t, unnamed)); err == nil {
		t.Fatalf("unnamed template should be rejected")
	}

	if _, err := LoadTemplateLibrary(writeLibrary(t, "templates: [")); err == nil {
		t.Fatalf("malformed yaml should be rejected")
	}
}

func TestTemplateLibraryPut(t *testing.T) {
	library := NewTemplateLibrary()
	if err := library.Put(stemAndFill()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := library.Get("stem-and-fill"); !ok {
		t.Fatalf("stored template not found")
	}
	if err := library.Put(Template{Name: "broken"}); err == nil {
		t.Fatalf("invalid template should be rejected")
	}
}
