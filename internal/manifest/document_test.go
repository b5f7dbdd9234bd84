package manifest_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"beebuild/internal/manifest"
	"beebuild/internal/target"
)

func TestApplyChromeScenario(t *testing.T) {
	doc, err := manifest.Parse([]byte(`{"manifest_version": 2, "version": "1.0", "name": "X"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	change, err := manifest.Apply(doc, target.Chrome, "2.4")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if change.PreviousManifestVersion != 2 || change.PreviousVersion != "1.0" {
		t.Fatalf("unexpected previous values: %+v", change)
	}

	out, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := "{\n  \"manifest_version\": 3,\n  \"version\": \"2.4\",\n  \"name\": \"X\"\n}"
	if string(out) != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out, want)
	}
}

func TestApplyFirefoxUsesManifestV2(t *testing.T) {
	doc, err := manifest.Parse([]byte(`{"manifest_version": 3, "version": "9.9"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := manifest.Apply(doc, target.Firefox, "0.1"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if v, ok := doc.ManifestVersion(); !ok || v != 2 {
		t.Fatalf("manifest_version = %d (%v), want 2", v, ok)
	}
	if v, ok := doc.Version(); !ok || v != "0.1" {
		t.Fatalf("version = %q (%v), want 0.1", v, ok)
	}
}

func TestApplyAppendsMissingFields(t *testing.T) {
	doc, err := manifest.Parse([]byte(`{"name": "X"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := manifest.Apply(doc, target.Edge, "17.62"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	keys := strings.Join(doc.Keys(), ",")
	if keys != "name,manifest_version,version" {
		t.Fatalf("unexpected key order %q", keys)
	}
}

func TestApplyRejectsUnknownTarget(t *testing.T) {
	doc, err := manifest.Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := manifest.Apply(doc, target.Target(42), "1.0"); err == nil {
		t.Fatal("expected error for unknown target")
	}
}

func TestMarshalPreservesUnrelatedMembers(t *testing.T) {
	input := `{
	"name": "Spelling Bee Help",
	"description": "café <helper> & more",
	"icons": {"48": "img/icon48.png", "128": "img/icon128.png"},
	"ratio": 1.50,
	"permissions": [],
	"content_scripts": [{"matches": ["https://www.nytimes.com/puzzles/spelling-bee*"], "js": ["SpellingBeeHelp.js"]}],
	"manifest_version": 2,
	"version": "1.0"
}
`
	doc, err := manifest.Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := manifest.Apply(doc, target.Chrome, "1.3"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	out, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	want := `{
  "name": "Spelling Bee Help",
  "description": "café <helper> & more",
  "icons": {
    "48": "img/icon48.png",
    "128": "img/icon128.png"
  },
  "ratio": 1.50,
  "permissions": [],
  "content_scripts": [
    {
      "matches": [
        "https://www.nytimes.com/puzzles/spelling-bee*"
      ],
      "js": [
        "SpellingBeeHelp.js"
      ]
    }
  ],
  "manifest_version": 3,
  "version": "1.3"
}
`
	if string(out) != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out, want)
	}
}

func TestParseDuplicateKeysKeepFirstPositionLastValue(t *testing.T) {
	doc, err := manifest.Parse([]byte(`{"version": "1.0", "name": "X", "version": "2.0"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if keys := strings.Join(doc.Keys(), ","); keys != "version,name" {
		t.Fatalf("unexpected keys %q", keys)
	}
	if v, _ := doc.Version(); v != "2.0" {
		t.Fatalf("unexpected version %q", v)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"empty":    "",
		"array":    `["manifest_version"]`,
		"string":   `"manifest"`,
		"broken":   `{"name": }`,
		"trailing": `{"name": "X"} {"name": "Y"}`,
		"unclosed": `{"name": "X"`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := manifest.Parse([]byte(input)); err == nil {
				t.Fatalf("expected parse error for %q", input)
			}
		})
	}

	if _, err := manifest.Parse([]byte(`[1]`)); !errors.Is(err, manifest.ErrNotObject) {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
}

func TestEmptyObjectRoundTrip(t *testing.T) {
	doc, err := manifest.Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != "{}" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := manifest.Load(filepath.Join(t.TempDir(), "manifest.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestSaveKeepsModeAndTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte("{\"version\": \"1.0\"}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	doc, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := doc.SetVersion("1.1"); err != nil {
		t.Fatalf("SetVersion: %v", err)
	}
	if err := manifest.Save(path, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "{\n  \"version\": \"1.1\"\n}\n" {
		t.Fatalf("unexpected file content %q", got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode changed to %o", info.Mode().Perm())
	}
}
