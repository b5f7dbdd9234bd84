package target

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Target identifies a browser the extension is packaged for.
type Target int

const (
	Chrome Target = iota + 1
	Firefox
	Edge
)

type info struct {
	name            string
	manifestVersion int
}

// targets is ordered the way targets are listed in usage text.
var targets = []struct {
	target Target
	info
}{
	{Chrome, info{name: "chrome", manifestVersion: 3}},
	{Firefox, info{name: "firefox", manifestVersion: 2}},
	{Edge, info{name: "edge", manifestVersion: 3}},
}

var titleCaser = cases.Title(language.English)

// All returns every supported target in usage order.
func All() []Target {
	out := make([]Target, 0, len(targets))
	for _, entry := range targets {
		out = append(out, entry.target)
	}
	return out
}

// Names returns the canonical target names in usage order.
func Names() []string {
	all := All()
	out := make([]string, 0, len(all))
	for _, tgt := range all {
		out = append(out, tgt.String())
	}
	return out
}

// Parse resolves a canonical target name. Matching is exact: "Chrome" or
// " chrome" are rejected.
func Parse(value string) (Target, bool) {
	for _, entry := range targets {
		if entry.name == value {
			return entry.target, true
		}
	}
	return 0, false
}

func (t Target) lookup() (info, bool) {
	for _, entry := range targets {
		if entry.target == t {
			return entry.info, true
		}
	}
	return info{}, false
}

// Valid reports whether t is one of the supported targets.
func (t Target) Valid() bool {
	_, ok := t.lookup()
	return ok
}

// String returns the canonical lower-case name used on the command line and in
// archive names.
func (t Target) String() string {
	if s, ok := t.lookup(); ok {
		return s.name
	}
	return "unknown"
}

// DisplayName returns the title-cased browser name for human output.
func (t Target) DisplayName() string {
	return titleCaser.String(t.String())
}

// ManifestVersion returns the manifest schema revision the browser's extension
// loader expects. Unknown targets report 0.
func (t Target) ManifestVersion() int {
	s, _ := t.lookup()
	return s.manifestVersion
}

// UsageList renders the targets as "chrome|firefox|edge".
func UsageList() string {
	return strings.Join(Names(), "|")
}
