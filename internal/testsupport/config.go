package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"beebuild/internal/config"
)

// DefaultManifest is the manifest seeded into every test project.
const DefaultManifest = `{
  "manifest_version": 2,
  "version": "1.0",
  "name": "Spelling Bee Help"
}
`

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted at a fresh project directory containing
// manifest.json, SpellingBeeHelp.js and img/. History is disabled unless
// WithHistory is applied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	project := filepath.Join(base, "project")

	cfgVal := config.Default()
	cfgVal.Paths.ProjectDir = project
	cfgVal.Paths.Manifest = filepath.Join(project, "manifest.json")
	cfgVal.Paths.ReleasesDir = filepath.Join(project, "releases")
	cfgVal.Paths.LockFile = filepath.Join(project, ".beebuild.lock")
	cfgVal.History.Enabled = false
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")

	WriteManifest(t, cfgVal.Paths.Manifest, DefaultManifest)
	WriteFile(t, filepath.Join(project, "SpellingBeeHelp.js"), "console.log('bee');\n")
	WriteFile(t, filepath.Join(project, "img", "icon-48.png"), "png")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithManifest replaces the seeded manifest content.
func WithManifest(content string) ConfigOption {
	return func(b *configBuilder) {
		WriteManifest(b.t, b.cfg.Paths.Manifest, content)
	}
}

// WithHistory enables the release ledger under the test's temp directory.
func WithHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = true
	}
}

// WithIgnoreFailures tolerates archiver failures.
func WithIgnoreFailures() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.IgnoreFailures = true
	}
}

// WithStubbedArchiver installs a shell script as the archiver and points
// archive.command at it. An empty body installs StubZip.
func WithStubbedArchiver(body string) ConfigOption {
	return func(b *configBuilder) {
		if body == "" {
			body = StubZip
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		path := filepath.Join(binDir, "zip")
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
			b.t.Fatalf("write stub archiver: %v", err)
		}
		b.cfg.Archive.Command = path
	}
}

// StubZip records its arguments next to the archive and creates the archive
// file, printing one line per member the way zip does.
const StubZip = `archive="$1"
shift
printf '%s\n' "$archive" "$@" > "$archive.args"
for member in "$@"; do
  [ "$member" = "-r" ] && continue
  echo "  adding: $member (stored 0%)"
done
echo "zip-bytes" > "$archive"
`

// FailingZip writes to stderr and exits with zip's "nothing to do" status.
const FailingZip = `echo "zip error: Nothing to do!" >&2
exit 12
`

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ProjectDir)
}
