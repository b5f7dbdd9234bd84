package release_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"beebuild/internal/archive"
	"beebuild/internal/config"
	"beebuild/internal/history"
	"beebuild/internal/release"
	"beebuild/internal/target"
	"beebuild/internal/testsupport"
)

func TestParseArgs(t *testing.T) {
	req, err := release.ParseArgs([]string{"chrome", "2.4"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if req.Target != target.Chrome || req.Version != "2.4" {
		t.Fatalf("unexpected request %+v", req)
	}

	req, err = release.ParseArgs([]string{"edge", "17.62"})
	if err != nil || req.Target != target.Edge {
		t.Fatalf("edge 17.62 rejected: %v", err)
	}
}

func TestParseArgsUsageErrors(t *testing.T) {
	hint := "Correct usage: build chrome|firefox|edge <version #>"
	cases := []struct {
		name string
		args []string
		want []string
	}{
		{"no args", nil, []string{"Invalid number of arguments.", hint}},
		{"one arg", []string{"chrome"}, []string{"Invalid number of arguments.", hint}},
		{"three args", []string{"chrome", "1.0", "x"}, []string{"Invalid number of arguments.", hint}},
		{"unknown target", []string{"safari", "1.0"}, []string{"First argument invalid: 'safari'", hint}},
		{"case sensitive target", []string{"Chrome", "1.0"}, []string{"First argument invalid: 'Chrome'", hint}},
		{"single number", []string{"chrome", "1"}, versionLines("1", hint)},
		{"three parts", []string{"chrome", "1.2.3"}, versionLines("1.2.3", hint)},
		{"prefix", []string{"firefox", "v1.2"}, versionLines("v1.2", hint)},
		{"empty", []string{"edge", ""}, versionLines("", hint)},
		{"trailing newline", []string{"edge", "1.2\n"}, versionLines("1.2\n", hint)},
		{"non ascii digits", []string{"edge", "١.٢"}, versionLines("١.٢", hint)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := release.ParseArgs(tc.args)
			var usage *release.UsageError
			if !errors.As(err, &usage) {
				t.Fatalf("expected UsageError, got %v", err)
			}
			if strings.Join(usage.Lines, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("lines = %q, want %q", usage.Lines, tc.want)
			}
		})
	}
}

func versionLines(value, hint string) []string {
	return []string{
		"Second argument invalid version number: '" + value + "'",
		hint,
		"Version numbers must look like '1.3' or '17.62'",
	}
}

func newBuilder(t *testing.T, cfg *config.Config, opts ...release.Option) *release.Builder {
	t.Helper()
	b, err := release.NewBuilder(cfg, opts...)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func TestRunChromeScenario(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedArchiver(""),
		testsupport.WithManifest(`{"manifest_version": 2, "version": "1.0", "name": "X"}`),
	)

	result, err := newBuilder(t, cfg).Run(context.Background(), release.Request{Target: target.Chrome, Version: "2.4"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "{\n  \"manifest_version\": 3,\n  \"version\": \"2.4\",\n  \"name\": \"X\"\n}"
	if got := testsupport.ReadFile(t, cfg.Paths.Manifest); got != want {
		t.Fatalf("manifest = %q, want %q", got, want)
	}

	archivePath := filepath.Join(cfg.Paths.ProjectDir, "releases", "spelling-bee-help-chrome-2.4.zip")
	if result.ArchivePath != archivePath || result.Archive.Path != archivePath {
		t.Fatalf("unexpected archive path %q / %q", result.ArchivePath, result.Archive.Path)
	}
	args := testsupport.ReadFile(t, archivePath+".args")
	wantArgs := "releases/spelling-bee-help-chrome-2.4.zip\n-r\nmanifest.json\nSpellingBeeHelp.js\nimg\n"
	if args != wantArgs {
		t.Fatalf("archiver args = %q, want %q", args, wantArgs)
	}
	if result.Archive.Entries != 3 || result.Archive.SHA256 == "" {
		t.Fatalf("unexpected archive result %+v", result.Archive)
	}
	if result.Change.PreviousManifestVersion != 2 || result.Change.PreviousVersion != "1.0" {
		t.Fatalf("unexpected change %+v", result.Change)
	}
	if result.BuildID == "" {
		t.Fatal("expected build id")
	}
}

func TestRunFirefoxUsesManifestV2(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedArchiver(""))

	result, err := newBuilder(t, cfg).Run(context.Background(), release.Request{Target: target.Firefox, Version: "0.1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Change.ManifestVersion != 2 || result.Change.Version != "0.1" {
		t.Fatalf("unexpected change %+v", result.Change)
	}
	got := testsupport.ReadFile(t, cfg.Paths.Manifest)
	if !strings.Contains(got, `"manifest_version": 2`) || !strings.Contains(got, `"version": "0.1"`) {
		t.Fatalf("manifest not patched: %s", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.ReleasesDir, "spelling-bee-help-firefox-0.1.zip")); err != nil {
		t.Fatalf("archive missing: %v", err)
	}
}

func TestRunMissingManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedArchiver(""))
	if err := os.Remove(cfg.Paths.Manifest); err != nil {
		t.Fatalf("remove manifest: %v", err)
	}
	_, err := newBuilder(t, cfg).Run(context.Background(), release.Request{Target: target.Edge, Version: "1.0"})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, statErr := os.Stat(cfg.Paths.ReleasesDir); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("releases dir must not be created when the manifest cannot be read")
	}
}

func TestRunArchiverFailureSurfacesByDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedArchiver(testsupport.FailingZip))

	_, err := newBuilder(t, cfg).Run(context.Background(), release.Request{Target: target.Chrome, Version: "1.1"})
	if !errors.Is(err, archive.ErrArchiverFailed) {
		t.Fatalf("expected ErrArchiverFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "Nothing to do") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
	// No rollback: the manifest stays patched.
	if got := testsupport.ReadFile(t, cfg.Paths.Manifest); !strings.Contains(got, `"version": "1.1"`) {
		t.Fatalf("manifest should remain patched, got %s", got)
	}
}

func TestRunArchiverFailureIgnoredWhenConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedArchiver(testsupport.FailingZip),
		testsupport.WithIgnoreFailures(),
		testsupport.WithHistory(),
	)
	store, err := history.Open(context.Background(), cfg.History.Path)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()

	result, err := newBuilder(t, cfg, release.WithHistory(store)).Run(context.Background(), release.Request{Target: target.Chrome, Version: "1.1"})
	if err != nil {
		t.Fatalf("expected tolerated failure, got %v", err)
	}
	if !errors.Is(result.PackageErr, archive.ErrArchiverFailed) {
		t.Fatalf("expected PackageErr, got %v", result.PackageErr)
	}
	if result.Record == nil || result.Record.Status != history.StatusFailed {
		t.Fatalf("expected failed history record, got %+v", result.Record)
	}
}

func TestRunMissingArchiverBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Archive.Command = filepath.Join(testsupport.BaseDir(cfg), "no-such-zip")

	_, err := newBuilder(t, cfg).Run(context.Background(), release.Request{Target: target.Edge, Version: "3.0"})
	if !errors.Is(err, archive.ErrArchiverFailed) {
		t.Fatalf("expected ErrArchiverFailed, got %v", err)
	}
}

func TestRunFailsWhenLockHeld(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedArchiver(""))
	before := testsupport.ReadFile(t, cfg.Paths.Manifest)

	lock := flock.New(cfg.Paths.LockFile)
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	_, err = newBuilder(t, cfg).Run(context.Background(), release.Request{Target: target.Chrome, Version: "9.9"})
	if !errors.Is(err, release.ErrBuildLocked) {
		t.Fatalf("expected ErrBuildLocked, got %v", err)
	}
	if after := testsupport.ReadFile(t, cfg.Paths.Manifest); after != before {
		t.Fatalf("manifest changed while locked:\n%s", after)
	}
}

func TestRunRecordsHistoryAndWarnsOnDowngrade(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedArchiver(""), testsupport.WithHistory())
	store, err := history.Open(context.Background(), cfg.History.Path)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()
	builder := newBuilder(t, cfg, release.WithHistory(store))
	ctx := context.Background()

	first, err := builder.Run(ctx, release.Request{Target: target.Chrome, Version: "1.10"})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Comparison != history.FirstRelease || first.Record == nil || first.Record.Status != history.StatusPackaged {
		t.Fatalf("unexpected first result %+v", first)
	}
	if first.Record.SHA256 != first.Archive.SHA256 {
		t.Fatal("history should carry the archive digest")
	}

	second, err := builder.Run(ctx, release.Request{Target: target.Chrome, Version: "1.9"})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Comparison != history.Downgrade || second.Previous == nil || second.Previous.Version != "1.10" {
		t.Fatalf("expected downgrade against 1.10, got %s %+v", second.Comparison, second.Previous)
	}

	third, err := builder.Run(ctx, release.Request{Target: target.Chrome, Version: "1.10"})
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if third.Comparison != history.Rebuild {
		t.Fatalf("expected rebuild, got %s", third.Comparison)
	}

	rows, err := store.List(ctx, history.Filter{Target: "chrome"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 history rows, got %d", len(rows))
	}
}

func TestRunReplacesStaleArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedArchiver(`archive="$1"
[ -e "$archive" ] && { echo "stale archive present" >&2; exit 1; }
echo fresh > "$archive"
`))
	stale := cfg.ArchivePath("edge", "2.0")
	testsupport.WriteFile(t, stale, "old")

	result, err := newBuilder(t, cfg).Run(context.Background(), release.Request{Target: target.Edge, Version: "2.0"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := testsupport.ReadFile(t, result.Archive.Path); got != "fresh\n" {
		t.Fatalf("archive content = %q", got)
	}
}

func TestPlanWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedArchiver(""))
	before := testsupport.ReadFile(t, cfg.Paths.Manifest)

	result, err := newBuilder(t, cfg).Plan(context.Background(), release.Request{Target: target.Chrome, Version: "4.2"})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !result.DryRun || result.Change.ManifestVersion != 3 || result.Change.Version != "4.2" {
		t.Fatalf("unexpected plan %+v", result)
	}
	if !strings.HasSuffix(result.CommandLine, "releases/spelling-bee-help-chrome-4.2.zip -r manifest.json SpellingBeeHelp.js img") {
		t.Fatalf("unexpected command line %q", result.CommandLine)
	}
	if after := testsupport.ReadFile(t, cfg.Paths.Manifest); after != before {
		t.Fatal("dry run modified the manifest")
	}
	for _, path := range []string{cfg.Paths.ReleasesDir, cfg.Paths.LockFile} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("dry run created %s", path)
		}
	}
}
