package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"beebuild/internal/archive"
	"beebuild/internal/config"
	"beebuild/internal/history"
	"beebuild/internal/logging"
	"beebuild/internal/manifest"
)

// ErrBuildLocked is returned when another build holds the project lock.
var ErrBuildLocked = errors.New("another build is already running for this project")

// Result describes a finished (or planned) build.
type Result struct {
	BuildID      string
	Request      Request
	ManifestPath string
	Change       manifest.Change
	ArchivePath  string
	CommandLine  string
	// Archive is zero when packaging failed or the build was a dry run.
	Archive archive.Result
	// PackageErr holds an archiver failure that was tolerated because
	// archive.ignore_failures is set.
	PackageErr error
	Previous   *history.Release
	Comparison history.Comparison
	Record     *history.Release
	DryRun     bool
}

// Builder runs the release pipeline against one project configuration.
type Builder struct {
	cfg      *config.Config
	logger   *slog.Logger
	packager *archive.Packager
	history  *history.Store
	progress io.Writer
	now      func() time.Time
}

// Option customizes a Builder.
type Option func(*Builder)

// WithLogger sets the base logger; the builder adds its component name.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithHistory records builds in store and checks new versions against it.
func WithHistory(store *history.Store) Option {
	return func(b *Builder) {
		b.history = store
	}
}

// WithProgress renders an archiver spinner on w.
func WithProgress(w io.Writer) Option {
	return func(b *Builder) {
		b.progress = w
	}
}

// WithPackager replaces the packager derived from cfg.Archive.Command.
func WithPackager(p *archive.Packager) Option {
	return func(b *Builder) {
		b.packager = p
	}
}

// NewBuilder constructs a builder for cfg.
func NewBuilder(cfg *config.Config, opts ...Option) (*Builder, error) {
	if cfg == nil {
		return nil, errors.New("release builder requires a config")
	}
	b := &Builder{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "release")
	if b.packager == nil {
		packager, err := archive.NewPackager(cfg.Archive.Command,
			archive.WithLogger(logging.NewComponentLogger(b.logger, "archive")),
			archive.WithProgress(b.progress),
		)
		if err != nil {
			return nil, err
		}
		b.packager = packager
	}
	return b, nil
}

// Run patches the manifest for req and packages the release archive. The
// manifest is left patched when packaging fails.
func (b *Builder) Run(ctx context.Context, req Request) (*Result, error) {
	unlock, err := b.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	result := b.newResult(req)
	logger := b.buildLogger(result)
	started := b.now()

	doc, err := manifest.Load(result.ManifestPath)
	if err != nil {
		return nil, err
	}
	result.Change, err = manifest.Apply(doc, req.Target, req.Version)
	if err != nil {
		return nil, err
	}
	if err := manifest.Save(result.ManifestPath, doc); err != nil {
		return nil, err
	}
	logger.Info("manifest updated",
		logging.String("path", result.ManifestPath),
		logging.Int("manifest_version", result.Change.ManifestVersion),
		logging.String("previous_version", result.Change.PreviousVersion),
	)

	if err := b.cfg.EnsureReleasesDir(); err != nil {
		return nil, err
	}
	b.compareWithHistory(ctx, logger, result)

	archiveReq := b.archiveRequest(req)
	result.CommandLine, _ = b.packager.CommandLine(archiveReq)
	packaged, err := b.packager.Run(ctx, archiveReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		b.record(ctx, logger, result, history.StatusFailed, err)
		if b.cfg.Archive.IgnoreFailures && errors.Is(err, archive.ErrArchiverFailed) {
			logger.Warn("packaging failed; continuing because archive.ignore_failures is set", logging.Error(err))
			result.PackageErr = err
			return result, nil
		}
		return nil, fmt.Errorf("package release: %w", err)
	}
	result.Archive = packaged
	b.record(ctx, logger, result, history.StatusPackaged, nil)

	logger.Info("release packaged",
		logging.String("archive", packaged.Path),
		logging.Int64("size_bytes", packaged.Size),
		logging.Int("entries", packaged.Entries),
		logging.Duration("elapsed", b.now().Sub(started)),
	)
	return result, nil
}

// Plan computes what Run would do for req without writing anything.
func (b *Builder) Plan(ctx context.Context, req Request) (*Result, error) {
	result := b.newResult(req)
	result.DryRun = true
	logger := b.buildLogger(result)

	doc, err := manifest.Load(result.ManifestPath)
	if err != nil {
		return nil, err
	}
	result.Change, err = manifest.Apply(doc, req.Target, req.Version)
	if err != nil {
		return nil, err
	}
	b.compareWithHistory(ctx, logger, result)

	result.CommandLine, err = b.packager.CommandLine(b.archiveRequest(req))
	if err != nil {
		return nil, err
	}
	logger.Debug("dry run planned", logging.String("command", result.CommandLine))
	return result, nil
}

func (b *Builder) newResult(req Request) *Result {
	return &Result{
		BuildID:      uuid.NewString(),
		Request:      req,
		ManifestPath: b.cfg.Paths.Manifest,
		ArchivePath:  b.cfg.ArchivePath(req.Target.String(), req.Version),
	}
}

func (b *Builder) buildLogger(result *Result) *slog.Logger {
	return b.logger.With(
		logging.String(logging.FieldBuildID, result.BuildID),
		logging.String(logging.FieldTarget, result.Request.Target.String()),
		logging.String(logging.FieldVersion, result.Request.Version),
	)
}

func (b *Builder) archiveRequest(req Request) archive.Request {
	members := make([]string, 0, len(b.cfg.Package.Resources)+1)
	members = append(members, b.cfg.Paths.Manifest)
	members = append(members, b.cfg.ResourcePaths()...)
	return archive.Request{
		Dir:     b.cfg.Paths.ProjectDir,
		Archive: b.cfg.ArchivePath(req.Target.String(), req.Version),
		Members: members,
	}
}

func (b *Builder) acquireLock() (func(), error) {
	path := b.cfg.Paths.LockFile
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire build lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrBuildLocked, path)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			b.logger.Warn("failed to release build lock", logging.String("lock", path), logging.Error(err))
		}
	}, nil
}

// compareWithHistory warns about downgrades and rebuilds. Ledger problems
// never fail the build.
func (b *Builder) compareWithHistory(ctx context.Context, logger *slog.Logger, result *Result) {
	if b.history == nil {
		return
	}
	previous, err := b.history.Latest(ctx, result.Request.Target.String())
	if err != nil {
		logger.Warn("history lookup failed", logging.Error(err))
		return
	}
	comparison, err := history.Compare(previous, result.Request.Version)
	if err != nil {
		logger.Warn("version comparison failed", logging.Error(err))
		return
	}
	result.Previous = previous
	result.Comparison = comparison

	switch comparison {
	case history.Downgrade:
		logger.Warn("version is lower than the newest packaged release",
			logging.String("previous_version", previous.Version),
			logging.String("previous_build_id", previous.BuildID),
		)
	case history.Rebuild:
		logger.Warn("version was already packaged; archive will be replaced",
			logging.String("previous_build_id", previous.BuildID),
			logging.Any("packaged_at", previous.CreatedAt),
		)
	}
}

func (b *Builder) record(ctx context.Context, logger *slog.Logger, result *Result, status history.Status, buildErr error) {
	if b.history == nil {
		return
	}
	rel := history.Release{
		BuildID:         result.BuildID,
		Target:          result.Request.Target.String(),
		Version:         result.Request.Version,
		ManifestVersion: result.Change.ManifestVersion,
		ArchivePath:     result.ArchivePath,
		Status:          status,
		SizeBytes:       result.Archive.Size,
		SHA256:          result.Archive.SHA256,
		CreatedAt:       b.now(),
	}
	if buildErr != nil {
		rel.ErrorMessage = buildErr.Error()
	}
	saved, err := b.history.Record(ctx, rel)
	if err != nil {
		logger.Warn("failed to record release history", logging.Error(err))
		return
	}
	result.Record = saved
}
