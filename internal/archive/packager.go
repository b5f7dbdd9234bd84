package archive

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"

	"beebuild/internal/fileutil"
	"beebuild/internal/logging"
)

// ErrArchiverFailed marks every failure attributable to the archiving utility.
var ErrArchiverFailed = errors.New("archiver failed")

const stderrTailLines = 5

// Request describes one archive to produce.
type Request struct {
	// Dir is the working directory the archiver runs in.
	Dir string
	// Archive is the absolute path of the archive to create.
	Archive string
	// Members are the files and directories to bundle, recursively.
	Members []string
}

// Result describes a produced archive.
type Result struct {
	Path     string
	Size     int64
	SHA256   string
	Entries  int
	Duration time.Duration
}

// Packager runs the configured archiving command.
type Packager struct {
	argv     []string
	logger   *slog.Logger
	progress io.Writer
}

// Option customizes a Packager.
type Option func(*Packager)

// WithLogger attaches a logger; archiver output lines are logged at debug.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Packager) {
		p.logger = logger
	}
}

// WithProgress renders a spinner on w while the archiver runs. A nil writer
// disables it.
func WithProgress(w io.Writer) Option {
	return func(p *Packager) {
		p.progress = w
	}
}

// NewPackager splits command into words using shell rules ("zip -q",
// "$HOME/bin/zip") and returns a packager for it.
func NewPackager(command string, opts ...Option) (*Packager, error) {
	argv, err := shell.Fields(command, nil)
	if err != nil {
		return nil, fmt.Errorf("parse archive command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("archive command %q is empty", command)
	}
	p := &Packager{argv: argv}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	return p, nil
}

// Program returns the archiver executable name.
func (p *Packager) Program() string {
	return p.argv[0]
}

// Command returns the full argument vector for req:
// <archiver...> <archive> -r <members...>.
func (p *Packager) Command(req Request) []string {
	args := make([]string, 0, len(p.argv)+2+len(req.Members))
	args = append(args, p.argv...)
	args = append(args, relativeTo(req.Dir, req.Archive), "-r")
	for _, member := range req.Members {
		args = append(args, relativeTo(req.Dir, member))
	}
	return args
}

// CommandLine renders Command(req) as a copy-pasteable shell line.
func (p *Packager) CommandLine(req Request) (string, error) {
	words := p.Command(req)
	quoted := make([]string, 0, len(words))
	for _, word := range words {
		q, err := syntax.Quote(word, syntax.LangBash)
		if err != nil {
			return "", fmt.Errorf("quote %q: %w", word, err)
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " "), nil
}

// Run removes any stale archive at req.Archive, runs the archiver, and
// verifies the archive exists afterwards.
func (p *Packager) Run(ctx context.Context, req Request) (Result, error) {
	if err := os.Remove(req.Archive); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, fmt.Errorf("remove stale archive: %w", err)
	} else if err == nil {
		p.logger.Info("removed stale archive", logging.String("path", req.Archive))
	}

	words := p.Command(req)
	cmd := exec.CommandContext(ctx, words[0], words[1:]...)
	cmd.Dir = req.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("archiver stdout: %w", err)
	}

	p.logger.Debug("starting archiver", logging.String("command", strings.Join(words, " ")), logging.String("dir", req.Dir))
	started := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("%w: start %s: %w", ErrArchiverFailed, p.Program(), err)
	}

	bar := p.newSpinner(filepath.Base(req.Archive))
	entries := 0
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entries++
		p.logger.Debug("archiver output", logging.String("line", line))
		_ = bar.Add(1)
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Keep draining so the archiver is not blocked on a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()
	_ = bar.Finish()

	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, p.describeFailure(waitErr, stderr.String())
	}
	if scanErr != nil {
		return Result{}, fmt.Errorf("read archiver output: %w", scanErr)
	}

	sum, size, err := fileutil.Digest(req.Archive)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s produced no archive at %s", ErrArchiverFailed, p.Program(), req.Archive)
		}
		return Result{}, fmt.Errorf("inspect archive: %w", err)
	}

	return Result{
		Path:     req.Archive,
		Size:     size,
		SHA256:   sum,
		Entries:  entries,
		Duration: time.Since(started),
	}, nil
}

func (p *Packager) describeFailure(waitErr error, stderr string) error {
	detail := tailLines(stderr, stderrTailLines)
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if detail != "" {
			return fmt.Errorf("%w: %s exited with status %d: %s", ErrArchiverFailed, p.Program(), exitErr.ExitCode(), detail)
		}
		return fmt.Errorf("%w: %s exited with status %d", ErrArchiverFailed, p.Program(), exitErr.ExitCode())
	}
	return fmt.Errorf("%w: %s: %w", ErrArchiverFailed, p.Program(), waitErr)
}

func (p *Packager) newSpinner(description string) *progressbar.ProgressBar {
	if p.progress == nil {
		return progressbar.NewOptions(-1, progressbar.OptionSetWriter(io.Discard), progressbar.OptionSetVisibility(false))
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(p.progress),
		progressbar.OptionSetDescription("packaging "+description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func relativeTo(dir, path string) string {
	if dir == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func tailLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
