package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"beebuild/internal/archive"
	"beebuild/internal/deps"
	"beebuild/internal/manifest"
)

// CheckArchiver verifies the configured archiving command resolves on PATH.
func CheckArchiver(command string) Result {
	const name = "Archiver"

	packager, err := archive.NewPackager(command)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	status := deps.Check(deps.Requirement{
		Name:        name,
		Command:     packager.Program(),
		Description: "Required to package releases",
	})
	if !status.Available {
		return Result{Name: name, Detail: status.Detail}
	}
	return Result{Name: name, Passed: true, Detail: status.Path}
}

// CheckManifest verifies the manifest exists and parses as a JSON object.
func CheckManifest(path string) Result {
	const name = "Manifest"

	doc, err := manifest.Load(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	detail := path
	if version, ok := doc.Version(); ok {
		detail = fmt.Sprintf("%s (version %s)", path, version)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckResource verifies a packaged file or directory exists.
func CheckResource(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Passed: true, Detail: path + " (directory)"}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritableDirectory passes when path is an accessible directory, or when
// it is missing but its nearest existing ancestor allows creating it.
func CheckWritableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return CheckDirectoryAccess(name, path)
	}
	ancestor := nearestExisting(path)
	if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

func nearestExisting(path string) string {
	current := filepath.Clean(path)
	for {
		if _, err := os.Stat(current); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}
		current = parent
	}
}

func parentDir(path string) string {
	return filepath.Dir(filepath.Clean(path))
}
