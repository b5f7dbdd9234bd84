package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths locates the extension checkout and the files the builder touches.
// Relative values are resolved against ProjectDir.
type Paths struct {
	ProjectDir  string `toml:"project_dir"`
	Manifest    string `toml:"manifest"`
	ReleasesDir string `toml:"releases_dir"`
	LockFile    string `toml:"lock_file"`
}

// Package describes the release archive contents.
type Package struct {
	Name      string   `toml:"name"`
	Resources []string `toml:"resources"`
}

// Archive configures the external archiving utility.
type Archive struct {
	// Command is split into words with shell quoting rules, e.g. "zip -q".
	Command string `toml:"command"`
	// IgnoreFailures restores fire-and-forget packaging: a failing archiver is
	// logged but the build still succeeds.
	IgnoreFailures bool `toml:"ignore_failures"`
}

// History configures the release ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for beebuild.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Package Package `toml:"package"`
	Archive Archive `toml:"archive"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(userConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config
// has every path expanded to an absolute location.
func Load(path string) (*Config, string, bool, error) {
	return LoadWithOverrides(path, "")
}

// LoadWithOverrides behaves like Load and, when projectDir is non-empty, uses
// it in place of paths.project_dir before relative paths are resolved.
func LoadWithOverrides(path, projectDir string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if strings.TrimSpace(projectDir) != "" {
		cfg.Paths.ProjectDir = projectDir
	} else if value, ok := os.LookupEnv("BEEBUILD_PROJECT_DIR"); ok && strings.TrimSpace(value) != "" {
		if cfg.Paths.ProjectDir == "" || cfg.Paths.ProjectDir == defaultProjectDir {
			cfg.Paths.ProjectDir = strings.TrimSpace(value)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	userPath, err := expandPath(userConfigPath)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(userPath); err == nil && !info.IsDir() {
		return userPath, true, nil
	}

	return projectPath, false, nil
}

// ArchiveName returns the release file name for a target/version pair, e.g.
// spelling-bee-help-chrome-1.3.zip.
func (c *Config) ArchiveName(target, version string) string {
	return fmt.Sprintf("%s-%s-%s.zip", c.Package.Name, target, version)
}

// ArchivePath returns the absolute location of the release archive.
func (c *Config) ArchivePath(target, version string) string {
	return filepath.Join(c.Paths.ReleasesDir, c.ArchiveName(target, version))
}

// ResourcePaths returns the absolute paths of the packaged resources.
func (c *Config) ResourcePaths() []string {
	out := make([]string, 0, len(c.Package.Resources))
	for _, res := range c.Package.Resources {
		out = append(out, c.resolve(res))
	}
	return out
}

// ProjectRelative expresses path relative to the project directory when it
// lives inside it, so archive entries do not carry absolute prefixes.
func (c *Config) ProjectRelative(path string) string {
	rel, err := filepath.Rel(c.Paths.ProjectDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// EnsureReleasesDir creates the releases directory if needed.
func (c *Config) EnsureReleasesDir() error {
	if err := os.MkdirAll(c.Paths.ReleasesDir, 0o755); err != nil {
		return fmt.Errorf("create releases directory %q: %w", c.Paths.ReleasesDir, err)
	}
	return nil
}

func (c *Config) resolve(pathValue string) string {
	if pathValue == "" || filepath.IsAbs(pathValue) || strings.HasPrefix(pathValue, "~") {
		return pathValue
	}
	return filepath.Join(c.Paths.ProjectDir, pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
