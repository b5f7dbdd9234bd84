package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePackage()
	c.normalizeArchive()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		c.Paths.ProjectDir = defaultProjectDir
	}

	var err error
	if c.Paths.ProjectDir, err = expandPath(strings.TrimSpace(c.Paths.ProjectDir)); err != nil {
		return fmt.Errorf("paths.project_dir: %w", err)
	}

	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.manifest", &c.Paths.Manifest, defaultManifest},
		{"paths.releases_dir", &c.Paths.ReleasesDir, defaultReleasesDir},
		{"paths.lock_file", &c.Paths.LockFile, defaultLockFile},
	}
	for _, field := range fields {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			trimmed = field.fallback
		}
		if *field.value, err = expandPath(c.resolve(trimmed)); err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
	}
	return nil
}

func (c *Config) normalizePackage() {
	c.Package.Name = strings.TrimSpace(c.Package.Name)
	if c.Package.Name == "" {
		c.Package.Name = defaultPackageName
	}
	resources := make([]string, 0, len(c.Package.Resources))
	seen := make(map[string]struct{}, len(c.Package.Resources))
	for _, res := range c.Package.Resources {
		trimmed := strings.TrimSpace(res)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		resources = append(resources, trimmed)
	}
	c.Package.Resources = resources
}

func (c *Config) normalizeArchive() {
	if value, ok := os.LookupEnv("BEEBUILD_ARCHIVER"); ok && strings.TrimSpace(value) != "" {
		c.Archive.Command = value
	}
	c.Archive.Command = strings.TrimSpace(c.Archive.Command)
	if c.Archive.Command == "" {
		c.Archive.Command = defaultArchiveCommand
	}
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(c.resolve(strings.TrimSpace(c.History.Path))); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if file := strings.TrimSpace(c.Logging.File); file != "" {
		var err error
		if c.Logging.File, err = expandPath(c.resolve(file)); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}
