package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePackage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		return errors.New("history.path must be set when history.enabled is true")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.Manifest == c.Paths.ReleasesDir {
		return errors.New("paths.manifest and paths.releases_dir must differ")
	}
	if c.Paths.LockFile == c.Paths.Manifest {
		return errors.New("paths.lock_file must not point at the manifest")
	}
	return nil
}

func (c *Config) validatePackage() error {
	if c.Package.Name == "" {
		return errors.New("package.name must be set")
	}
	if strings.ContainsAny(c.Package.Name, `/\`) {
		return fmt.Errorf("package.name %q must not contain path separators", c.Package.Name)
	}
	for _, res := range c.Package.Resources {
		if filepath.Clean(res) == filepath.Clean(c.ProjectRelative(c.Paths.Manifest)) {
			return fmt.Errorf("package.resources must not list the manifest (%s); it is always packaged", res)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
