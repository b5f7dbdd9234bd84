package config

const (
	defaultProjectDir     = "."
	defaultManifest       = "manifest.json"
	defaultReleasesDir    = "releases"
	defaultLockFile       = ".beebuild.lock"
	defaultPackageName    = "spelling-bee-help"
	defaultArchiveCommand = "zip"
	defaultHistoryPath    = "~/.local/share/beebuild/history.db"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	projectConfigName     = "beebuild.toml"
	userConfigPath        = "~/.config/beebuild/config.toml"
)

var defaultResources = []string{"SpellingBeeHelp.js", "img"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	resources := make([]string, len(defaultResources))
	copy(resources, defaultResources)
	return Config{
		Paths: Paths{
			ProjectDir:  defaultProjectDir,
			Manifest:    defaultManifest,
			ReleasesDir: defaultReleasesDir,
			LockFile:    defaultLockFile,
		},
		Package: Package{
			Name:      defaultPackageName,
			Resources: resources,
		},
		Archive: Archive{
			Command: defaultArchiveCommand,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
