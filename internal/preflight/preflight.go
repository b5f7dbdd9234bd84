package preflight

import (
	"beebuild/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional results never fail the overall check.
	Optional bool
}

// RunAll executes every applicable preflight check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckArchiver(cfg.Archive.Command))
	results = append(results, CheckManifest(cfg.Paths.Manifest))
	for i, path := range cfg.ResourcePaths() {
		results = append(results, CheckResource(cfg.Package.Resources[i], path))
	}
	results = append(results, CheckWritableDirectory("Releases directory", cfg.Paths.ReleasesDir))
	if cfg.History.Enabled {
		history := CheckWritableDirectory("History ledger", parentDir(cfg.History.Path))
		history.Optional = true
		results = append(results, history)
	}
	return results
}

// Failed reports whether any required result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
