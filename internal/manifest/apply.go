package manifest

import (
	"fmt"

	"beebuild/internal/target"
)

// Change summarizes the fields Apply rewrote.
type Change struct {
	PreviousManifestVersion int
	PreviousVersion         string
	ManifestVersion         int
	Version                 string
}

// Apply stamps the target's schema revision and the release version onto doc.
// It performs no I/O.
func Apply(doc *Document, tgt target.Target, version string) (Change, error) {
	if !tgt.Valid() {
		return Change{}, fmt.Errorf("apply version: unsupported target %v", tgt)
	}
	change := Change{
		ManifestVersion: tgt.ManifestVersion(),
		Version:         version,
	}
	change.PreviousManifestVersion, _ = doc.ManifestVersion()
	change.PreviousVersion, _ = doc.Version()

	doc.SetManifestVersion(change.ManifestVersion)
	if err := doc.SetVersion(version); err != nil {
		return Change{}, err
	}
	return change, nil
}
