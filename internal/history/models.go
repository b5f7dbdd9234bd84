package history

import (
	"time"

	"github.com/Masterminds/semver/v3"
)

// Status records how the packaging step ended.
type Status string

const (
	StatusPackaged Status = "packaged"
	StatusFailed   Status = "failed"
)

// Release is one ledger row.
type Release struct {
	ID              int64
	BuildID         string
	Target          string
	Version         string
	ManifestVersion int
	ArchivePath     string
	Status          Status
	SizeBytes       int64
	SHA256          string
	ErrorMessage    string
	CreatedAt       time.Time
}

// Filter narrows List results.
type Filter struct {
	Target string
	Limit  int
}

// Comparison classifies a requested version against the newest recorded one.
type Comparison int

const (
	// FirstRelease means no packaged release exists for the target.
	FirstRelease Comparison = iota
	Upgrade
	Rebuild
	Downgrade
)

func (c Comparison) String() string {
	switch c {
	case Upgrade:
		return "upgrade"
	case Rebuild:
		return "rebuild"
	case Downgrade:
		return "downgrade"
	default:
		return "first"
	}
}

// Compare orders version against previous (nil means no prior release).
// Versions are dotted numbers, so semver's lenient parser treats "1.3" as 1.3.0.
func Compare(previous *Release, version string) (Comparison, error) {
	if previous == nil {
		return FirstRelease, nil
	}
	next, err := semver.NewVersion(version)
	if err != nil {
		return FirstRelease, err
	}
	prior, err := semver.NewVersion(previous.Version)
	if err != nil {
		return FirstRelease, err
	}
	switch next.Compare(prior) {
	case 1:
		return Upgrade, nil
	case 0:
		return Rebuild, nil
	default:
		return Downgrade, nil
	}
}
