package release

import (
	"fmt"
	"regexp"
	"strings"

	"beebuild/internal/target"
)

// versionPattern accepts exactly two dot-separated runs of ASCII digits.
var versionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+$`)

// Request is a validated build invocation.
type Request struct {
	Target  target.Target
	Version string
}

// UsageError reports invalid command-line arguments. Lines are printed in
// order: the problem, the usage hint, then any notes.
type UsageError struct {
	Lines []string
}

func (e *UsageError) Error() string {
	return strings.Join(e.Lines, "\n")
}

// UsageHint is the one-line synopsis printed after every usage error.
func UsageHint() string {
	return "Correct usage: build " + target.UsageList() + " <version #>"
}

func newUsageError(problem string, notes ...string) *UsageError {
	lines := make([]string, 0, len(notes)+2)
	lines = append(lines, problem, UsageHint())
	lines = append(lines, notes...)
	return &UsageError{Lines: lines}
}

// ParseArgs validates the positional arguments <target> <version>.
func ParseArgs(args []string) (Request, error) {
	if len(args) != 2 {
		return Request{}, newUsageError("Invalid number of arguments.")
	}
	tgt, ok := target.Parse(args[0])
	if !ok {
		return Request{}, newUsageError(fmt.Sprintf("First argument invalid: '%s'", args[0]))
	}
	if !ValidVersion(args[1]) {
		return Request{}, newUsageError(
			fmt.Sprintf("Second argument invalid version number: '%s'", args[1]),
			"Version numbers must look like '1.3' or '17.62'",
		)
	}
	return Request{Target: tgt, Version: args[1]}, nil
}

// ValidVersion reports whether version looks like "1.3" or "17.62".
func ValidVersion(version string) bool {
	return versionPattern.MatchString(version)
}
