package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"beebuild/internal/release"
)

var negativeNumberPattern = regexp.MustCompile(`^-[0-9]`)

// subcommandArgs treats positional arguments given to a subcommand as a build
// invocation, so "build check 1.0" reports 'check' as an invalid target.
func subcommandArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	var words []string
	for c := cmd; c.HasParent(); c = c.Parent() {
		words = append([]string{c.Name()}, words...)
	}
	if _, err := release.ParseArgs(append(words, args...)); err != nil {
		return err
	}
	return fmt.Errorf("unexpected arguments %q for %q", args, cmd.CommandPath())
}

// rootFlagError turns a root flag parse failure into a usage error. A
// negative number such as "-1.2" in the version position is reported as an
// invalid version rather than an unknown flag.
func rootFlagError(raw []string) func(*cobra.Command, error) error {
	return func(cmd *cobra.Command, err error) error {
		if cmd.HasParent() {
			return err
		}
		if positionals, numeric := recoverPositionals(cmd, raw); numeric {
			if _, usageErr := release.ParseArgs(positionals); usageErr != nil {
				return usageErr
			}
		}
		return &release.UsageError{Lines: []string{err.Error(), release.UsageHint()}}
	}
}

// recoverPositionals re-reads raw the way the root flag set would, keeping
// tokens that look like negative numbers as positionals. numeric is false
// when no such token was seen or an unknown flag makes the split ambiguous.
func recoverPositionals(cmd *cobra.Command, raw []string) (positionals []string, numeric bool) {
	flags := cmd.Flags()
	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		switch {
		case arg == "--":
			return append(positionals, raw[i+1:]...), numeric
		case negativeNumberPattern.MatchString(arg):
			positionals = append(positionals, arg)
			numeric = true
		case strings.HasPrefix(arg, "--"):
			name, _, inline := strings.Cut(arg[2:], "=")
			flag := flags.Lookup(name)
			if flag == nil {
				return nil, false
			}
			if !inline && flag.NoOptDefVal == "" {
				i++
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			flag := flags.ShorthandLookup(arg[1:2])
			if flag == nil {
				return nil, false
			}
			if len(arg) == 2 && flag.NoOptDefVal == "" {
				i++
			}
		default:
			positionals = append(positionals, arg)
		}
	}
	return positionals, numeric
}
