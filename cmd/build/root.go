package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"beebuild/internal/history"
	"beebuild/internal/logging"
	"beebuild/internal/release"
)

func newRootCommand(args []string) *cobra.Command {
	if args == nil {
		args = []string{}
	}

	var configFlag string
	var projectFlag string
	var dryRun bool

	ctx := newCommandContext(&configFlag, &projectFlag)

	rootCmd := &cobra.Command{
		Use:           "build <target> <version>",
		Short:         "Package the Spelling Bee Help extension for a browser store",
		Example:       "  build chrome 2.4\n  build --dry-run firefox 0.1",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			_, err := release.ParseArgs(args)
			return err
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := release.ParseArgs(args)
			if err != nil {
				return err
			}
			return runBuild(cmd, ctx, req, dryRun)
		},
	}
	rootCmd.SetArgs(args)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetFlagErrorFunc(rootFlagError(args))
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:         "help",
		Short:       "Show usage",
		Hidden:      true,
		Args:        subcommandArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Root().Help()
		},
	})

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "C", "", "Extension project directory (overrides paths.project_dir)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the manifest changes and archiver command without writing anything")

	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd
}

func runBuild(cmd *cobra.Command, ctx *commandContext, req release.Request, dryRun bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()
	logger, err := ctx.logger(stderr)
	if err != nil {
		return err
	}

	opts := []release.Option{release.WithLogger(logger)}
	if shouldColorize(stderr) {
		opts = append(opts, release.WithProgress(stderr))
	}
	store, err := ctx.openHistory(cmd.Context(), dryRun)
	if err != nil {
		logger.Warn("release history unavailable", logging.Error(err))
	} else if store != nil {
		defer store.Close()
		opts = append(opts, release.WithHistory(store))
	}

	builder, err := release.NewBuilder(cfg, opts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dryRun {
		result, err := builder.Plan(cmd.Context(), req)
		if err != nil {
			return err
		}
		printPlan(out, result)
		return nil
	}

	result, err := builder.Run(cmd.Context(), req)
	if err != nil {
		return err
	}
	printSummary(out, result)
	return nil
}

func printPlan(out io.Writer, result *release.Result) {
	fmt.Fprintln(out, "Dry run: nothing was written.")
	rows := [][]string{
		{"Target", result.Request.Target.DisplayName()},
		{"Manifest", result.ManifestPath},
		{"manifest_version", transition(fmt.Sprint(result.Change.PreviousManifestVersion), fmt.Sprint(result.Change.ManifestVersion))},
		{"version", transition(result.Change.PreviousVersion, result.Change.Version)},
		{"Archive", result.ArchivePath},
		{"Command", result.CommandLine},
	}
	if line := historyLine(result); line != "" {
		rows = append(rows, []string{"History", line})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}

func printSummary(out io.Writer, result *release.Result) {
	rows := [][]string{
		{"Target", result.Request.Target.DisplayName()},
		{"Version", result.Request.Version},
		{"Manifest version", fmt.Sprint(result.Change.ManifestVersion)},
		{"Archive", result.ArchivePath},
	}
	if result.PackageErr != nil {
		rows = append(rows, []string{"Packaging", "failed (ignored): " + result.PackageErr.Error()})
	} else {
		rows = append(rows,
			[]string{"Size", humanize.Bytes(uint64(result.Archive.Size))},
			[]string{"Entries", humanize.Comma(int64(result.Archive.Entries))},
			[]string{"SHA-256", result.Archive.SHA256},
		)
	}
	if line := historyLine(result); line != "" {
		rows = append(rows, []string{"History", line})
	}
	rows = append(rows, []string{"Build ID", result.BuildID})
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}

func historyLine(result *release.Result) string {
	if result.Previous == nil {
		return ""
	}
	switch result.Comparison {
	case history.Downgrade:
		return fmt.Sprintf("downgrade from %s (packaged %s)", result.Previous.Version, humanize.Time(result.Previous.CreatedAt))
	case history.Rebuild:
		return fmt.Sprintf("rebuild of %s (packaged %s)", result.Previous.Version, humanize.Time(result.Previous.CreatedAt))
	default:
		return fmt.Sprintf("upgrade from %s", result.Previous.Version)
	}
}

func transition(before, after string) string {
	if before == "" || before == "0" {
		before = "(unset)"
	}
	if before == after {
		return after + " (unchanged)"
	}
	return before + " -> " + after
}
