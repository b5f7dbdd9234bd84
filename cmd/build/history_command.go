package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"beebuild/internal/history"
	"beebuild/internal/target"
)

const buildIDDisplayLength = 8

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var targetFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previously packaged releases",
		Args:  subcommandArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := history.Filter{Limit: limit}
			if name := strings.TrimSpace(targetFlag); name != "" {
				tgt, ok := target.Parse(name)
				if !ok {
					return fmt.Errorf("unknown target %q (want %s)", name, target.UsageList())
				}
				filter.Target = tgt.String()
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("release history is disabled (history.enabled = false in %s)", ctx.configPath)
			}
			store, err := ctx.openHistory(cmd.Context(), true)
			if err != nil {
				return fmt.Errorf("open release history: %w", err)
			}
			out := cmd.OutOrStdout()
			if store == nil {
				fmt.Fprintln(out, "No releases recorded")
				return nil
			}
			defer store.Close()

			releases, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(releases) == 0 {
				fmt.Fprintln(out, "No releases recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(releases))
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetFlag, "target", "t", "", "Only show releases for this target")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of releases to show (0 for all)")
	return cmd
}

func renderHistoryTable(releases []*history.Release) string {
	headers := []string{"Built", "Target", "Version", "Manifest", "Status", "Size", "Build"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft}
	rows := make([][]string, 0, len(releases))
	for _, rel := range releases {
		size := "-"
		if rel.Status == history.StatusPackaged {
			size = humanize.Bytes(uint64(rel.SizeBytes))
		}
		status := string(rel.Status)
		if rel.ErrorMessage != "" {
			status += ": " + truncate(rel.ErrorMessage, 40)
		}
		rows = append(rows, []string{
			humanize.Time(rel.CreatedAt),
			rel.Target,
			rel.Version,
			fmt.Sprint(rel.ManifestVersion),
			status,
			size,
			truncate(rel.BuildID, buildIDDisplayLength),
		})
	}
	return renderTable(headers, rows, aligns)
}

func truncate(value string, n int) string {
	runes := []rune(value)
	if len(runes) <= n {
		return value
	}
	return string(runes[:n])
}
