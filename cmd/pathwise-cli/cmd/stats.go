package cmd

import (
	"fmt"
	"sort"

	"pathwise-backend/cmd/pathwise-cli/utils"
	"pathwise-backend/internal/app"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:       "stats [resources|sources|jobs]",
	Short:     "Prints catalog, source or job statistics.",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"resources", "sources", "jobs"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		kind := "resources"
		if len(args) > 0 {
			kind = args[0]
		}

		stack, err := openResources(ctx)
		if err != nil {
			return err
		}
		defer stack.Close()

		switch kind {
		case "sources":
			return printSourceStats(cmd, stack)
		case "jobs":
			return printJobStats(cmd, stack)
		}
		return printResourceStats(cmd, stack)
	},
}

func appendCounts(t table.Writer, group string, counts map[string]int64) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		t.AppendRow(table.Row{group, k, counts[k]})
	}
	t.AppendSeparator()
}

func printResourceStats(cmd *cobra.Command, stack app.Resourcesd) error {
	stats, err := stack.Resources.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Total active resources: %d\n", stats.TotalResources)
	fmt.Printf("Scraped in the last 24h: %d\n", stats.RecentlyScraped)

	t := utils.NewTable("Group", "Value", "Count")
	appendCounts(t, "type", stats.ByType)
	appendCounts(t, "difficulty", stats.ByDifficulty)
	appendCounts(t, "domain", stats.ByDomain)
	t.Render()
	return nil
}

func printSourceStats(cmd *cobra.Command, stack app.Resourcesd) error {
	stats, err := stack.Scraping.SourceStats(cmd.Context())
	if err != nil {
		return err
	}

	t := utils.NewTable("Source", "Resources", "Last scraped")
	for _, s := range stats.Sources {
		t.AppendRow(table.Row{s.Source, s.Count, utils.FormatTime(s.LastScraped)})
	}
	t.AppendFooter(table.Row{
		"Total",
		stats.TotalResources,
		fmt.Sprintf("%d in the last 24h", stats.RecentlyScraped),
	})
	t.Render()
	return nil
}

func printJobStats(cmd *cobra.Command, stack app.Resourcesd) error {
	stats, err := stack.Scraping.ScrapingStats(cmd.Context())
	if err != nil {
		return err
	}

	t := utils.NewTable("Status", "Jobs", "Avg duration", "Resources added")
	for _, s := range stats.JobStats {
		t.AppendRow(table.Row{s.Status, s.Count, fmt.Sprintf("%.0f ms", s.AvgDuration), s.TotalResources})
	}
	t.Render()

	if len(stats.RecentJobs) == 0 {
		return nil
	}
	recent := utils.NewTable("Job", "Status", "Started", "Added", "Errors")
	for _, job := range stats.RecentJobs {
		recent.AppendRow(table.Row{
			job.ID,
			job.Status,
			utils.FormatTime(job.StartedAt),
			job.ResourcesAdded,
			len(job.Errors),
		})
	}
	recent.Render()
	return nil
}
