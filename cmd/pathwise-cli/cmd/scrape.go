package cmd

import (
	"fmt"
	"strings"

	"pathwise-backend/cmd/pathwise-cli/utils"
	"pathwise-backend/lib/textutil"
	"pathwise-backend/services/resources"
	"pathwise-backend/services/scraping"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	scrapeQueryCmd.Flags().String("domain", "", "Domain the resources belong to.")
	scrapeQueryCmd.Flags().Int("max", 50, "Maximum number of results.")
	scrapeQueryCmd.Flags().Bool("live", false, "Scrape the real sources instead of generating mock data.")

	scrapeUrlCmd.Flags().String("domain", "", "Domain of the resource, inferred when empty.")
	scrapeUrlCmd.Flags().String("skill", "", "Skill the resource teaches.")
	scrapeUrlCmd.Flags().Bool("live", false, "Fetch the page instead of generating a mock resource.")

	scrapeJobCmd.Flags().String("domain", "", "Domain appended to the search query.")
	scrapeJobCmd.Flags().Int("max-pages", 5, "Links followed per source.")

	scrapeCmd.AddCommand(scrapeQueryCmd, scrapeUrlCmd, scrapeJobCmd)
	rootCmd.AddCommand(scrapeCmd)
}

func modeFlag(cmd *cobra.Command) (scraping.Mode, error) {
	live, err := cmd.Flags().GetBool("live")
	if err != nil {
		return "", err
	}
	if live {
		return scraping.ModeLive, nil
	}
	return "", nil
}

func printResources(list []resources.Resource) {
	if len(list) == 0 {
		fmt.Println("No new resources.")
		return
	}
	t := utils.NewTable("Title", "Type", "Difficulty", "Source", "URL")
	for _, r := range list {
		t.AppendRow(table.Row{
			textutil.Truncate(r.Title, 50),
			r.Type,
			r.Difficulty,
			r.Source,
			r.URL,
		})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d added", len(list))})
	t.Render()
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrapes resources into the catalog.",
}

var scrapeQueryCmd = &cobra.Command{
	Use:   "query <query>",
	Short: "Scrapes every source for a search query.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		domain, _ := cmd.Flags().GetString("domain")
		maxResults, _ := cmd.Flags().GetInt("max")
		mode, err := modeFlag(cmd)
		if err != nil {
			return err
		}

		stack, err := openResources(ctx)
		if err != nil {
			return err
		}
		defer stack.Close()

		opts := scraping.DefaultQueryOptions()
		opts.MaxResults = maxResults
		opts.Mode = mode
		added, err := stack.Scraping.ScrapeQuery(ctx, strings.Join(args, " "), domain, opts)
		if err != nil {
			return err
		}
		printResources(added)
		return nil
	},
}

var scrapeUrlCmd = &cobra.Command{
	Use:   "url <url>",
	Short: "Scrapes a single page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		domain, _ := cmd.Flags().GetString("domain")
		skill, _ := cmd.Flags().GetString("skill")
		mode, err := modeFlag(cmd)
		if err != nil {
			return err
		}

		stack, err := openResources(ctx)
		if err != nil {
			return err
		}
		defer stack.Close()

		added, err := stack.Scraping.ScrapeURL(ctx, args[0], domain, skill, mode)
		if err != nil {
			return err
		}
		printResources(added)
		return nil
	},
}

var scrapeJobCmd = &cobra.Command{
	Use:   "job <query>",
	Short: "Runs a tracked job that follows the search results of every link source.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		domain, _ := cmd.Flags().GetString("domain")
		maxPages, _ := cmd.Flags().GetInt("max-pages")

		stack, err := openResources(ctx)
		if err != nil {
			return err
		}
		defer stack.Close()

		result, err := stack.Scraping.RunJob(ctx, strings.Join(args, " "), domain, scraping.JobOptions{
			MaxPages: maxPages,
		})
		if err != nil {
			return err
		}

		t := utils.NewTable("Job", "Success", "Found", "Added", "Updated", "Errors")
		t.AppendRow(table.Row{
			result.JobID,
			result.Success,
			result.TotalFound,
			result.ResourcesAdded,
			result.ResourcesUpdated,
			result.Errors,
		})
		t.Render()
		if result.Error != "" {
			return fmt.Errorf("job %s failed: %s", result.JobID, result.Error)
		}
		return nil
	},
}
