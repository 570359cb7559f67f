package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cleanupCmd.Flags().Int("older-than", 30, "Delete resources last scraped more than this many days ago.")
	cleanupCmd.Flags().Bool("dry-run", false, "Only count the resources that would be deleted.")
	rootCmd.AddCommand(cleanupCmd)
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Removes inactive and stale resources.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		days, _ := cmd.Flags().GetInt("older-than")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if days < 1 || days > 365 {
			return fmt.Errorf("--older-than must be between 1 and 365, got %d", days)
		}

		stack, err := openResources(ctx)
		if err != nil {
			return err
		}
		defer stack.Close()

		result, err := stack.Scraping.Cleanup(ctx, days, dryRun)
		if err != nil {
			return err
		}
		if result.DryRun {
			fmt.Printf("Would delete %d resources (cutoff %s).\n", result.Count, result.Cutoff.Local().Format("2006-01-02"))
			return nil
		}
		fmt.Printf("Deleted %d old/inactive resources.\n", result.Count)
		return nil
	},
}
