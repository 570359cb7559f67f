package cmd

import (
	"fmt"

	"pathwise-backend/internal/app"
	"pathwise-backend/services/auth"
	"pathwise-backend/services/discussions"

	"github.com/spf13/cobra"
)

func init() {
	seedDiscussionsCmd.Flags().Bool("replace", false, "Delete existing discussions and comments first.")
	seedCmd.AddCommand(seedAdminCmd, seedDiscussionsCmd)
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seeds the auth database.",
}

var seedAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: fmt.Sprintf("Creates the %s admin account if no admin exists.", auth.AdminEmail),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := app.LoadAuthd(configOr(app.AuthdConfigFile))
		if err != nil {
			return err
		}
		db, err := app.OpenAuthdDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		created, err := auth.NewService(db, auth.Options{}).SeedAdmin(ctx)
		if err != nil {
			return err
		}
		if !created {
			fmt.Println("An admin account already exists.")
			return nil
		}
		fmt.Printf("Created admin %s with password %s, change it after logging in.\n", auth.AdminEmail, auth.AdminPassword)
		return nil
	},
}

var seedDiscussionsCmd = &cobra.Command{
	Use:   "discussions",
	Short: "Inserts the sample discussions when the board is empty.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		replace, err := cmd.Flags().GetBool("replace")
		if err != nil {
			return err
		}
		cfg, err := app.LoadAuthd(configOr(app.AuthdConfigFile))
		if err != nil {
			return err
		}
		db, err := app.OpenAuthdDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		count, err := discussions.NewService(db).Seed(ctx, replace)
		if err != nil {
			return err
		}
		if count == 0 {
			fmt.Println("Discussions already exist, pass --replace to reseed.")
			return nil
		}
		fmt.Printf("Seeded %d discussions.\n", count)
		return nil
	},
}
