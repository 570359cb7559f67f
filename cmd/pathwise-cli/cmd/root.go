package cmd

import (
	"context"
	"fmt"
	"os"

	"pathwise-backend/internal/app"
	"pathwise-backend/lib/telemetry"
	"pathwise-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pathwise-cli",
	Short: "pathwise-cli runs maintenance tasks against the Pathwise databases.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "",
		fmt.Sprintf("Config file, defaults to %s or %s depending on the command.", app.AuthdConfigFile, app.ResourcesdConfigFile),
	)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
}

func configOr(def string) string {
	if configPath != "" {
		return configPath
	}
	return def
}

// openResources builds the resources stack, the caller closes it.
func openResources(ctx context.Context) (app.Resourcesd, error) {
	cfg, err := app.LoadResourcesd(configOr(app.ResourcesdConfigFile))
	if err != nil {
		return app.Resourcesd{}, err
	}
	return app.NewResourcesd(ctx, cfg, nil)
}

func Execute() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
