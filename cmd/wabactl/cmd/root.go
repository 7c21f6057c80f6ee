package cmd

import (
	"context"

	"waba-integration/internal/app"
	"waba-integration/internal/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wabactl",
	Short: "Operate the WhatsApp Business API integration",
	Long: `wabactl runs message operations (send, upload, download, mark-seen)
against the configured database and provider, and manages settings.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(markSeenCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(dbCmd)
}

// withApp opens the application for the duration of one command.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := app.New(config.LoadConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, a)
}
