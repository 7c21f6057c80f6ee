package cmd

import (
	"context"
	"fmt"

	"waba-integration/internal/app"
	"waba-integration/internal/database"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage integration settings",
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting (the access token is encrypted when a secret is configured)",
	Long: fmt.Sprintf("Keys: %s, %s, %s, %s, %s, %s, %s, %s.",
		database.SettingEnabled, database.SettingAccessToken, database.SettingAPIBaseURL,
		database.SettingAPIVersion, database.SettingPhoneNumberID, database.SettingVerifyToken,
		database.SettingAutoDownloadImages, database.SettingAutoDownloadAudio),
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsShowCmd)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.SetSetting(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
		return nil
	})
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		s, err := a.Settings.Load(ctx)
		if err != nil {
			return err
		}

		token := "(not set)"
		if s.AccessToken != "" {
			token = "(set)"
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-22s %v\n", database.SettingEnabled, s.Enabled)
		fmt.Fprintf(w, "%-22s %s\n", database.SettingAccessToken, token)
		fmt.Fprintf(w, "%-22s %s\n", "API_BASE", s.APIBase())
		fmt.Fprintf(w, "%-22s %s\n", database.SettingPhoneNumberID, s.PhoneNumberID)
		fmt.Fprintf(w, "%-22s %v\n", database.SettingAutoDownloadImages, s.AutoDownloadImages)
		fmt.Fprintf(w, "%-22s %v\n", database.SettingAutoDownloadAudio, s.AutoDownloadAudio)
		return nil
	})
}
