package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	outputFormat string
	configPath   string
	verbose      bool
	quiet        bool

	// Build info, set by Execute
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

func Execute(version, commit, date string) error {
	appVersion, appCommit, appDate = version, commit, date

	var headless bool
	flags := &updateFlags{}

	rootCmd := &cobra.Command{
		Use:   "betterfox-updater",
		Short: "Keep a Firefox profile's Betterfox user.js up to date",
		Long: `betterfox-updater compares the Betterfox user.js in a Firefox profile with
the upstream release, backs the profile up and installs the new file.

Run with --update for a headless update, or use the subcommands below.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !headless {
				return cmd.Help()
			}
			return runUpdate(cmd, flags)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml, toml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the settings file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	// Headless mode
	rootCmd.Flags().BoolVar(&headless, "update", false, "Run a headless update")
	flags.register(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newBackupCmd())
	rootCmd.AddCommand(newProfilesCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newNetworkCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml", "toml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd.Execute()
}
