package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/adamancini/betterfox-updater/internal/settings"
	"github.com/adamancini/betterfox-updater/internal/workflow"
)

// updateFlags override the saved settings for one run.
type updateFlags struct {
	profile   string
	backupDir string
	noBackup  bool
	noRestart bool
}

func (f *updateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.profile, "profile", "", "Firefox profile directory")
	cmd.Flags().StringVar(&f.backupDir, "backup", "", "Backup folder (enables the backup)")
	cmd.Flags().BoolVar(&f.noBackup, "no-backup", false, "Skip the profile backup")
	cmd.Flags().BoolVar(&f.noRestart, "no-restart", false, "Do not restart Firefox after the update")
	cmd.MarkFlagsMutuallyExclusive("backup", "no-backup")
}

// options merges the flags with the saved settings.
func (f *updateFlags) options(conf settings.Settings, profilePath string) workflow.Options {
	opts := workflow.Options{
		ProfilePath:   profilePath,
		BackupFolder:  conf.BackupFolder,
		AutoBackup:    conf.AutoBackup,
		AutoRestart:   conf.AutoRestart && !f.noRestart,
		Compress:      conf.CompressBackup,
		RetentionDays: conf.RetentionDays,
	}
	if f.backupDir != "" {
		opts.BackupFolder = f.backupDir
		opts.AutoBackup = true
	}
	if f.noBackup {
		opts.AutoBackup = false
	}
	return opts
}

func newUpdateCmd() *cobra.Command {
	flags := &updateFlags{}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the profile's user.js",
		Long: `Update fetches the latest Betterfox user.js and installs it when it is newer
than the one in the profile.

Before writing, Firefox is closed and the profile is backed up (unless
disabled). Firefox is restarted afterwards when general.auto_restart is on.

Exit codes:
  0  updated or already up to date
  1  download or update failure
  2  invalid profile path`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, flags)
		},
	}

	flags.register(cmd)

	return cmd
}

func runUpdate(cmd *cobra.Command, flags *updateFlags) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	profilePath, err := a.resolveProfile(flags.profile)
	if err != nil {
		return err
	}
	opts := flags.options(a.conf, profilePath)

	res, err := a.run(cmd, func(ctx context.Context, r workflow.Reporter) workflow.Result {
		return a.flow.Update(ctx, opts, r)
	})
	if err != nil {
		return err
	}
	return a.finish(res, nil)
}
