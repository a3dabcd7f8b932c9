package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adamancini/betterfox-updater/internal/interactive"
	"github.com/adamancini/betterfox-updater/internal/output"
	"github.com/adamancini/betterfox-updater/internal/workflow"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up and restore the Firefox profile",
		Long: `Backup manages snapshots of the Firefox profile.

Backups are stored in the folder set by general.backup_folder as
profile_backup_<timestamp> directories or .zip archives. Snapshots older
than general.retention_days are removed after each new backup.

Use 'betterfox-updater backup restore' to put a previous user.js back.`,
	}

	cmd.AddCommand(newBackupCreateCmd())
	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupRestoreCmd())
	cmd.AddCommand(newBackupDeleteCmd())
	cmd.AddCommand(newBackupPruneCmd())

	return cmd
}

func newBackupCreateCmd() *cobra.Command {
	var (
		profileFlag string
		folder      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new backup",
		Long:  `Create closes Firefox and copies the whole profile into the backup folder.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupCreate(cmd, profileFlag, folder)
		},
	}

	cmd.Flags().StringVar(&profileFlag, "profile", "", "Firefox profile directory")
	cmd.Flags().StringVar(&folder, "folder", "", "Backup folder (defaults to general.backup_folder)")

	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all backups",
		Long:  `List displays the backups in the backup folder, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupList()
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	var (
		yes         bool
		profileFlag string
	)

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore user.js from a backup",
		Long: `Restore copies user.js from a backup back into the profile.

Use 'latest' as the ID to restore the most recent backup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupRestore(cmd, args[0], profileFlag, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().StringVar(&profileFlag, "profile", "", "Firefox profile directory")

	return cmd
}

func newBackupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backup",
		Long:  `Delete removes a backup by its ID.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupDelete(args[0])
		},
	}
}

func newBackupPruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old backups",
		Long: `Prune deletes every entry in the backup folder older than the retention
period, in whole days.

By default, uses general.retention_days.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupPrune(cmd, days)
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (defaults to general.retention_days)")

	return cmd
}

// runBackupCreate closes Firefox and snapshots the profile.
func runBackupCreate(cmd *cobra.Command, profileFlag, folder string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	profilePath, err := a.resolveProfile(profileFlag)
	if err != nil {
		return err
	}
	opts := workflow.Options{
		ProfilePath:   profilePath,
		BackupFolder:  a.conf.BackupFolder,
		Compress:      a.conf.CompressBackup,
		RetentionDays: a.conf.RetentionDays,
	}
	if folder != "" {
		opts.BackupFolder = folder
	}

	res, err := a.run(cmd, func(ctx context.Context, r workflow.Reporter) workflow.Result {
		return a.flow.Backup(ctx, opts, r)
	})
	if err != nil {
		return err
	}
	return a.finish(res, func(w io.Writer) {
		if res.BackupPath != "" {
			_, _ = fmt.Fprintf(w, "Location: %s\n", res.BackupPath)
		}
	})
}

// runBackupList lists all backups.
func runBackupList() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	manager, err := a.backupManager()
	if err != nil {
		return err
	}

	backups, err := manager.List()
	if err != nil {
		return err
	}

	return a.emit(backups, func(w io.Writer) {
		if len(backups) == 0 {
			_, _ = fmt.Fprintln(w, "No backups found.")
			_, _ = fmt.Fprintf(w, "Backup directory: %s\n", manager.BackupDir())
			return
		}

		_, _ = fmt.Fprintf(w, "Backups stored in %s:\n\n", manager.BackupDir())

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tCreated\tType\tSize")
		for _, b := range backups {
			kind := "dir"
			if b.Compressed {
				kind = "zip"
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				b.ID,
				b.CreatedAt.Format("2006-01-02 15:04:05"),
				kind,
				output.Size(b.Size),
			)
		}
		_ = tw.Flush()
	})
}

// runBackupRestore copies user.js back from a backup.
func runBackupRestore(cmd *cobra.Command, id, profileFlag string, skipConfirm bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	manager, err := a.backupManager()
	if err != nil {
		return err
	}
	bak, err := manager.Get(id)
	if err != nil {
		return err
	}

	profilePath, err := a.resolveProfile(profileFlag)
	if err != nil {
		return err
	}
	if profilePath == "" {
		return &ExitError{Code: workflow.ExitInvalidProfile, Message: "no Firefox profile found"}
	}

	fmt.Printf("Restoring from backup: %s\n", bak.ID)
	fmt.Printf("Created: %s\n", bak.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Profile: %s\n", profilePath)

	// Confirm
	if !skipConfirm {
		if !interactive.IsTerminal() {
			return fmt.Errorf("refusing to restore without confirmation; pass --yes")
		}
		if !interactive.NewPrompter().Confirm("Replace user.js and close Firefox?") {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	if err := a.browser.Close(cmd.Context()); err != nil {
		a.logger.Warn("close browser", "err", err)
	}
	if _, err := manager.RestoreUserJS(bak.ID, profilePath); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Println("Restored successfully")
	return nil
}

// runBackupDelete deletes a backup.
func runBackupDelete(id string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	manager, err := a.backupManager()
	if err != nil {
		return err
	}

	if err := manager.Delete(id); err != nil {
		return err
	}

	fmt.Printf("Backup deleted: %s\n", id)
	return nil
}

// runBackupPrune removes backups past the retention period.
func runBackupPrune(cmd *cobra.Command, days int) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	manager, err := a.backupManager()
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("days") {
		days = a.conf.RetentionDays
	}

	result, err := manager.Cleanup(days)
	if result == nil {
		return err
	}

	if emitErr := a.emit(result, func(w io.Writer) {
		if len(result.Deleted) == 0 {
			_, _ = fmt.Fprintf(w, "No backups older than %d days. Keeping %d entries.\n", days, result.Kept)
			return
		}

		_, _ = fmt.Fprintf(w, "Pruned %d entries, keeping %d:\n", len(result.Deleted), result.Kept)
		for _, name := range result.Deleted {
			_, _ = fmt.Fprintf(w, "  - %s\n", name)
		}
	}); emitErr != nil {
		return emitErr
	}
	return err
}
