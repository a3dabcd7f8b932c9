package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adamancini/betterfox-updater/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change settings",
		Long: `Settings reads and writes the settings file.

Keys are <section>.<name>, for example general.auto_backup or network.timeout.
Yes/no values accept yes, no, true, false, 1, 0, on and off.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsList()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:               "get <key>",
		Short:             "Print one setting",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeSettingKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsGet(args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:               "set <key> <value>",
		Short:             "Change one setting",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeSettingKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsSet(args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsPath()
		},
	})

	return cmd
}

func completeSettingKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return settings.Keys(), cobra.ShellCompDirectiveNoFileComp
}

func runSettingsList() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.text() {
		return a.writer().Write(a.store.Snapshot())
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, e := range a.store.Entries() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", e.Key, e.Value)
	}
	return tw.Flush()
}

func runSettingsGet(key string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	value, err := a.store.Get(key)
	if err != nil {
		return err
	}
	return a.emit(settings.Entry{Key: key, Value: value}, func(w io.Writer) {
		_, _ = fmt.Fprintln(w, value)
	})
}

func runSettingsSet(key, value string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Set(key, value); err != nil {
		return err
	}
	stored, _ := a.store.Get(key)
	if !quiet {
		fmt.Printf("%s = %s\n", key, stored)
	}
	return nil
}

func runSettingsPath() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = fmt.Println(a.store.Path())
	return err
}
