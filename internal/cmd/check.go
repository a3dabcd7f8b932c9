package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adamancini/betterfox-updater/internal/workflow"
)

func newCheckCmd() *cobra.Command {
	var profileFlag string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the local and upstream user.js versions",
		Long: `Check shows the installed and upstream Betterfox versions, the date of the
last upstream change and the Firefox version, without modifying anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, profileFlag)
		},
	}

	cmd.Flags().StringVar(&profileFlag, "profile", "", "Firefox profile directory")

	return cmd
}

func runCheck(cmd *cobra.Command, profileFlag string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	profilePath, err := a.resolveProfile(profileFlag)
	if err != nil {
		return err
	}

	res, err := a.run(cmd, func(ctx context.Context, r workflow.Reporter) workflow.Result {
		return a.flow.Check(ctx, profilePath, r)
	})
	if err != nil {
		return err
	}
	return a.finish(res, func(w io.Writer) {
		if !res.Outcome.OK() || quiet {
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(tw, "Profile:\t%s\n", res.Profile)
		_, _ = fmt.Fprintf(tw, "Local version:\t%s\n", dash(res.LocalVersion))
		_, _ = fmt.Fprintf(tw, "Remote version:\t%s\n", dash(res.RemoteVersion))
		_, _ = fmt.Fprintf(tw, "Last commit:\t%s\n", res.LastCommit)
		_, _ = fmt.Fprintf(tw, "Firefox:\t%s\n", dash(res.FirefoxVersion))
		update := "no"
		if res.NeedsUpdate {
			update = "yes"
		}
		_, _ = fmt.Fprintf(tw, "Update available:\t%s\n", update)
		_ = tw.Flush()
	})
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
