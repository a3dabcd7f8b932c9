package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adamancini/betterfox-updater/internal/profile"
	"github.com/adamancini/betterfox-updater/internal/settings"
	"github.com/adamancini/betterfox-updater/internal/workflow"
)

// profileRow is one discovered profile for listing.
type profileRow struct {
	Name           string `json:"name" yaml:"name" toml:"name"`
	Path           string `json:"path" yaml:"path" toml:"path"`
	Default        bool   `json:"default" yaml:"default" toml:"default"`
	Selected       bool   `json:"selected" yaml:"selected" toml:"selected"`
	Locked         bool   `json:"locked" yaml:"locked" toml:"locked"`
	LocalVersion   string `json:"local_version" yaml:"local_version" toml:"local_version"`
	FirefoxVersion string `json:"firefox_version" yaml:"firefox_version" toml:"firefox_version"`
}

func newProfilesCmd() *cobra.Command {
	var (
		baseDir string
		use     string
	)

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List Firefox profiles",
		Long: `Profiles lists the profiles registered in Firefox's profiles.ini, newest
first. The profile marked with * is the one an update would pick.

Use --use <path> to save a profile as general.profile_path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfiles(baseDir, use)
		},
	}

	cmd.Flags().StringVar(&baseDir, "dir", "", "Firefox data directory (defaults to the platform location)")
	cmd.Flags().StringVar(&use, "use", "", "Save this profile path as the default")

	return cmd
}

func runProfiles(baseDir, use string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if use != "" {
		if !profile.IsValid(use) {
			return &ExitError{Code: workflow.ExitInvalidProfile, Message: fmt.Sprintf("invalid profile path: %s", use)}
		}
		if err := a.store.Set(settings.KeyProfilePath, use); err != nil {
			return err
		}
		fmt.Printf("Profile saved: %s\n", use)
		return nil
	}

	if baseDir == "" {
		baseDir, err = profile.DefaultBaseDir()
		if err != nil {
			return err
		}
	}
	locator := profile.NewLocator(baseDir)
	profiles, err := locator.Discover()
	if err != nil {
		return err
	}

	selected := a.conf.ProfilePath
	if selected == "" {
		if def, err := locator.Default(); err == nil && def != nil {
			selected = def.Path
		}
	}

	rows := make([]profileRow, 0, len(profiles))
	for _, p := range profiles {
		info := profile.Inspect(p.Path)
		rows = append(rows, profileRow{
			Name:           p.Name,
			Path:           p.Path,
			Default:        p.IsDefault,
			Selected:       p.Path == selected,
			Locked:         info.Locked,
			LocalVersion:   info.LocalVersion,
			FirefoxVersion: info.FirefoxVersion,
		})
	}

	return a.emit(rows, func(w io.Writer) {
		if len(rows) == 0 {
			_, _ = fmt.Fprintf(w, "No profiles found in %s\n", locator.BaseDir())
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, " \tName\tBetterfox\tFirefox\tLocked\tPath")
		for _, r := range rows {
			mark := " "
			if r.Selected {
				mark = "*"
			}
			locked := "no"
			if r.Locked {
				locked = "yes"
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				mark, r.Name, dash(r.LocalVersion), dash(r.FirefoxVersion), locked, r.Path)
		}
		_ = tw.Flush()
	})
}
