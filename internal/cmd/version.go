package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/adamancini/betterfox-updater/internal/output"
)

// buildInfo is printed by the version command.
type buildInfo struct {
	Version string `json:"version" yaml:"version" toml:"version"`
	Commit  string `json:"commit" yaml:"commit" toml:"commit"`
	Date    string `json:"date" yaml:"date" toml:"date"`
	Go      string `json:"go" yaml:"go" toml:"go"`
	OS      string `json:"os" yaml:"os" toml:"os"`
	Arch    string `json:"arch" yaml:"arch" toml:"arch"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the betterfox-updater version and build details.

Examples:
  betterfox-updater version
  betterfox-updater version -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(os.Stdout)
		},
	}
}

func runVersion(w io.Writer) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	info := buildInfo{
		Version: appVersion,
		Commit:  appCommit,
		Date:    appDate,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}

	if format != output.FormatText {
		return output.NewWriter(w, format).Write(info)
	}
	_, err = fmt.Fprintf(w, "betterfox-updater version %s (commit %s, built %s, %s %s/%s)\n",
		info.Version, info.Commit, info.Date, info.Go, info.OS, info.Arch)
	return err
}
