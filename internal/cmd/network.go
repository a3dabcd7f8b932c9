package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamancini/betterfox-updater/internal/workflow"
)

func newNetworkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Test and configure network access",
		Long: `Network checks that the upstream user.js can be downloaded with the current
proxy, timeout and retry settings, and changes those settings.`,
	}

	cmd.AddCommand(newNetworkTestCmd())
	cmd.AddCommand(newNetworkApplyCmd())

	return cmd
}

func newNetworkTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Download the upstream user.js once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.run(cmd, a.flow.TestNetwork)
			if err != nil {
				return err
			}
			return a.finish(res, nil)
		},
	}
}

func newNetworkApplyCmd() *cobra.Command {
	var (
		proxy   string
		timeout time.Duration
		retries int
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Save proxy, timeout and retry settings",
		Long: `Apply saves the network settings. Flags that are not given keep their
current value; pass --proxy "" to clear the proxy.

Examples:
  betterfox-updater network apply --proxy http://127.0.0.1:3128
  betterfox-updater network apply --timeout 30s --retries 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.conf.Network
			if cmd.Flags().Changed("proxy") {
				cfg.Proxy = proxy
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Timeout = timeout
			}
			if cmd.Flags().Changed("retries") {
				cfg.Retries = retries
			}

			res, err := a.run(cmd, func(ctx context.Context, r workflow.Reporter) workflow.Result {
				return a.flow.ApplyNetwork(ctx, cfg, r)
			})
			if err != nil {
				return err
			}
			return a.finish(res, nil)
		},
	}

	cmd.Flags().StringVar(&proxy, "proxy", "", "Proxy URL for HTTP and HTTPS")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Request timeout")
	cmd.Flags().IntVar(&retries, "retries", 0, "Retries on 5xx responses")

	return cmd
}
