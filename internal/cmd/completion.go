package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for betterfox-updater.

To load completions:

Bash:
  $ source <(betterfox-updater completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ betterfox-updater completion bash > /etc/bash_completion.d/betterfox-updater
  # macOS:
  $ betterfox-updater completion bash > $(brew --prefix)/etc/bash_completion.d/betterfox-updater

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ betterfox-updater completion zsh > "${fpath[1]}/_betterfox-updater"

  # You will need to start a new shell for this setup to take effect.

  # Oh My Zsh:
  $ mkdir -p ~/.oh-my-zsh/completions
  $ betterfox-updater completion zsh > ~/.oh-my-zsh/completions/_betterfox-updater

Fish:
  $ betterfox-updater completion fish > ~/.config/fish/completions/betterfox-updater.fish

PowerShell:
  PS> betterfox-updater completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}
