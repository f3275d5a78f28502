package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell
// completions, so flag-heavy invocations of generate can be tab-completed.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for piecework.

To load completions:

Bash:
  $ source <(piecework completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ piecework completion bash > /etc/bash_completion.d/piecework
  # macOS:
  $ piecework completion bash > $(brew --prefix)/etc/bash_completion.d/piecework

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ piecework completion zsh > "${fpath[1]}/_piecework"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ piecework completion fish | source

  # To load completions for each session, execute once:
  $ piecework completion fish > ~/.config/fish/completions/piecework.fish

PowerShell:
  PS> piecework completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> piecework completion powershell > piecework.ps1
  # and source this file from your PowerShell profile.
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

	return cmd
}
