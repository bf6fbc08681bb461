package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for gemrelay.

To load completions:

Bash:
  $ source <(gemrelay completion bash)
  # To load permanently:
  $ gemrelay completion bash > /etc/bash_completion.d/gemrelay

Zsh:
  $ gemrelay completion zsh > "${fpath[1]}/_gemrelay"
  $ compinit

Fish:
  $ gemrelay completion fish | source
  # To load permanently:
  $ gemrelay completion fish > ~/.config/fish/completions/gemrelay.fish

PowerShell:
  PS> gemrelay completion powershell | Out-String | Invoke-Expression
`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(out)
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}
