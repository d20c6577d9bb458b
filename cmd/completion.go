package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/novachat/nova/internal/config"
)

var configCompletionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate a shell completion script on stdout.

Examples:
  nova config completion bash > ~/.bash_completion.d/nova
  nova config completion zsh > "${fpath[1]}/_nova"
  nova config completion fish > ~/.config/fish/completions/nova.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      configCompletion,
}

func init() {
	configCmd.AddCommand(configCompletionCmd)
}

func configCompletion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	switch args[0] {
	case "bash":
		return rootCmd.GenBashCompletionV2(out, true)
	case "zsh":
		return rootCmd.GenZshCompletion(out)
	case "fish":
		return rootCmd.GenFishCompletion(out, true)
	default:
		return rootCmd.GenPowerShellCompletionWithDesc(out)
	}
}

// providerFlagCompletion completes provider names for --provider flags.
func providerFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, p := range config.ProviderTypes {
		if strings.HasPrefix(string(p), toComplete) {
			out = append(out, string(p))
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
