package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/novachat/nova/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage nova configuration",
	Long: `View or edit nova's configuration.

Application settings live in config.yaml. The response provider, model and
API key live in storage.json and are edited with setup, set and clear.

Examples:
  nova config                           # show current config
  nova config setup                     # choose provider, key and model
  nova config set voice.duration 8s
  nova config set provider perplexity
  nova config get assistant.name
  nova config edit                      # edit config.yaml in $EDITOR`,
	RunE: configShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit config.yaml in $EDITOR",
	Args:  cobra.NoArgs,
	RunE:  configEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration file paths",
	Args:  cobra.NoArgs,
	RunE:  configPath,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value while preserving comments in config.yaml.
The keys provider, model and api_key update the stored provider settings.

Examples:
  nova config set assistant.name Jarvis
  nova config set history.enabled true
  nova config set provider openai
  nova config set model gpt-4o-mini
  nova config set api_key sk-...`,
	Args:              cobra.ExactArgs(2),
	RunE:              configSet,
	ValidArgsFunction: configSetCompletion,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value. api_key is printed masked.

Examples:
  nova config get assistant.name
  nova config get provider`,
	Args:              cobra.ExactArgs(1),
	RunE:              configGet,
	ValidArgsFunction: configGetCompletion,
}

var configClearCmd = &cobra.Command{
	Use:     "clear",
	Aliases: []string{"clear-key"},
	Short:   "Forget the stored API key and provider",
	Args:    cobra.NoArgs,
	RunE:    configClear,
}

var configSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Choose the response provider, API key and model",
	Args:  cobra.NoArgs,
	RunE:  configSetup,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configClearCmd)
	configCmd.AddCommand(configSetupCmd)
}

// Keys stored in the APIStore rather than config.yaml.
const (
	keyProvider = "provider"
	keyModel    = "model"
	keyAPIKey   = "api_key"
)

var apiKeys = []string{keyProvider, keyModel, keyAPIKey}

// configKeys lists the config.yaml settings nova reads.
var configKeys = []string{
	"assistant.name",
	"assistant.temperature",
	"assistant.max_tokens",
	"openai.base_url",
	"perplexity.base_url",
	"perplexity.system_prompt",
	"supabase.url",
	"supabase.function",
	"wikipedia.base_url",
	"voice.capture_command",
	"voice.duration",
	"voice.language",
	"voice.transcribe_url",
	"voice.transcribe_model",
	"voice.transcribe_api_key",
	"voice.max_no_speech_retries",
	"voice.retry_delay",
	"voice.continuous",
	"history.enabled",
	"history.path",
	"log.level",
	"log.file",
	"theme.primary",
	"theme.secondary",
	"theme.error",
	"theme.muted",
	"theme.user_msg_bg",
}

func configShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(out, "# No config file (using defaults)\n# Create one at: %s\n\n", path)
		data = []byte(config.DefaultConfigContent())
	case err != nil:
		return fmt.Errorf("failed to read config: %w", err)
	default:
		fmt.Fprintf(out, "# %s\n\n", path)
	}
	// Surface parse errors the same way a chat start would.
	if _, err := loadConfig(); err != nil {
		return err
	}
	out.Write(data)

	_, api, err := openAPIStore()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n# Provider settings (nova config setup)\n# %s\n", api.Get().Describe())
	return nil
}

func configEdit(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte(config.DefaultConfigContent()), 0644); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}
	// EDITOR may carry flags, e.g. "code --wait".
	fields := strings.Fields(editor)
	editorCmd := exec.Command(fields[0], append(fields[1:], path)...)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	return editorCmd.Run()
}

func configPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	storage, err := config.GetStoragePath()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, path)
	fmt.Fprintln(out, storage)
	return nil
}

func configSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	out := cmd.OutOrStdout()

	if slices.Contains(apiKeys, key) {
		_, api, err := openAPIStore()
		if err != nil {
			return err
		}
		next, err := setAPIValue(api, key, value)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, next.Describe())
		return nil
	}

	if !slices.Contains(configKeys, key) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s is not a setting nova reads\n", key)
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	previous, readErr := os.ReadFile(path)
	if err := setConfigValues(path, [2]string{key, value}); err != nil {
		return err
	}
	// Reject values viper cannot decode, such as "fast" for a duration.
	if _, err := loadConfig(); err != nil {
		if readErr == nil {
			os.WriteFile(path, previous, 0644)
		} else {
			os.Remove(path)
		}
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	fmt.Fprintf(out, "%s = %s\n", key, value)
	return nil
}

// setAPIValue applies one provider setting. Changing provider resets the
// model to that provider's default.
func setAPIValue(api *config.APIStore, key, value string) (config.APIConfig, error) {
	cur := api.Get()
	switch key {
	case keyProvider:
		p, err := config.ParseProviderType(value)
		if err != nil {
			return config.APIConfig{}, err
		}
		return api.Switch(p, "")
	case keyModel:
		return api.Switch(cur.Provider, value)
	case keyAPIKey:
		cur.APIKey = value
		if err := api.Save(cur); err != nil {
			return config.APIConfig{}, err
		}
		return api.Get(), nil
	}
	return config.APIConfig{}, fmt.Errorf("unknown provider setting %q", key)
}

func configGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	out := cmd.OutOrStdout()

	if slices.Contains(apiKeys, key) {
		_, api, err := openAPIStore()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, apiValue(api.Get(), key))
		return nil
	}

	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	value, err := getConfigValue(path, key)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, value)
	return nil
}

func apiValue(c config.APIConfig, key string) string {
	switch key {
	case keyProvider:
		return string(c.Provider)
	case keyModel:
		return c.ModelOrDefault()
	default:
		return c.MaskedKey()
	}
}

func configClear(cmd *cobra.Command, args []string) error {
	_, api, err := openAPIStore()
	if err != nil {
		return err
	}
	if err := api.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "API key cleared; nova will use offline replies")
	return nil
}

func configSetup(cmd *cobra.Command, args []string) error {
	_, api, err := openAPIStore()
	if err != nil {
		return err
	}
	if err := runSetupForm(api); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), api.Get().Describe())
	return nil
}

// configSetCompletion provides completions for config set
func configSetCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return configKeyCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return configValueCompletions(args[0], toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configGetCompletion provides completions for config get
func configGetCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return configKeyCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func configKeyCompletions(toComplete string) []string {
	return filterPrefix(append(slices.Clone(apiKeys), configKeys...), toComplete)
}

func configValueCompletions(key, toComplete string) []string {
	var values []string
	switch {
	case key == keyProvider:
		for _, p := range config.ProviderTypes {
			values = append(values, string(p))
		}
	case key == keyModel:
		values = slices.Clone(config.PerplexityModels)
	case key == "log.level":
		values = []string{"debug", "info", "warn", "error"}
	case strings.HasSuffix(key, ".enabled"), key == "voice.continuous":
		values = []string{"true", "false"}
	}
	return filterPrefix(values, toComplete)
}

func filterPrefix(values []string, prefix string) []string {
	var out []string
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	return out
}

// printKV writes aligned "key  value" rows.
func printKV(w io.Writer, rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-*s  %s\n", width, r[0], r[1])
	}
}
