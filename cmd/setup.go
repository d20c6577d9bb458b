package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/novachat/nova/internal/config"
)

var providerLabels = map[config.ProviderType]string{
	config.ProviderPerplexity: "Perplexity (online answers)",
	config.ProviderOpenAI:     "OpenAI",
	config.ProviderSupabase:   "Supabase edge function",
	config.ProviderMock:       "Mock (canned replies, for testing)",
}

// setupAnswers holds the form fields as strings for huh.
type setupAnswers struct {
	Provider string
	APIKey   string
	Model    string
}

// runSetupForm asks for provider, key and model and saves the result.
// Leaving the key empty switches nova to offline replies.
func runSetupForm(api *config.APIStore) error {
	cur := api.Get()
	ans := setupAnswers{Provider: string(cur.Provider), APIKey: cur.APIKey, Model: cur.Model}

	var providerOpts []huh.Option[string]
	for _, p := range config.ProviderTypes {
		providerOpts = append(providerOpts, huh.NewOption(providerLabels[p], string(p)))
	}
	isProvider := func(p config.ProviderType) func() bool {
		return func() bool { return ans.Provider != string(p) }
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which provider should answer open questions?").
				Options(providerOpts...).
				Value(&ans.Provider),
			huh.NewInput().
				Title("API key").
				Description("Stored in storage.json. Leave empty for offline replies.").
				EchoMode(huh.EchoModePassword).
				Value(&ans.APIKey),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Perplexity model").
				Options(huh.NewOptions(config.PerplexityModels...)...).
				Value(&ans.Model),
		).WithHideFunc(isProvider(config.ProviderPerplexity)),
		huh.NewGroup(
			huh.NewInput().
				Title("OpenAI model").
				Placeholder(config.ProviderOpenAI.DefaultModel()).
				Value(&ans.Model),
		).WithHideFunc(isProvider(config.ProviderOpenAI)),
	)

	if tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
		defer tty.Close()
		form = form.WithInput(tty).WithOutput(tty)
	}

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("setup cancelled")
		}
		return err
	}

	next, err := ans.apply()
	if err != nil {
		return err
	}
	if err := api.Save(next); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// apply turns form answers into a config. A model left over from another
// provider is dropped.
func (a setupAnswers) apply() (config.APIConfig, error) {
	provider, err := config.ParseProviderType(a.Provider)
	if err != nil {
		return config.APIConfig{}, err
	}
	model := strings.TrimSpace(a.Model)
	switch provider {
	case config.ProviderPerplexity:
		if !slices.Contains(config.PerplexityModels, model) {
			model = ""
		}
	case config.ProviderOpenAI:
		if slices.Contains(config.PerplexityModels, model) {
			model = ""
		}
	default:
		model = ""
	}
	next := config.APIConfig{Provider: provider, APIKey: strings.TrimSpace(a.APIKey), Model: model}
	return next, next.Validate()
}
