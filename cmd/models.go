package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/novachat/nova/internal/config"
	"github.com/novachat/nova/internal/llm"
)

var (
	modelsProvider string
	modelsJSON     bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models a provider offers",
	Long: `List models for the stored provider, or the one named with --provider.

OpenAI models are fetched from the models API with the stored key.
Perplexity models come from the fixed list nova accepts.

Examples:
  nova models
  nova models --provider perplexity
  nova models --json`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().StringVarP(&modelsProvider, "provider", "p", "", "Provider to list models for (openai, perplexity)")
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
	modelsCmd.RegisterFlagCompletionFunc("provider", providerFlagCompletion)
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, api, err := openAPIStore()
	if err != nil {
		return err
	}
	cur := api.Get()

	provider := cur.Provider
	if modelsProvider != "" {
		if provider, err = config.ParseProviderType(modelsProvider); err != nil {
			return err
		}
	}

	var models []llm.ModelInfo
	switch provider {
	case config.ProviderOpenAI:
		if cur.Provider != config.ProviderOpenAI || !cur.IsConfigured() {
			return fmt.Errorf("no OpenAI key stored; run `nova config setup` first")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		models, err = llm.ListOpenAIModels(ctx, cfg.OpenAI.BaseURL, cur.APIKey)
		if err != nil {
			return err
		}
	case config.ProviderPerplexity:
		for _, id := range config.PerplexityModels {
			models = append(models, llm.ModelInfo{ID: id, OwnedBy: "perplexity"})
		}
	default:
		return fmt.Errorf("provider %s has no model choice", provider)
	}

	out := cmd.OutOrStdout()
	if modelsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}
	if len(models) == 0 {
		fmt.Fprintln(out, "No models found.")
		return nil
	}

	fmt.Fprintf(out, "Available models from %s:\n\n", provider)
	for _, m := range models {
		marker := "  "
		if provider == cur.Provider && m.ID == cur.ModelOrDefault() {
			marker = "* "
		}
		fmt.Fprintf(out, "%s%s\n", marker, m.ID)
	}
	fmt.Fprintf(out, "\nTo use a model:\n  nova config set provider %s\n  nova config set model <model-name>\n", provider)
	return nil
}
