package llm

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ListOpenAIModels returns the models visible to apiKey, newest first.
func ListOpenAIModels(ctx context.Context, baseURL, apiKey string) ([]ModelInfo, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithHTTPClient(defaultHTTPClient)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var models []ModelInfo
	for _, m := range page.Data {
		models = append(models, ModelInfo{
			ID:      m.ID,
			Created: time.Unix(m.Created, 0),
			OwnedBy: m.OwnedBy,
		})
	}
	sort.SliceStable(models, func(i, j int) bool {
		return models[i].Created.After(models[j].Created)
	})
	return models, nil
}
