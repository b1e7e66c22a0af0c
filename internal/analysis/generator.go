package analysis

import (
	"log/slog"

	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/llm"
	"github.com/joseph-ayodele/engagement-analyzer/internal/llm/gemini"
	"github.com/joseph-ayodele/engagement-analyzer/internal/llm/openai"
)

// NewGenerator builds the configured generative backend.
func NewGenerator(cfg common.LLMConfig, logger *slog.Logger) (llm.Generator, error) {
	switch cfg.Provider {
	case "", "gemini":
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			JSONMode:    true,
		}, logger), nil
	}
	return nil, common.NewAppError(common.CodeConfig, "unknown llm provider "+cfg.Provider, common.ErrValidation, nil)
}
