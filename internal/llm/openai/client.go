package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/internal/llm"
)

var _ llm.Generator = (*Client)(nil)
var _ llm.ModelLister = (*Client)(nil)

// Generate implements llm.Generator using text-only chat/completions.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	c.logger.Info("llm.openai.start",
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(prompt),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}
	if c.cfg.JSONMode {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, c.headers(), c.logger)
	if err != nil {
		c.logger.Error("llm.openai.http_error",
			"status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("openai chat/completions: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.openai.decode_error",
			"error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.openai.no_choices", "elapsed_ms", time.Since(start).Milliseconds())
		return "", errors.New("no choices in openai response")
	}

	content := cc.Choices[0].Message.Content
	c.logger.Info("llm.openai.ok",
		"finish_reason", cc.Choices[0].FinishReason,
		"chars", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// ListModels implements llm.ModelLister with GET /models.
func (c *Client) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	raw, _, err := llm.GetJSON(ctx, c.http, strings.TrimRight(c.cfg.BaseURL, "/")+"/models", c.headers(), c.logger)
	if err != nil {
		return nil, fmt.Errorf("openai list models: %w", err)
	}
	var resp struct {
		Data []struct {
			ID      string `json:"id"`
			OwnedBy string `json:"owned_by"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode openai models: %w", err)
	}
	out := make([]llm.ModelInfo, 0, len(resp.Data))
	for _, m := range resp.Data {
		out = append(out, llm.ModelInfo{Name: m.ID, Description: m.OwnedBy})
	}
	return out, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}
