package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/internal/llm"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature float32 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

var _ llm.Generator = (*Client)(nil)
var _ llm.ModelLister = (*Client)(nil)

// Generate implements llm.Generator with models/{model}:generateContent.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("gemini api key is not configured")
	}

	body := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: c.cfg.Temperature},
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(strings.TrimPrefix(c.cfg.Model, "models/")))

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, c.headers(), c.logger)
	if err != nil {
		c.logger.Error("llm.gemini.http_error",
			"model", c.cfg.Model, "status", status, "error", err, "body", truncate(string(raw), 512),
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("gemini generateContent: %w", err)
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Error("llm.gemini.decode_error", "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in gemini response")
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := b.String()

	c.logger.Info("llm.gemini.ok",
		"model", c.cfg.Model,
		"finish_reason", resp.Candidates[0].FinishReason,
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// ListModels implements llm.ModelLister, following nextPageToken.
func (c *Client) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	var out []llm.ModelInfo
	token := ""
	for page := 0; page < 20; page++ {
		endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/models?pageSize=100"
		if token != "" {
			endpoint += "&pageToken=" + url.QueryEscape(token)
		}
		raw, _, err := llm.GetJSON(ctx, c.http, endpoint, c.headers(), c.logger)
		if err != nil {
			return nil, fmt.Errorf("gemini list models: %w", err)
		}
		var resp struct {
			Models        []llm.ModelInfo `json:"models"`
			NextPageToken string          `json:"nextPageToken"`
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("decode gemini models: %w", err)
		}
		out = append(out, resp.Models...)
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	return out, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{"x-goog-api-key": c.cfg.APIKey}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
