package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joseph-ayodele/engagement-analyzer/internal/llm"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/models/gemini-1.5-flash:generateContent" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "k" {
			t.Errorf("api key header = %q", got)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Contents[0].Parts[0].Text != "hello" {
			t.Errorf("prompt = %q", req.Contents[0].Parts[0].Text)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"` + "```json\\n" + `"},{"text":"{}\n` + "```" + `"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	got, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "```json\n{}\n```" {
		t.Errorf("Generate = %q", got)
	}
	if c.Provider() != "gemini" || c.Model() != "gemini-1.5-flash" {
		t.Errorf("describe = %s/%s", c.Provider(), c.Model())
	}
}

func TestGenerateErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"http 500", http.StatusInternalServerError, `{"error":{"message":"boom"}}`},
		{"blocked", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"bad json", http.StatusOK, `not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
			if _, err := c.Generate(context.Background(), "x"); err == nil {
				t.Error("Generate succeeded, want error")
			}
		})
	}
}

func TestGenerateHTTPErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Generate(context.Background(), "x")
	var he *llm.HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusTooManyRequests {
		t.Errorf("err = %v, want HTTPError 429", err)
	}
}

func TestGenerateWithoutKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	c := NewClient(Config{BaseURL: "http://127.0.0.1:0"}, nil)
	if _, err := c.Generate(context.Background(), "x"); err == nil {
		t.Error("Generate without key succeeded")
	}
}

func TestListModelsPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"models":[{"name":"models/gemini-1.5-flash","displayName":"Flash"}],"nextPageToken":"p2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"models/gemini-1.5-pro","supportedGenerationMethods":["generateContent"]}]}`))
	}))
	defer srv.Close()

	models, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[1].Name != "models/gemini-1.5-pro" || models[1].Methods[0] != "generateContent" {
		t.Errorf("models = %+v", models)
	}
}
