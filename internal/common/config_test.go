package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  http_addr: ":7000"
llm:
  provider: openai
  timeout: 10s
ingest:
  max_files: 3
client:
  api_url: ${ENGAGE_TEST_HOST}/api
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENGAGE_TEST_HOST", "http://api.internal:5000")
	t.Setenv("INGEST_MAX_FILES", "4")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.HTTPAddr != ":7000" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.LLM.Timeout != 10*time.Second {
		t.Errorf("LLM.Timeout = %v", cfg.LLM.Timeout)
	}
	if cfg.Ingest.MaxFiles != 4 {
		t.Errorf("env should win over file: MaxFiles = %d", cfg.Ingest.MaxFiles)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.APIKey != "sk-test" {
		t.Errorf("openai defaults not applied: %+v", cfg.LLM)
	}
	if cfg.Client.APIURL != "http://api.internal:5000/api" {
		t.Errorf("APIURL = %q", cfg.Client.APIURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = ""
	err := cfg.Validate()
	if !errors.Is(err, ErrValidation) || CodeOf(err) != CodeConfig {
		t.Fatalf("Validate err = %v", err)
	}
	cfg.LLM.APIKey = "k"
	cfg.LLM.Provider = "claude"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
