package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Fatalf("default port: %d", cfg.Server.Port)
	}
	if cfg.Provider.Name != ProviderCerebras {
		t.Fatalf("default provider: %q", cfg.Provider.Name)
	}
	if cfg.Memory.TopK != 4 {
		t.Fatalf("default top_k: %d", cfg.Memory.TopK)
	}
}

func TestFileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iris.yaml")
	content := `
server:
  port: 9100
provider:
  name: groq
  model: from-file
memory:
  top_k: 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("IRIS_PORT", "9200")
	t.Setenv("GROQ_API_KEY", "groq-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9200 {
		t.Fatalf("env must beat file for port, got %d", cfg.Server.Port)
	}
	if cfg.Provider.Name != ProviderGroq {
		t.Fatalf("file provider not applied: %q", cfg.Provider.Name)
	}
	if cfg.Provider.Model != "from-file" {
		t.Fatalf("file model not applied: %q", cfg.Provider.Model)
	}
	if cfg.Provider.APIKey != "groq-secret" {
		t.Fatalf("provider key must follow selected provider, got %q", cfg.Provider.APIKey)
	}
	if cfg.Memory.TopK != 7 {
		t.Fatalf("file top_k not applied: %d", cfg.Memory.TopK)
	}
}

func TestLegacyProviderEnv(t *testing.T) {
	t.Setenv("AI_PROVIDER", "GROQ")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Name != ProviderGroq {
		t.Fatalf("AI_PROVIDER not normalized, got %q", cfg.Provider.Name)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Provider.Name = "openrouter"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown provider")
	}
}

func TestMissingKeyIsNotFatal(t *testing.T) {
	cfg := Default()
	cfg.Provider.APIKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("missing credentials must not fail startup: %v", err)
	}
}
