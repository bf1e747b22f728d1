package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/baltabekpro/iitu-bot/internal/testutil"
)

func noEnv(string) string { return "" }

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), noEnv)
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, cfg.GeminiModel, DefaultGeminiModel)
	testutil.AssertEqual(t, cfg.EmbeddingModel, DefaultEmbeddingModel)
	testutil.AssertEqual(t, cfg.BaseURL, DefaultBaseURL)
	testutil.AssertEqual(t, cfg.MaxPages, DefaultMaxPages)
	testutil.AssertEqual(t, cfg.ScrapeDelay, DefaultScrapeDelay)
	testutil.AssertEqual(t, cfg.MaxRetries, DefaultMaxRetries)
	testutil.AssertEqual(t, cfg.ChunkSize, DefaultChunkSize)
	testutil.AssertEqual(t, cfg.ChunkOverlap, DefaultChunkOverlap)
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeEnvFile(t, dir, strings.Join([]string{
		"TELEGRAM_BOT_TOKEN=123:abc",
		"GEMINI_API_KEY=key",
		"MAX_PAGES_TO_SCRAPE=7",
		"SCRAPE_DELAY=2",
	}, "\n"))

	cfg, err := Load(dir, noEnv)
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, cfg.TelegramToken, "123:abc")
	testutil.AssertEqual(t, cfg.GeminiAPIKey, "key")
	testutil.AssertEqual(t, cfg.MaxPages, 7)
	testutil.AssertEqual(t, cfg.ScrapeDelay, 2*time.Second)
}

func TestProcessEnvTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeEnvFile(t, dir, "TELEGRAM_BOT_TOKEN=from-file\n")

	getenv := func(key string) string {
		if key == "TELEGRAM_BOT_TOKEN" {
			return "from-env"
		}
		return ""
	}

	cfg, err := Load(dir, getenv)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, cfg.TelegramToken, "from-env")
}

func TestLoadBadInt(t *testing.T) {
	dir := t.TempDir()
	writeEnvFile(t, dir, "MAX_PAGES_TO_SCRAPE=many\n")

	if _, err := Load(dir, noEnv); err == nil || !strings.Contains(err.Error(), "MAX_PAGES_TO_SCRAPE") {
		t.Fatalf("want error naming the bad key, got %v", err)
	}
}

func TestLoadMalformedEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeEnvFile(t, dir, "THIS IS NOT A KEY VALUE PAIR\n")

	if _, err := Load(dir, noEnv); err == nil {
		t.Fatal("want error for a malformed .env file")
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load(t.TempDir(), noEnv)
	if err != nil {
		t.Fatal(err)
	}

	err = cfg.Validate()
	if err == nil {
		t.Fatal("want error for missing required keys")
	}
	for _, want := range []string{"TELEGRAM_BOT_TOKEN", "GEMINI_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q must mention %q", err, want)
		}
	}

	cfg.TelegramToken = "123:abc"
	cfg.GeminiAPIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("want valid config, got %v", err)
	}
}

func TestValidateChunkSettings(t *testing.T) {
	cfg, err := Load(t.TempDir(), noEnv)
	if err != nil {
		t.Fatal(err)
	}
	cfg.TelegramToken = "123:abc"
	cfg.GeminiAPIKey = "key"

	cfg.ChunkSize = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "CHUNK_SIZE") {
		t.Errorf("want CHUNK_SIZE error, got %v", err)
	}

	cfg.ChunkSize = 100
	cfg.ChunkOverlap = 100
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "CHUNK_OVERLAP") {
		t.Errorf("want CHUNK_OVERLAP error, got %v", err)
	}

	cfg.ChunkOverlap = 20
	if err := cfg.Validate(); err != nil {
		t.Errorf("want valid config, got %v", err)
	}
}

func TestScrubber(t *testing.T) {
	cfg := &Config{TelegramToken: "123:abc", GeminiAPIKey: "secret"}
	got := cfg.Scrubber().Replace("token 123:abc key secret done")
	testutil.AssertEqual(t, got, "token [EXPUNGED] key [EXPUNGED] done")
}
