// Package config loads bot configuration from the .env file and process
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for optional configuration keys.
const (
	DefaultGeminiModel    = "gemini-1.5-flash"
	DefaultEmbeddingModel = "text-embedding-004"
	DefaultBaseURL        = "https://iitu.edu.kz"
	DefaultMaxPages       = 100
	DefaultScrapeDelay    = time.Second
	DefaultMaxRetries     = 3
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultKBPath         = "data/knowledge_base.json"
)

// Config holds all application configuration.
type Config struct {
	// Telegram
	TelegramToken string

	// Gemini
	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string

	// Scraper
	BaseURL     string
	NewsFeedURL string
	MaxPages    int
	ScrapeDelay time.Duration
	MaxRetries  int

	// Processor
	ChunkSize    int
	ChunkOverlap int

	// Knowledge base
	KBPath string
}

// Load reads configuration for the application rooted at dir. Values from the
// process environment (via getenv) take precedence over values from dir/.env.
// A missing .env file is not an error.
func Load(dir string, getenv func(string) string) (*Config, error) {
	fileVals, err := godotenv.Read(filepath.Join(dir, ".env"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// The bot can run entirely off the process environment.
		fileVals = map[string]string{}
	case err != nil:
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}

	lookup := func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fileVals[key]
	}

	c := &Config{
		TelegramToken:  lookup("TELEGRAM_BOT_TOKEN"),
		GeminiAPIKey:   lookup("GEMINI_API_KEY"),
		GeminiModel:    orDefault(lookup("GEMINI_MODEL"), DefaultGeminiModel),
		EmbeddingModel: orDefault(lookup("EMBEDDING_MODEL"), DefaultEmbeddingModel),
		BaseURL:        orDefault(lookup("IITU_BASE_URL"), DefaultBaseURL),
		NewsFeedURL:    lookup("IITU_NEWS_FEED"),
		KBPath:         orDefault(lookup("KB_PATH"), filepath.Join(dir, DefaultKBPath)),
	}

	if c.MaxPages, err = parseInt(lookup("MAX_PAGES_TO_SCRAPE"), DefaultMaxPages); err != nil {
		return nil, fmt.Errorf("config: MAX_PAGES_TO_SCRAPE: %w", err)
	}
	if c.MaxRetries, err = parseInt(lookup("MAX_RETRIES"), DefaultMaxRetries); err != nil {
		return nil, fmt.Errorf("config: MAX_RETRIES: %w", err)
	}
	if c.ChunkSize, err = parseInt(lookup("CHUNK_SIZE"), DefaultChunkSize); err != nil {
		return nil, fmt.Errorf("config: CHUNK_SIZE: %w", err)
	}
	if c.ChunkOverlap, err = parseInt(lookup("CHUNK_OVERLAP"), DefaultChunkOverlap); err != nil {
		return nil, fmt.Errorf("config: CHUNK_OVERLAP: %w", err)
	}

	delay, err := parseInt(lookup("SCRAPE_DELAY"), int(DefaultScrapeDelay/time.Second))
	if err != nil {
		return nil, fmt.Errorf("config: SCRAPE_DELAY: %w", err)
	}
	c.ScrapeDelay = time.Duration(delay) * time.Second

	return c, nil
}

// Validate reports an error naming every required key that is missing, and
// rejects chunk settings the splitter cannot work with.
func (c *Config) Validate() error {
	var missing []string
	if c.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return errors.New("config: missing required keys: " + strings.Join(missing, ", "))
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("config: CHUNK_OVERLAP must be between 0 and CHUNK_SIZE, got %d", c.ChunkOverlap)
	}
	return nil
}

// Scrubber returns a strings.Replacer that masks secrets in error messages
// and logs.
func (c *Config) Scrubber() *strings.Replacer {
	var pairs []string
	if c.TelegramToken != "" {
		pairs = append(pairs, c.TelegramToken, "[EXPUNGED]")
	}
	if c.GeminiAPIKey != "" {
		pairs = append(pairs, c.GeminiAPIKey, "[EXPUNGED]")
	}
	return strings.NewReplacer(pairs...)
}

func orDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

func parseInt(val string, def int) (int, error) {
	if val == "" {
		return def, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, err
	}
	return i, nil
}
