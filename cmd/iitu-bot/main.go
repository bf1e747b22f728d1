package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/baltabekpro/iitu-bot/internal/api/gemini"
	"github.com/baltabekpro/iitu-bot/internal/bot"
	"github.com/baltabekpro/iitu-bot/internal/cli"
	"github.com/baltabekpro/iitu-bot/internal/config"
	"github.com/baltabekpro/iitu-bot/internal/kb"
	"github.com/baltabekpro/iitu-bot/internal/logger"
	"github.com/baltabekpro/iitu-bot/internal/processor"
	"github.com/baltabekpro/iitu-bot/internal/scraper"
	"github.com/baltabekpro/iitu-bot/internal/setup"
)

func main() { cli.Main(new(app)) }

type app struct {
	dir string
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.dir, "dir", ".", "Project root `directory`.")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	command := "run"
	if len(env.Args) > 0 {
		command = env.Args[0]
	}

	switch command {
	case "setup":
		return a.setup(ctx, env)
	case "update":
		return a.update(ctx, env)
	case "status":
		return a.status(env)
	case "run":
		return a.runBot(ctx, env)
	default:
		return fmt.Errorf("%w: no such command %q", cli.ErrInvalidArgs, command)
	}
}

func (a *app) setup(ctx context.Context, env *cli.Env) error {
	s := &setup.Setup{
		Dir: a.dir,
		Toolchain: &setup.GoToolchain{
			Dir:    a.dir,
			Stdout: env.Stdout,
			Stderr: env.Stderr,
		},
		Logf: log.New(env.Stdout, "", 0).Printf,
	}
	return s.Run(ctx)
}

// status reports whether everything setup and update produce is in place.
func (a *app) status(env *cli.Env) error {
	cfg, err := config.Load(a.dir, env.Getenv)
	if err != nil {
		return err
	}

	checks := []struct {
		name string
		path string
	}{
		{"configuration (" + setup.ConfigFile + ")", filepath.Join(a.dir, setup.ConfigFile)},
		{"dependency manifest (" + setup.ManifestFile + ")", filepath.Join(a.dir, setup.ManifestFile)},
		{"tool environment (" + setup.EnvDir + ")", filepath.Join(a.dir, setup.EnvDir)},
		{"data directory (" + setup.DataDir + ")", filepath.Join(a.dir, setup.DataDir)},
		{"logs directory (" + setup.LogsDir + ")", filepath.Join(a.dir, setup.LogsDir)},
		{"knowledge base", cfg.KBPath},
	}

	var missing int
	for _, c := range checks {
		if _, err := os.Stat(c.path); err != nil {
			fmt.Fprintf(env.Stdout, "missing  %s\n", c.name)
			missing++
			continue
		}
		fmt.Fprintf(env.Stdout, "ok       %s\n", c.name)
	}

	if missing > 0 {
		return fmt.Errorf("%d checks failed; run 'iitu-bot setup' and 'iitu-bot update' first", missing)
	}
	fmt.Fprintln(env.Stdout, "Everything is in place.")
	return nil
}

// update rebuilds the knowledge base from a fresh crawl.
func (a *app) update(ctx context.Context, env *cli.Env) error {
	cfg, logf, cleanup, err := a.load(env)
	if err != nil {
		return err
	}
	defer cleanup()

	embedder, err := kb.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
	if err != nil {
		return err
	}
	defer embedder.Close()

	knowledge, err := kb.Open(cfg.KBPath, embedder)
	if err != nil {
		return err
	}
	return a.buildKB(ctx, cfg, knowledge, logf)
}

// runBot starts the Telegram bot, building the knowledge base first if it is
// empty.
func (a *app) runBot(ctx context.Context, env *cli.Env) error {
	cfg, logf, cleanup, err := a.load(env)
	if err != nil {
		return err
	}
	defer cleanup()

	embedder, err := kb.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
	if err != nil {
		return err
	}
	defer embedder.Close()

	knowledge, err := kb.Open(cfg.KBPath, embedder)
	if err != nil {
		return err
	}
	if knowledge.Size() == 0 {
		logf("Knowledge base is empty, building it first.")
		if err := a.buildKB(ctx, cfg, knowledge, logf); err != nil {
			return err
		}
	}

	b, err := bot.New(cfg.TelegramToken, knowledge, a.generator(cfg), logf)
	if err != nil {
		return err
	}
	logf("Starting bot.")
	return b.Run(ctx)
}

// buildKB crawls, processes and embeds the university content, keeping the
// intermediate results on disk for inspection.
func (a *app) buildKB(ctx context.Context, cfg *config.Config, knowledge *kb.KB, logf logger.Logf) error {
	s := &scraper.Scraper{
		BaseURL:    cfg.BaseURL,
		MaxPages:   cfg.MaxPages,
		Delay:      cfg.ScrapeDelay,
		MaxRetries: cfg.MaxRetries,
		Logf:       logf,
	}
	pages, err := s.Crawl(ctx)
	if err != nil {
		return err
	}

	if cfg.NewsFeedURL != "" {
		news, err := scraper.FetchFeed(ctx, cfg.NewsFeedURL)
		if err != nil {
			logf("Fetching news feed failed, continuing without it: %v", err)
		} else {
			pages = append(pages, news...)
		}
	}
	logf("Scraped %d pages.", len(pages))

	if err := scraper.SavePages(filepath.Join(a.dir, setup.DataDir, "scraped_data.json"), pages); err != nil {
		return err
	}

	p := &processor.Processor{
		Splitter: &processor.Splitter{
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
		},
		Generator: a.generator(cfg),
		Logf:      logf,
	}
	chunks, err := p.Process(ctx, pages)
	if err != nil {
		return err
	}
	logf("Processed %d pages into %d chunks.", len(pages), len(chunks))

	if err := processor.SaveChunks(filepath.Join(a.dir, setup.DataDir, "processed_data.json"), chunks); err != nil {
		return err
	}

	if err := knowledge.Build(ctx, chunks); err != nil {
		return err
	}
	logf("Knowledge base rebuilt: %d chunks indexed.", knowledge.Size())
	return nil
}

func (a *app) generator(cfg *config.Config) *gemini.Client {
	return &gemini.Client{
		APIKey:   cfg.GeminiAPIKey,
		Model:    cfg.GeminiModel,
		Scrubber: cfg.Scrubber(),
	}
}

// load reads and validates the configuration and sets up logging to both
// stderr and logs/bot.log.
func (a *app) load(env *cli.Env) (*config.Config, logger.Logf, func(), error) {
	cfg, err := config.Load(a.dir, env.Getenv)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	// Like setup, but tolerated here so the bot also runs in environments
	// provisioned by other means.
	for _, dir := range []string{
		filepath.Join(a.dir, setup.DataDir),
		filepath.Dir(cfg.KBPath),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, nil, err
		}
	}

	logsDir := filepath.Join(a.dir, setup.LogsDir)
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(logsDir, "bot.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, nil, err
	}

	logf := log.New(io.MultiWriter(env.Stderr, f), "", log.LstdFlags).Printf
	return cfg, logf, func() { f.Close() }, nil
}
