// Package setup bootstraps a local environment for the bot: it gates on the
// toolchain version, provisions an isolated tool environment, installs the
// declared tool dependencies, creates the working directories and seeds the
// configuration file from its template.
package setup

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/baltabekpro/iitu-bot/internal/logger"
	"golang.org/x/mod/semver"
)

// Fixed filesystem layout produced and consumed by the bootstrapper,
// relative to the project root.
const (
	// MinToolchainVersion is the minimum toolchain version required to set up
	// and build the bot.
	MinToolchainVersion = "1.22"

	// EnvDir is the isolated tool environment directory.
	EnvDir = "venv"
	// DataDir holds the scraped data and the knowledge base.
	DataDir = "data"
	// LogsDir holds the bot log.
	LogsDir = "logs"
	// ManifestFile lists tool dependencies, one path@version per line.
	ManifestFile = "requirements.txt"
	// ConfigFile is the live configuration file. Once created it is
	// user-owned and never overwritten.
	ConfigFile = ".env"
	// ConfigTemplate is the checked-in template ConfigFile is seeded from.
	ConfigTemplate = ".env.example"
)

// VersionError is returned when the installed toolchain is older than the
// required minimum. It is the only failure the bootstrapper classifies
// itself; everything else propagates from the underlying tool.
type VersionError struct {
	Required string
	Found    string
}

// Error implements the error interface.
func (e *VersionError) Error() string {
	return fmt.Sprintf("setup: toolchain version %s or newer is required, found %s", e.Required, e.Found)
}

// Setup runs the five bootstrap steps in order. Each step is a method so it
// can be tested in isolation; Run is the only composition of them.
type Setup struct {
	// Dir is the project root. Defaults to the current directory.
	Dir string
	// Toolchain performs the underlying tool invocations.
	Toolchain Toolchain
	// MinVersion overrides MinToolchainVersion, used in tests.
	MinVersion string
	// Logf receives progress lines. Defaults to a no-op.
	Logf logger.Logf
}

// Run executes the bootstrap sequence. The version gate short-circuits
// everything: on a too-old toolchain no environment, directories or
// configuration are created.
func (s *Setup) Run(ctx context.Context) error {
	if err := s.checkVersion(ctx); err != nil {
		return err
	}
	if err := s.createEnv(ctx); err != nil {
		return err
	}
	if err := s.installDeps(ctx); err != nil {
		return err
	}
	if err := s.createDirs(); err != nil {
		return err
	}
	if err := s.seedConfig(); err != nil {
		return err
	}

	s.logf("Setup complete!")
	s.logf("Next steps:")
	s.logf("  1. Fill in %s with your Telegram and Gemini tokens.", ConfigFile)
	s.logf("  2. Add %s to PATH to use the installed tools.", filepath.Join(EnvDir, "bin"))
	s.logf("  3. Run 'iitu-bot update' to build the knowledge base, then 'iitu-bot run'.")
	return nil
}

// checkVersion compares the installed toolchain version against the minimum
// using semantic version ordering, never lexical comparison.
func (s *Setup) checkVersion(ctx context.Context) error {
	found, err := s.Toolchain.Version(ctx)
	if err != nil {
		return fmt.Errorf("setup: querying toolchain version: %w", err)
	}

	required := cmp.Or(s.MinVersion, MinToolchainVersion)
	if semver.Compare(canonical(found), canonical(required)) < 0 {
		return &VersionError{Required: required, Found: found}
	}

	s.logf("Toolchain version %s satisfies the required minimum %s.", found, required)
	return nil
}

func canonical(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "go")
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func (s *Setup) createEnv(ctx context.Context) error {
	dir := filepath.Join(s.dir(), EnvDir)
	if err := s.Toolchain.CreateEnv(ctx, dir); err != nil {
		return fmt.Errorf("setup: provisioning %s: %w", EnvDir, err)
	}
	s.logf("Tool environment ready at %s.", dir)
	return nil
}

// installDeps refreshes the installer state and installs every constraint
// from the manifest. Partial installs are not rolled back: the environment
// is disposable and re-running setup is the documented recovery.
func (s *Setup) installDeps(ctx context.Context) error {
	constraints, err := readManifest(filepath.Join(s.dir(), ManifestFile))
	if err != nil {
		return fmt.Errorf("setup: reading %s: %w", ManifestFile, err)
	}

	if err := s.Toolchain.UpdateInstaller(ctx); err != nil {
		return fmt.Errorf("setup: updating installer: %w", err)
	}

	envDir := filepath.Join(s.dir(), EnvDir)
	for _, c := range constraints {
		s.logf("Installing %s...", c)
		if err := s.Toolchain.Install(ctx, envDir, c); err != nil {
			return fmt.Errorf("setup: installing %s: %w", c, err)
		}
	}
	s.logf("Installed %d dependencies.", len(constraints))
	return nil
}

func (s *Setup) createDirs() error {
	for _, dir := range []string{DataDir, LogsDir} {
		if err := os.MkdirAll(filepath.Join(s.dir(), dir), 0o755); err != nil {
			return fmt.Errorf("setup: creating %s: %w", dir, err)
		}
	}
	s.logf("Created %s and %s directories.", DataDir, LogsDir)
	return nil
}

// seedConfig copies the configuration template to the live configuration
// file, but only if no configuration file exists yet. An existing file is
// user-owned state and is reported, not touched.
func (s *Setup) seedConfig() error {
	path := filepath.Join(s.dir(), ConfigFile)
	if _, err := os.Stat(path); err == nil {
		s.logf("%s already exists, keeping it.", ConfigFile)
		return nil
	}

	template, err := os.ReadFile(filepath.Join(s.dir(), ConfigTemplate))
	if err != nil {
		return fmt.Errorf("setup: reading %s: %w", ConfigTemplate, err)
	}
	if err := os.WriteFile(path, template, 0o600); err != nil {
		return fmt.Errorf("setup: writing %s: %w", ConfigFile, err)
	}

	s.logf("Created %s from %s.", ConfigFile, ConfigTemplate)
	return nil
}

// readManifest returns the non-empty, non-comment lines of the manifest.
func readManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var constraints []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		constraints = append(constraints, line)
	}
	return constraints, scanner.Err()
}

func (s *Setup) dir() string {
	if s.Dir == "" {
		return "."
	}
	return s.Dir
}

func (s *Setup) logf(format string, args ...any) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}
