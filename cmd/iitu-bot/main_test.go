package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/baltabekpro/iitu-bot/internal/cli"
	"github.com/baltabekpro/iitu-bot/internal/cli/clitest"
	"github.com/baltabekpro/iitu-bot/internal/setup"
)

// provisioned creates a project directory that looks like setup and update
// have already run in it.
func provisioned(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, d := range []string{setup.EnvDir, setup.DataDir, setup.LogsDir} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range []string{setup.ConfigFile, setup.ManifestFile} {
		if err := os.WriteFile(filepath.Join(dir, f), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, setup.DataDir, "knowledge_base.json"), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func run(t *testing.T, a *app, args ...string) (stdout string, err error) {
	t.Helper()
	var out, errb bytes.Buffer
	env := &cli.Env{
		Args:   args,
		Getenv: func(string) string { return "" },
		Stdin:  strings.NewReader(""),
		Stdout: &out,
		Stderr: &errb,
	}
	err = cli.Run(cli.WithEnv(context.Background(), env), a)
	return out.String(), err
}

func TestUnknownCommand(t *testing.T) {
	clitest.Run(t, func(t *testing.T) *app {
		return &app{dir: t.TempDir()}
	}, map[string]clitest.Case[*app]{
		"returns an error": {
			Args:    []string{"frobnicate"},
			WantErr: cli.ErrInvalidArgs,
		},
	})
}

func TestStatusOK(t *testing.T) {
	clitest.Run(t, func(t *testing.T) *app {
		return &app{dir: provisioned(t)}
	}, map[string]clitest.Case[*app]{
		"reports everything in place": {
			Args:         []string{"status"},
			WantInStdout: "Everything is in place.",
		},
	})
}

func TestStatusMissing(t *testing.T) {
	stdout, err := run(t, &app{dir: t.TempDir()}, "status")
	if err == nil {
		t.Fatal("want error when nothing is provisioned")
	}
	if !strings.Contains(stdout, "missing") {
		t.Errorf("stdout must name missing pieces, got %q", stdout)
	}
	if !strings.Contains(err.Error(), "setup") {
		t.Errorf("error %q must point at the setup command", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := run(t, &app{dir: provisioned(t)}, "run")
	if err == nil {
		t.Fatal("want error for missing required configuration")
	}
	for _, want := range []string{"TELEGRAM_BOT_TOKEN", "GEMINI_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q must mention %q", err, want)
		}
	}
}

func TestUpdateRequiresConfig(t *testing.T) {
	if _, err := run(t, &app{dir: provisioned(t)}, "update"); err == nil {
		t.Fatal("want error for missing required configuration")
	}
}
