package setup

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/baltabekpro/iitu-bot/internal/cli"
)

// Toolchain abstracts the underlying tool invocations so the bootstrap steps
// can be tested without touching a real toolchain.
type Toolchain interface {
	// Version reports the installed toolchain version, e.g. "1.22.5".
	Version(ctx context.Context) (string, error)
	// CreateEnv provisions the isolated tool environment at dir. It must be
	// safe to call when dir already exists.
	CreateEnv(ctx context.Context, dir string) error
	// UpdateInstaller refreshes the installer's own state before any
	// dependency is installed.
	UpdateInstaller(ctx context.Context) error
	// Install installs a single manifest constraint into the environment at
	// envDir.
	Install(ctx context.Context, envDir, constraint string) error
}

// GoToolchain implements [Toolchain] by shelling out to the Go toolchain.
// Tools are installed with GOBIN pointing inside the environment directory
// and a module cache of their own, so nothing leaks into the host
// environment.
type GoToolchain struct {
	// Dir is the working directory for tool invocations.
	Dir string
	// Stdout and Stderr receive the tools' output.
	Stdout io.Writer
	Stderr io.Writer
}

// Version implements [Toolchain].
func (t *GoToolchain) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "go", "env", "GOVERSION")
	cmd.Dir = t.Dir
	out, err := cmd.Output()
	if err != nil {
		return "", exitErr(err)
	}
	return strings.TrimPrefix(strings.TrimSpace(string(out)), "go"), nil
}

// CreateEnv implements [Toolchain].
func (t *GoToolchain) CreateEnv(_ context.Context, dir string) error {
	for _, sub := range []string{"bin", filepath.Join("pkg", "mod")} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// UpdateInstaller implements [Toolchain] by refreshing the bot's own module
// download state.
func (t *GoToolchain) UpdateInstaller(ctx context.Context) error {
	return t.run(ctx, nil, "mod", "download")
}

// Install implements [Toolchain].
func (t *GoToolchain) Install(ctx context.Context, envDir, constraint string) error {
	absEnv, err := filepath.Abs(envDir)
	if err != nil {
		return err
	}
	env := append(os.Environ(),
		"GOBIN="+filepath.Join(absEnv, "bin"),
		"GOMODCACHE="+filepath.Join(absEnv, "pkg", "mod"),
	)
	return t.run(ctx, env, "install", constraint)
}

func (t *GoToolchain) run(ctx context.Context, env []string, args ...string) error {
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = t.Dir
	cmd.Env = env
	cmd.Stdout = t.Stdout
	cmd.Stderr = t.Stderr
	return exitErr(cmd.Run())
}

// exitErr wraps exec exit failures into a [cli.ExitError] so the process
// exits with the failing tool's exit code.
func exitErr(err error) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &cli.ExitError{Code: ee.ExitCode(), Err: err}
	}
	return err
}
