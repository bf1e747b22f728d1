package cli_test

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/baltabekpro/iitu-bot/internal/cli"
	"github.com/baltabekpro/iitu-bot/internal/cli/clitest"
)

type echoApp struct {
	greeting string
}

func (e *echoApp) Flags(fs *flag.FlagSet) {
	fs.StringVar(&e.greeting, "greeting", "Hello", "Greeting to use.")
}

func (e *echoApp) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if len(env.Args) == 0 {
		return fmt.Errorf("%w: missing name", cli.ErrInvalidArgs)
	}
	fmt.Fprintf(env.Stdout, "%s, %s!\n", e.greeting, strings.Join(env.Args, " "))
	return nil
}

func TestRun(t *testing.T) {
	clitest.Run(t, func(t *testing.T) *echoApp {
		return new(echoApp)
	}, map[string]clitest.Case[*echoApp]{
		"passes remaining args to the app": {
			Args:         []string{"wonderful", "world"},
			WantInStdout: "Hello, wonderful world!",
		},
		"parses app flags": {
			Args:         []string{"-greeting", "Привет", "мир"},
			WantInStdout: "Привет, мир!",
		},
		"returns app errors": {
			Args:    []string{},
			WantErr: cli.ErrInvalidArgs,
		},
		"version flag": {
			Args:    []string{"-version"},
			WantErr: cli.ErrExitVersion,
		},
	})
}

func TestRunUndefinedFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	env := &cli.Env{
		Args:   []string{"-no-such-flag"},
		Getenv: func(string) string { return "" },
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
	}

	err := cli.Run(cli.WithEnv(context.Background(), env), new(echoApp))
	if err == nil {
		t.Fatal("want error for an undefined flag")
	}
	if !strings.Contains(stderr.String(), "flag provided but not defined") {
		t.Errorf("stderr = %q, want the flag package diagnostic", stderr.String())
	}
}

func TestExitError(t *testing.T) {
	wrapped := fmt.Errorf("install failed: %w", &cli.ExitError{Code: 3, Err: errors.New("exit status 3")})

	var ee *cli.ExitError
	if !errors.As(wrapped, &ee) {
		t.Fatal("ExitError must survive wrapping")
	}
	if ee.Code != 3 {
		t.Errorf("code = %d, want 3", ee.Code)
	}
}

func TestGetEnvDefaultsToOS(t *testing.T) {
	env := cli.GetEnv(context.Background())
	if env.Stdout != os.Stdout || env.Stderr != os.Stderr {
		t.Error("context without an environment must fall back to the OS one")
	}
}

func TestEnvLogf(t *testing.T) {
	var stderr bytes.Buffer
	env := &cli.Env{Stderr: &stderr}

	env.Logf("processed %d pages", 42)

	if got, want := stderr.String(), "processed 42 pages\n"; got != want {
		t.Errorf("stderr = %q, want %q", got, want)
	}
}
