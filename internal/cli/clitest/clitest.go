// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package clitest runs table tests against command-line applications built
// with the cli package.
package clitest

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"go.astrophena.name/tinkerbot/internal/cli"
)

// Case is a single invocation of an application.
type Case[App cli.App] struct {
	// Args are the command-line arguments, without the program name.
	Args []string
	// Stdin is the standard input. Empty if nil.
	Stdin io.Reader
	// Env holds the environment variables visible to the application.
	Env map[string]string
	// WantErr, if set, must be found in the returned error with errors.Is.
	WantErr error
	// WantNothingPrinted requires both stdout and stderr to stay empty.
	WantNothingPrinted bool
	// WantInStdout and WantInStderr are substrings the outputs must contain.
	WantInStdout string
	WantInStderr string
	// CheckFunc, if set, inspects the application after it has run.
	CheckFunc func(*testing.T, App)
}

// Run runs every case in parallel on an application returned by setup.
func Run[App cli.App](t *testing.T, setup func(*testing.T) App, cases map[string]Case[App]) {
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			app := setup(t)
			stdin := tc.Stdin
			if stdin == nil {
				stdin = strings.NewReader("")
			}
			var stdout, stderr bytes.Buffer
			env := &cli.Env{
				Args:   tc.Args,
				Getenv: func(key string) string { return tc.Env[key] },
				Stdin:  stdin,
				Stdout: &stdout,
				Stderr: &stderr,
			}

			checkErr(t, cli.Run(cli.WithEnv(t.Context(), env), app), tc.WantErr)
			checkOutput(t, "stdout", stdout.String(), tc.WantInStdout, tc.WantNothingPrinted)
			checkOutput(t, "stderr", stderr.String(), tc.WantInStderr, tc.WantNothingPrinted)

			if tc.CheckFunc != nil {
				tc.CheckFunc(t, app)
			}
		})
	}
}

func checkErr(t *testing.T, err, want error) {
	t.Helper()
	switch {
	case want == nil && err != nil:
		t.Fatalf("unexpected error: %v", err)
	case want != nil && err == nil:
		t.Fatalf("must fail with error: %v", want)
	case want != nil && !errors.Is(err, want):
		t.Fatalf("want error %v, got %v", want, err)
	}
}

func checkOutput(t *testing.T, name, got, want string, wantEmpty bool) {
	t.Helper()
	if wantEmpty && got != "" {
		t.Errorf("%s must be empty, got: %q", name, got)
	}
	if want != "" && !strings.Contains(got, want) {
		t.Errorf("%s must contain %q, got: %q", name, want, got)
	}
}
