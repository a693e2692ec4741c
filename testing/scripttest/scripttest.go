// Package scripttest provides a test harness for scripts run by runjs.
package scripttest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/reglet-dev/runjs/domain/entities"
	"github.com/reglet-dev/runjs/host"
	"github.com/reglet-dev/runjs/hostfuncs"
	"github.com/reglet-dev/runjs/internal/testutil"
)

// Result is everything observable about one run.
type Result struct {
	Err    error
	State  entities.RunState
	Buffer string
	Stdout string
	Stderr string
}

// TestCase defines a test case for a script.
type TestCase struct {
	Name     string
	Files    map[string]string // slash-separated path -> contents
	Entry    string
	Options  []host.Option
	Validate func(t *testing.T, r *Result)
}

// Run writes files into a fresh directory and runs entry, relative to it, with
// a buffer of its own.
func Run(t *testing.T, files map[string]string, entry string, opts ...host.Option) *Result {
	t.Helper()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, files)

	var stdout, stderr bytes.Buffer
	buf := hostfuncs.NewHostBuffer()
	base := []host.Option{
		host.WithBuffer(buf),
		host.WithWorkingDir(dir),
		host.WithStdout(&stdout),
		host.WithStderr(&stderr),
	}

	runner, err := host.NewRunner(append(base, opts...)...)
	if err != nil {
		t.Fatalf("failed to create runner: %v", err)
	}

	runErr := runner.Run(context.Background(), entry)
	return &Result{
		Err:    runErr,
		State:  runner.State(),
		Buffer: buf.String(),
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
}

// RunScriptTests runs a table of script tests.
func RunScriptTests(t *testing.T, tests []TestCase) {
	t.Helper()

	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			r := Run(t, tc.Files, tc.Entry, tc.Options...)
			if tc.Validate != nil {
				tc.Validate(t, r)
			}
		})
	}
}

// AssertSuccess asserts the run completed.
func AssertSuccess(t *testing.T, r *Result) {
	t.Helper()
	if r.Err != nil || r.State != entities.RunStateCompleted {
		t.Errorf("expected completed run, got %s: %v", r.State, r.Err)
	}
}

// AssertFailure asserts the run failed with an error mentioning contains.
func AssertFailure(t *testing.T, r *Result, contains string) {
	t.Helper()
	if r.State != entities.RunStateFailed || r.Err == nil {
		t.Errorf("expected failed run, got %s", r.State)
		return
	}
	if !strings.Contains(r.Err.Error(), contains) {
		t.Errorf("error %q does not mention %q", r.Err, contains)
	}
}

// AssertErrorAs asserts the run's error has a T in its chain.
func AssertErrorAs[T error](t *testing.T, r *Result) T {
	t.Helper()
	var target T
	if !errors.As(r.Err, &target) {
		t.Errorf("expected %T in chain of %v", target, r.Err)
	}
	return target
}

// AssertBuffer asserts the buffer's final contents.
func AssertBuffer(t *testing.T, r *Result, expected string) {
	t.Helper()
	if r.Buffer != expected {
		t.Errorf("buffer: expected %q, got %q", expected, r.Buffer)
	}
}
