// Command runjs runs one script file against the process-wide buffer.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/reglet-dev/runjs/config"
	domainerrors "github.com/reglet-dev/runjs/domain/errors"
	"github.com/reglet-dev/runjs/host"
	"github.com/reglet-dev/runjs/hostfuncs"
	runjslog "github.com/reglet-dev/runjs/log"
)

const usage = "Usage: runjs <file>"

// runFunc runs one script file. It is the only path to the filesystem and to
// an engine.
type runFunc func(ctx context.Context, path string, stdout, stderr io.Writer) error

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit status. Script failures
// are reported on stderr but do not change the status.
func run(args []string, stdout, stderr io.Writer) int {
	return execute(args, stdout, stderr, runFile)
}

func execute(args []string, stdout, stderr io.Writer, runScript runFunc) int {
	cmd := newRootCmd(stdout, stderr, runScript)
	// cobra reads os.Args when given nil.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		var usageErr *domainerrors.UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(stderr, usageErr.Usage)
			return 1
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer, runScript runFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "runjs <file>",
		Short:         "Run a JavaScript or TypeScript file",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &domainerrors.UsageError{Usage: usage}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runScript(cmd.Context(), args[0], stdout, stderr); err != nil {
				errorLabel(stderr).Fprint(stderr, "error:")
				fmt.Fprintf(stderr, " %v\n", err)
			}
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

func runFile(ctx context.Context, path string, stdout, stderr io.Writer) error {
	cfg := config.Default()
	logger := runjslog.New(stderr,
		runjslog.WithLevel(cfg.Level()),
		runjslog.WithFormat(runjslog.Format(cfg.LogFormat)),
	)

	runner, err := host.NewRunner(
		host.WithConfig(cfg),
		host.WithBuffer(hostfuncs.ProcessBuffer()),
		host.WithLogger(logger),
		host.WithStdout(stdout),
		host.WithStderr(stderr),
	)
	if err != nil {
		return err
	}
	return runner.Run(ctx, path)
}

// errorLabel colors the prefix only when w is a terminal.
func errorLabel(w io.Writer) *color.Color {
	c := color.New(color.FgRed, color.Bold)
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
