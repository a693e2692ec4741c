package host

import (
	"io"
	"log/slog"

	"github.com/reglet-dev/runjs/config"
	"github.com/reglet-dev/runjs/domain/ports"
	"github.com/reglet-dev/runjs/hostfuncs"
)

// runnerConfig holds configuration for the Runner.
type runnerConfig struct {
	run     config.Config
	buffer  *hostfuncs.HostBuffer
	bundles []hostfuncs.HostFuncBundle
	loader  ports.ModuleLoader
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
	workDir string
}

func defaultRunnerConfig() runnerConfig {
	return runnerConfig{
		run:    config.Default(),
		stdout: io.Discard,
		stderr: io.Discard,
	}
}

// Option defines a functional option for configuring the Runner.
type Option func(*runnerConfig)

// WithConfig sets the run options.
func WithConfig(cfg config.Config) Option {
	return func(c *runnerConfig) {
		c.run = cfg
	}
}

// WithBuffer sets the buffer the append and read ops work on.
// Without it the Runner uses hostfuncs.ProcessBuffer.
func WithBuffer(buf *hostfuncs.HostBuffer) Option {
	return func(c *runnerConfig) {
		c.buffer = buf
	}
}

// WithHostFunctions registers additional host ops next to append and read.
// Names must not clash with those already registered.
func WithHostFunctions(bundles ...hostfuncs.HostFuncBundle) Option {
	return func(c *runnerConfig) {
		c.bundles = append(c.bundles, bundles...)
	}
}

// WithLoader replaces the module loader.
func WithLoader(l ports.ModuleLoader) Option {
	return func(c *runnerConfig) {
		c.loader = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *runnerConfig) {
		c.logger = l
	}
}

// WithStdout sets where console.log output goes.
func WithStdout(w io.Writer) Option {
	return func(c *runnerConfig) {
		c.stdout = w
	}
}

// WithStderr sets where console.warn and console.error output goes.
func WithStderr(w io.Writer) Option {
	return func(c *runnerConfig) {
		c.stderr = w
	}
}

// WithWorkingDir sets the directory relative entry paths are resolved
// against. Without it the process working directory is used.
func WithWorkingDir(dir string) Option {
	return func(c *runnerConfig) {
		c.workDir = dir
	}
}
