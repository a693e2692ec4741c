// Package config holds the tunables of a run.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/go-playground/validator/v10"

	domainerrors "github.com/reglet-dev/runjs/domain/errors"
	runjslog "github.com/reglet-dev/runjs/log"
)

// UnknownMediaPolicy decides what an import of a module with an unrecognized
// extension does.
type UnknownMediaPolicy string

const (
	// UnknownMediaAbort fails the run with a ClassificationError.
	UnknownMediaAbort UnknownMediaPolicy = "abort"
	// UnknownMediaSkip logs a warning and links an empty module in its place.
	UnknownMediaSkip UnknownMediaPolicy = "skip"
)

// Config is the complete set of run options. The zero value is not valid; start
// from Default.
type Config struct {
	UnknownMedia UnknownMediaPolicy `json:"unknown_media" validate:"required,oneof=abort skip"`
	Target       string             `json:"target" validate:"required,oneof=es2017 es2018 es2019 es2020 es2021 es2022 esnext"`
	JSXFactory   string             `json:"jsx_factory" validate:"required"`
	JSXFragment  string             `json:"jsx_fragment" validate:"required"`
	LogLevel     string             `json:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat    string             `json:"log_format" validate:"required,oneof=text json"`
}

// validate is a package-level singleton; validators cache struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration the CLI runs with.
func Default() Config {
	return Config{
		UnknownMedia: UnknownMediaAbort,
		Target:       "es2017",
		JSXFactory:   "React.createElement",
		JSXFragment:  "React.Fragment",
		LogLevel:     "warn",
		LogFormat:    "text",
	}
}

// Validate checks every field and reports the first failure as a ConfigError.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &domainerrors.ConfigError{
			Field: fe.Field(),
			Err:   fmt.Errorf("%q does not satisfy %s", fmt.Sprint(fe.Value()), strings.TrimSpace(fe.Tag()+" "+fe.Param())),
		}
	}
	return &domainerrors.ConfigError{Err: err}
}

// EsbuildTarget maps Target to esbuild's enum.
func (c Config) EsbuildTarget() api.Target {
	switch c.Target {
	case "es2018":
		return api.ES2018
	case "es2019":
		return api.ES2019
	case "es2020":
		return api.ES2020
	case "es2021":
		return api.ES2021
	case "es2022":
		return api.ES2022
	case "esnext":
		return api.ESNext
	default:
		return api.ES2017
	}
}

// Level maps LogLevel to a slog level, falling back to warn.
func (c Config) Level() slog.Level {
	level, err := runjslog.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}
