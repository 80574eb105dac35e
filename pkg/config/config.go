package config

import (
	"os"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"mvdan.cc/sh/v3/shell"

	"github.com/ngld/selfbuild/pkg/logging"
)

// DefaultFile is read from the working directory if it exists
const DefaultFile = "selfbuild.toml"

// Config describes all configuration options
type Config struct {
	Log struct {
		Level   string `default:"info" usage:"Echo level: none, info, trace or all"`
		NoColor bool   `default:"false" usage:"Disable ANSI colors in console output"`
	}
	Compiler string `default:"go build" usage:"Command used to rebuild a build program; invoked as <compiler> -o <binary> <source>"`
}

// Loader initializes an empty config object and returns a new Loader for this object.
// Flags are never parsed since they belong to the host build program.
func Loader(files ...string) (*Config, *aconfig.Loader) {
	if len(files) == 0 {
		files = []string{DefaultFile}
	}

	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags:        true,
		AllowUnknownEnvs: true,
		EnvPrefix:        "SELFBUILD",
		Files:            files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Load reads and validates the configuration from the given files (or DefaultFile) and
// the environment
func Load(files ...string) (*Config, error) {
	cfg, loader := Loader(files...)
	if err := loader.Load(); err != nil {
		return nil, eris.Wrap(err, "failed to load config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return eris.Wrap(err, "invalid value for log.level")
	}

	if _, err := cfg.CompilerCommand(); err != nil {
		return eris.Wrap(err, "invalid value for compiler")
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// CompilerCommand splits the compiler setting into argv parts using shell quoting rules.
// Environment variables like $CC are expanded.
func (cfg *Config) CompilerCommand() ([]string, error) {
	parts, err := shell.Fields(cfg.Compiler, os.Getenv)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse %q", cfg.Compiler)
	}

	if len(parts) == 0 {
		return nil, eris.New("compiler command is empty")
	}

	return parts, nil
}
