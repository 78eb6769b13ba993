// Package config loads tool settings from a TOML file.
package config

import (
	"bytes"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"tlog.app/go/errors"
)

// Config holds the settings shared by all commands. Command-line flags
// override what the file sets.
type Config struct {
	// Workers is the number of functions structured in parallel.
	Workers int `toml:"workers"`

	// MaxRounds caps interval reduction rounds. Zero means no cap.
	MaxRounds int `toml:"max_rounds"`

	// BaseAddr is the load address of raw code files.
	BaseAddr uint64 `toml:"base_addr"`

	// MaxSteps caps decoded instructions per file. Zero means the decoder default.
	MaxSteps int `toml:"max_steps"`

	Theme string `toml:"theme"`

	// MinBlocks skips smaller functions in batch mode.
	MinBlocks int `toml:"min_blocks"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Workers: runtime.GOMAXPROCS(0),
		Theme:   "nasa",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	c := Default()

	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(err, "read config")
	}

	if err := Parse(data, &c); err != nil {
		return c, errors.Wrap(err, "config %v", path)
	}

	return c, nil
}

// Parse decodes TOML into c, keeping fields the data does not set.
// Unknown keys are an error.
func Parse(data []byte, c *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(c); err != nil {
		return errors.Wrap(err, "decode")
	}

	return c.Validate()
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	switch {
	case c.Workers < 0:
		return errors.New("workers: negative value %d", c.Workers)
	case c.MaxRounds < 0:
		return errors.New("max_rounds: negative value %d", c.MaxRounds)
	case c.MaxSteps < 0:
		return errors.New("max_steps: negative value %d", c.MaxSteps)
	case c.MinBlocks < 0:
		return errors.New("min_blocks: negative value %d", c.MinBlocks)
	}

	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}

	return nil
}
