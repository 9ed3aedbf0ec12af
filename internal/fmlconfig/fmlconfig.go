// Package fmlconfig loads optional project-level defaults for the
// dictionary converter from an fmld.toml file, the way internal/tqw loads
// TQW resource files for the teacher engine: read the whole file, unmarshal
// with BurntSushi/toml, and let the caller layer CLI flags on top.
package fmlconfig

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config carries batch-run ergonomics only; it never touches tag or
// reference-type registry semantics (spec.md §4.2 keeps those a fixed
// static table). Load starts from Default(), so a missing or empty
// fmld.toml is equivalent to passing no flags at all. The CLI reads only
// IndentWithTabs and RoundTripCheck; TxtExtension and DBExtension are
// loaded but not consulted, and input type is detected from the fixed
// .txt/.db extensions.
type Config struct {
	IndentWithTabs bool   `toml:"indent_with_tabs"`
	RoundTripCheck bool   `toml:"round_trip_check"`
	TxtExtension   string `toml:"txt_extension"`
	DBExtension    string `toml:"db_extension"`
}

// Default returns the Config used when no fmld.toml is present: both
// switches off, extensions "txt" and "db".
func Default() Config {
	return Config{TxtExtension: "txt", DBExtension: "db"}
}

// Load reads and parses path as an fmld.toml project file. A missing file
// is not an error: it returns Default() unchanged, since the project file
// is optional and CLI flags carry their own defaults regardless.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
