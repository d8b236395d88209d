package interp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the host-facing configuration surface for the stepwise CLI
// (cmd/stepwise), loaded from a stepwise.yml next to the entry program.
type Config struct {
	// Debug enables the per-step trace (Runtime.IsDebug).
	Debug bool `yaml:"debug"`
	// Entry is the path to the program source to run, relative to the
	// config file's directory.
	Entry string `yaml:"entry"`
	// TimeoutMillis bounds how long `run` waits for the program's top-level
	// execution before giving up; zero means no timeout.
	TimeoutMillis int `yaml:"timeoutMillis"`
}

// DefaultConfig returns the configuration used when no stepwise.yml is
// present.
func DefaultConfig() Config {
	return Config{Entry: "main.step"}
}

// LoadConfig reads and parses a stepwise.yml at path, returning
// DefaultConfig() unchanged if the file does not exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
