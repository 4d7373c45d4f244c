package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zoobzio/pushz"
	"github.com/zoobzio/pushz/storage/fs"
)

// Config is the pushsort configuration file.
type Config struct {
	Sorter  pushz.SorterConfig `yaml:"sorter"`
	Storage fs.Config          `yaml:"storage"`
	Workers int                `yaml:"workers"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() Config {
	return Config{
		Sorter: pushz.SorterConfig{
			ItemsInMemory:   100_000,
			MergeBufferSize: 64,
			Name:            "pushsort",
		},
		Storage: fs.DefaultConfig(),
		Workers: 4,
	}
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
