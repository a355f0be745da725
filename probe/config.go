package probe

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultWorkers = 100
	defaultRounds  = 1
	defaultBurst   = 1

	// maxWorkers bounds the goroutines and channel buffer a run allocates.
	maxWorkers = 100_000

	envPrefix = "PROBE"
)

// Config controls how hard the probe hits GetInstance.
type Config struct {
	// Workers is the number of goroutines released at once.
	Workers int `mapstructure:"workers" yaml:"workers"`
	// Rounds is how many times each worker calls GetInstance.
	Rounds int `mapstructure:"rounds" yaml:"rounds"`
	// Rate caps calls per second across all workers. Zero or less means
	// unpaced.
	Rate  float64 `mapstructure:"rate" yaml:"rate"`
	Burst int     `mapstructure:"burst" yaml:"burst"`
}

func DefaultConfig() Config {
	return Config{
		Workers: defaultWorkers,
		Rounds:  defaultRounds,
		Burst:   defaultBurst,
	}
}

func (c Config) Paced() bool {
	return c.Rate > 0
}

func (c Config) Validate() error {
	if c.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Workers > maxWorkers {
		return errors.Errorf("workers must be at most %d, got %d", maxWorkers, c.Workers)
	}
	if c.Rounds < 1 {
		return errors.Errorf("rounds must be at least 1, got %d", c.Rounds)
	}
	if c.Paced() && c.Burst < 1 {
		return errors.Errorf("burst must be at least 1 when rate is set, got %d", c.Burst)
	}
	return nil
}

// YAML renders the config in the format LoadConfig reads.
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	return out, errors.Wrap(err, "encoding probe config")
}

// LoadConfig starts from DefaultConfig, applies the YAML file at path if
// one is given, then the PROBE_* environment variables (PROBE_WORKERS,
// PROBE_ROUNDS, PROBE_RATE, PROBE_BURST).
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault("workers", def.Workers)
	v.SetDefault("rounds", def.Rounds)
	v.SetDefault("rate", def.Rate)
	v.SetDefault("burst", def.Burst)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "reading probe config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding probe config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
