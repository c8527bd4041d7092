package mitiq

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var configValidate = validator.New()

// Config holds the tunables of an Executor.
type Config struct {
	// MaxBatchSize caps the circuits sent in one batched backend call.
	MaxBatchSize int `yaml:"max_batch_size" validate:"gt=0"`

	// Concurrency is the number of backend calls allowed in flight.
	Concurrency int `yaml:"concurrency" validate:"gte=1"`

	// HermitianTolerance is the largest imaginary coefficient an
	// observable may carry before a warning is logged.
	HermitianTolerance float64 `yaml:"hermitian_tolerance" validate:"gte=0"`

	// RateLimit is backend calls per second, 0 for unlimited.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" validate:"gte=1"`
}

func NewConfig() *Config {
	return &Config{
		MaxBatchSize:       75,
		Concurrency:        1,
		HermitianTolerance: 1e-4,
		RateBurst:          1,
	}
}

// LoadConfig reads a YAML file over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	config := NewConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}
