package tiering

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	KiB = uint64(1) << 10
	MiB = KiB << 10
	GiB = MiB << 10
)

var ErrInvalidConfig = errors.New("invalid tiering config")

// Config holds every tunable constant of the tiering pass.  The zero value is
// not usable; start from DefaultConfig.
type Config struct {
	// Fast tier capacity in bytes.
	Capacity uint64 `yaml:"capacity"`

	// Minimum score for a non-forced allocation to be selected.
	Threshold float64 `yaml:"threshold"`

	// Added to the score of allocations without a matching deallocation.
	EscapePenalty float64 `yaml:"escape_penalty"`

	WriteWeight float64 `yaml:"write_weight"`
	ReadWeight  float64 `yaml:"read_weight"`

	ParallelFunctionBonus float64 `yaml:"parallel_function_bonus"`
	ParallelLoopBonus     float64 `yaml:"parallel_loop_bonus"`

	// Flat bonus for passing the allocation (or a derived pointer) to an
	// untracked call.
	CallBonus float64 `yaml:"call_bonus"`

	// Score per KiB of statically known allocation size.
	SizeScale float64 `yaml:"size_scale"`

	// The profile signal is sqrt(access_count) / ProfileDivisor.
	ProfileDivisor float64 `yaml:"profile_divisor"`

	Allocate     string `yaml:"allocate"`
	Free         string `yaml:"free"`
	FastAllocate string `yaml:"fast_allocate"`
	FastFree     string `yaml:"fast_free"`
}

func DefaultConfig() Config {
	return Config{
		Capacity:              GiB,
		Threshold:             80.0,
		EscapePenalty:         -10.0,
		WriteWeight:           8.0,
		ReadWeight:            5.0,
		ParallelFunctionBonus: 20.0,
		ParallelLoopBonus:     10.0,
		CallBonus:             5.0,
		SizeScale:             0.1,
		ProfileDivisor:        10.0,
		Allocate:              "malloc",
		Free:                  "free",
		FastAllocate:          "hbm_malloc",
		FastFree:              "hbm_free",
	}
}

func (config Config) Validate() error {
	if config.Capacity == 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidConfig)
	}

	if config.ProfileDivisor <= 0 {
		return fmt.Errorf(
			"%w: profile_divisor must be positive (%v)",
			ErrInvalidConfig,
			config.ProfileDivisor)
	}

	names := map[string]string{}
	for _, op := range []struct {
		key  string
		name string
	}{
		{"allocate", config.Allocate},
		{"free", config.Free},
		{"fast_allocate", config.FastAllocate},
		{"fast_free", config.FastFree},
	} {
		if op.name == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, op.key)
		}

		prev, ok := names[op.name]
		if ok {
			return fmt.Errorf(
				"%w: %s and %s both name (%s)",
				ErrInvalidConfig,
				prev,
				op.key,
				op.name)
		}
		names[op.name] = op.key
	}

	return nil
}

// Returns true if the call target is one of the operations managed by the
// pass.
func (config Config) isTrackedOperation(name string) bool {
	switch name {
	case config.Allocate, config.Free, config.FastAllocate, config.FastFree:
		return true
	}
	return false
}

// Decodes a YAML document on top of the default config.  Unknown keys are
// rejected.
func DecodeConfig(reader io.Reader) (Config, error) {
	config := DefaultConfig()

	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	err := decoder.Decode(&config)
	if err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("failed to decode tiering config: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}

	return config, nil
}

func LoadConfig(fileName string) (Config, error) {
	content, err := os.ReadFile(fileName)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read tiering config: %w", err)
	}

	config, err := DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", fileName, err)
	}

	return config, nil
}
