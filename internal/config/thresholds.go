package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfigMissing marks optional configuration that is absent or unusable;
// the feature depending on it is skipped.
var ErrConfigMissing = errors.New("config missing")

type Thresholds struct {
	Upper float64
	Lower float64
}

type thresholdsFile struct {
	Upper *float64 `yaml:"upper_threshold"`
	Lower *float64 `yaml:"lower_threshold"`
}

// LoadThresholds reads {"upper_threshold": x, "lower_threshold": y}. The file is JSON,
// which yaml.v3 parses as is.
func LoadThresholds(path string) (Thresholds, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Thresholds{}, fmt.Errorf("%w: %s not found", ErrConfigMissing, path)
	}
	if err != nil {
		return Thresholds{}, fmt.Errorf("%w: read %s: %v", ErrConfigMissing, path, err)
	}

	var tf thresholdsFile
	if err := yaml.Unmarshal(b, &tf); err != nil {
		return Thresholds{}, fmt.Errorf("%w: decode %s: %v", ErrConfigMissing, path, err)
	}
	if tf.Upper == nil || tf.Lower == nil {
		return Thresholds{}, fmt.Errorf("%w: thresholds not found in %s", ErrConfigMissing, path)
	}
	return Thresholds{Upper: *tf.Upper, Lower: *tf.Lower}, nil
}

// SaveEnv merges kv into the dotenv file at path (creating it) and exports the values
// into the current process.
func SaveEnv(path string, kv map[string]string) error {
	env, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		env = map[string]string{}
	} else if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for k, v := range kv {
		env[k] = v
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
