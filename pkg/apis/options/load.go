package options

import (
	"fmt"
	"os"

	"github.com/a8m/envsubst"
	"github.com/ghodss/yaml"
)

// Load reads the YAML config file at the given path, substitutes environment
// variable references (${VAR} syntax) and unmarshals it over a fully
// defaulted Options. Unknown keys are rejected so a typo never silently
// drops an option.
func Load(path string) (*Options, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	return LoadBytes(buf)
}

// LoadBytes behaves as Load for an in-memory config document.
func LoadBytes(buf []byte) (*Options, error) {
	buf, err := envsubst.Bytes(buf)
	if err != nil {
		return nil, fmt.Errorf("error substituting environment variables: %w", err)
	}

	opts := NewOptions()
	if err := yaml.Unmarshal(buf, opts, yaml.DisallowUnknownFields); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return opts, nil
}
