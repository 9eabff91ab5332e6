package remote

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "10s" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("remote: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds connection settings for the remote modeling service.
type Config struct {
	// Endpoint is the websocket URL, e.g. "ws://localhost:9001/modeler".
	Endpoint string `yaml:"endpoint"`
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout Duration `yaml:"handshake_timeout"`
	// CallTimeout bounds each request/response round trip. Zero means
	// no deadline beyond the caller's context.
	CallTimeout Duration `yaml:"call_timeout"`
}

// DefaultConfig returns a config with sane timeouts and no endpoint.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: Duration(10 * time.Second),
		CallTimeout:      Duration(30 * time.Second),
	}
}

// LoadConfig reads a YAML config file and applies defaults for unset
// fields.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("remote: read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("remote: parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("remote: config is missing endpoint")
	}
	return nil
}
