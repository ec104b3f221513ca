package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is blockd's YAML configuration.
type Config struct {
	// HTTPAddr is where the editor-facing glue listens.
	HTTPAddr string `yaml:"httpAddr"`

	// DefsDir is the block-definitions root (see package catalog).
	DefsDir string `yaml:"defsDir"`

	// DataFile is the bbolt database path.  Empty means in-memory
	// storage.
	DataFile string `yaml:"dataFile"`

	// ExampleWorkspace optionally points at a workspace blob served
	// to tenants with no saved program.
	ExampleWorkspace string `yaml:"exampleWorkspace"`

	// Icons maps icon keys to image URLs for block decoration.
	Icons map[string]string `yaml:"icons"`

	// ExecTimeoutMS bounds one tenant invocation.
	ExecTimeoutMS int `yaml:"execTimeoutMS"`

	Gateway GatewayConfig `yaml:"gateway"`

	Debug bool `yaml:"debug"`
}

// GatewayConfig selects and configures the event transport.
type GatewayConfig struct {
	// Kind is "ws" or "mqtt".
	Kind string `yaml:"kind"`

	// Websocket settings.
	URL   string `yaml:"url"`
	Token string `yaml:"token"`

	// MQTT settings.
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientId"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	OutTopic string `yaml:"outTopic"`
}

// ExecTimeout returns the configured execution budget, or zero to let
// the dispatcher default apply.
func (c *Config) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutMS) * time.Millisecond
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(filename string) (*Config, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(bs, &c); err != nil {
		return nil, err
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.DefsDir == "" {
		c.DefsDir = "blocks"
	}
	return &c, nil
}
