package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Store  StoreConfig  `yaml:"store" json:"store"`
	Static StaticConfig `yaml:"static" json:"static"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr" json:"addr"`
	CookieSecure bool   `yaml:"cookie_secure" json:"cookie_secure"`
}

type StoreConfig struct {
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Strict makes a corrupt task file a hard failure instead of degrading
	// to an empty list.
	Strict bool `yaml:"strict" json:"strict"`

	LockTimeoutMS int `yaml:"lock_timeout_ms" json:"lock_timeout_ms"`
}

type StaticConfig struct {
	Dir     string `yaml:"dir" json:"dir"`
	UseDisk bool   `yaml:"use_disk" json:"use_disk"`
}

func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Store.DataDir == "" {
		c.Store.DataDir = "data"
	}
	if c.Store.LockTimeoutMS <= 0 {
		c.Store.LockTimeoutMS = 5000
	}
	if c.Static.Dir == "" {
		c.Static.Dir = "static"
	}
}

func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Store.LockTimeoutMS) * time.Millisecond
}

func Default() *Config {
	var c Config
	c.ApplyDefaults()
	return &c
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	return &c, nil
}
