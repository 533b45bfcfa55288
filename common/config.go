package common

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const ServerConfPath = "/etc/tempdb/server.yaml"

// ServerConfig drives the companion line server in cloud/.
type ServerConfig struct {
	Listen        string        `yaml:"Listen"`
	Reply         string        `yaml:"Reply"`
	ReadBuffer    int           `yaml:"ReadBuffer"`
	StatsInterval time.Duration `yaml:"StatsInterval"`
	LogLevel      string        `yaml:"LogLevel"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Listen:        "127.0.0.1:9999",
		Reply:         "OK",
		ReadBuffer:    4096,
		StatsInterval: time.Minute,
		LogLevel:      "info",
	}
}

// LoadServerConfig reads path over the defaults. A missing file is not an error; the
// returned bool reports whether the file was found.
func LoadServerConfig(path string) (ServerConfig, bool, error) {
	conf := DefaultServerConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return conf, false, nil
	}
	if err != nil {
		return conf, false, err
	}
	if err = yaml.Unmarshal(data, &conf); err != nil {
		return conf, true, err
	}
	conf.fill()
	return conf, true, nil
}

func SaveServerConfig(path string, conf ServerConfig) error {
	data, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// fill puts defaults back for keys the file set to zero values.
func (c *ServerConfig) fill() {
	d := DefaultServerConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Reply == "" {
		c.Reply = d.Reply
	}
	if c.ReadBuffer <= 0 {
		c.ReadBuffer = d.ReadBuffer
	}
	if c.StatsInterval <= 0 {
		c.StatsInterval = d.StatsInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}
