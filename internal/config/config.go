// Package config loads daemon configuration from YAML files, .env files,
// and DG_CORE_* environment variables, in that order of increasing
// precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/HPNChanel/data-guardian/internal/transport"
)

// Config is the merged daemon configuration.
type Config struct {
	IPC     IPC     `yaml:"ipc"`
	Logging Logging `yaml:"logging"`
	Limits  Limits  `yaml:"limits"`
	Policy  string  `yaml:"policy"`
}

type IPC struct {
	Transport  string `yaml:"transport"`
	SocketPath string `yaml:"socket_path"`
	NamedPipe  string `yaml:"named_pipe"`
	TCPHost    string `yaml:"tcp_host"`
	TCPPort    int    `yaml:"tcp_port"`
	AllowTCP   bool   `yaml:"allow_tcp"`
}

type Logging struct {
	Level string `yaml:"level"`
}

type Limits struct {
	MaxMessageBytes int     `yaml:"max_message_bytes"`
	ReadTimeoutSecs int     `yaml:"read_timeout"`
	LogQueue        int     `yaml:"log_queue"`
	RatePerSec      float64 `yaml:"rate_per_sec"`
	RateBurst       int     `yaml:"rate_burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		IPC: IPC{
			Transport:  string(transport.DefaultKind()),
			SocketPath: DefaultSocketPath(),
			NamedPipe:  DefaultPipeName,
			TCPHost:    "127.0.0.1",
		},
		Logging: Logging{Level: "info"},
	}
}

// Load builds the configuration. An explicit path must exist; otherwise
// ./.dg-core.yml and the per-user config file are tried in turn. A .env
// file in the working directory and DG_CORE_* variables override file
// values.
func Load(explicit string) (*Config, error) {
	cfg := Default()

	path := explicit
	if path == "" {
		for _, candidate := range []string{".dg-core.yml", DefaultConfigPath()} {
			if candidate == "" {
				continue
			}
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Ignore a missing .env; that is the common case.
	_ = godotenv.Load()
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DG_CORE_SOCKET"); v != "" {
		cfg.IPC.Transport = string(transport.KindUnix)
		cfg.IPC.SocketPath = v
	}
	if v := os.Getenv("DG_CORE_PIPE"); v != "" {
		cfg.IPC.Transport = string(transport.KindPipe)
		cfg.IPC.NamedPipe = v
	}
	if v := os.Getenv("DG_CORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DG_CORE_ALLOW_TCP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.IPC.AllowTCP = b
		}
	}
	if v := os.Getenv("DG_CORE_POLICY"); v != "" {
		cfg.Policy = v
	}
}

// Endpoint translates the IPC section into a transport endpoint.
func (c *Config) Endpoint() (transport.Endpoint, error) {
	switch transport.Kind(c.IPC.Transport) {
	case transport.KindUnix:
		return transport.Endpoint{Kind: transport.KindUnix, Addr: c.IPC.SocketPath}, nil
	case transport.KindPipe:
		return transport.Endpoint{Kind: transport.KindPipe, Addr: c.IPC.NamedPipe}, nil
	case transport.KindTCP:
		addr := fmt.Sprintf("%s:%d", c.IPC.TCPHost, c.IPC.TCPPort)
		return transport.Endpoint{Kind: transport.KindTCP, Addr: addr, AllowTCP: c.IPC.AllowTCP}, nil
	}
	return transport.Endpoint{}, fmt.Errorf("unknown transport %q", c.IPC.Transport)
}

// ReadTimeout converts the configured seconds; zero keeps the transport
// default.
func (l Limits) ReadTimeout() time.Duration {
	return time.Duration(l.ReadTimeoutSecs) * time.Second
}
