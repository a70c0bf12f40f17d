// Package config loads the harness settings and the probe table from YAML,
// applies environment overrides, and turns the result into the runner and
// driver inputs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/logging"
	"github.com/ajitpratap0/mcp-probe/pkg/probe"
	"github.com/ajitpratap0/mcp-probe/pkg/protocol"
	"github.com/ajitpratap0/mcp-probe/pkg/session"
)

// Environment variables that override file settings
const (
	EnvBinary  = "MCP_PROBE_BINARY"
	EnvRepo    = "MCP_PROBE_REPO"
	EnvTimeout = "MCP_PROBE_TIMEOUT"
)

// Config is the complete harness configuration
type Config struct {
	Binary          string        `yaml:"binary"`
	Mode            string        `yaml:"mode"`
	Args            []string      `yaml:"args"`
	Env             []string      `yaml:"env"`
	Repo            string        `yaml:"repo"`
	Timeout         time.Duration `yaml:"timeout"`
	StrictArguments bool          `yaml:"strict_arguments"`
	Client          ClientConfig  `yaml:"client"`
	Log             LogConfig     `yaml:"log"`
	Probes          []ProbeConfig `yaml:"probes"`
}

// ClientConfig is the identity sent in initialize
type ClientConfig struct {
	Name            string `yaml:"name"`
	Version         string `yaml:"version"`
	ProtocolVersion string `yaml:"protocol_version"`
}

// LogConfig selects the log level and format
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProbeConfig is one entry of the probe table. String argument values may
// reference ${repo}.
type ProbeConfig struct {
	Title     string              `yaml:"title"`
	Tool      string              `yaml:"tool"`
	Arguments *protocol.Arguments `yaml:"arguments"`
	MaxLines  int                 `yaml:"max_lines"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Binary:  "neurosiphon",
		Mode:    "mcp",
		Repo:    ".",
		Timeout: session.DefaultTimeout,
		Client: ClientConfig{
			Name:            session.DefaultClientName,
			Version:         session.DefaultClientVersion,
			ProtocolVersion: protocol.ProtocolVersion,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Probes: DefaultProbes(),
	}
}

// Load reads path over the defaults. An empty path returns the defaults. A
// file that lists probes replaces the default table entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, probeerrors.ConfigLoad(path, err)
	}

	file := &Config{}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, probeerrors.ConfigLoad(path, err)
	}
	cfg.merge(file)
	return cfg, nil
}

func (c *Config) merge(file *Config) {
	if file.Binary != "" {
		c.Binary = file.Binary
	}
	if file.Mode != "" {
		c.Mode = file.Mode
	}
	if len(file.Args) > 0 {
		c.Args = file.Args
	}
	if len(file.Env) > 0 {
		c.Env = file.Env
	}
	if file.Repo != "" {
		c.Repo = file.Repo
	}
	if file.Timeout != 0 {
		c.Timeout = file.Timeout
	}
	if file.StrictArguments {
		c.StrictArguments = true
	}
	if file.Client.Name != "" {
		c.Client.Name = file.Client.Name
	}
	if file.Client.Version != "" {
		c.Client.Version = file.Client.Version
	}
	if file.Client.ProtocolVersion != "" {
		c.Client.ProtocolVersion = file.Client.ProtocolVersion
	}
	if file.Log.Level != "" {
		c.Log.Level = file.Log.Level
	}
	if file.Log.Format != "" {
		c.Log.Format = file.Log.Format
	}
	if len(file.Probes) > 0 {
		c.Probes = file.Probes
	}
}

// ApplyEnv overrides settings from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBinary); ok && v != "" {
		c.Binary = v
	}
	if v, ok := lookup(EnvRepo); ok && v != "" {
		c.Repo = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return probeerrors.ConfigInvalid(EnvTimeout, err.Error())
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the settings needed to run at least one probe
func (c *Config) Validate() error {
	var errs []probeerrors.ProbeError

	if strings.TrimSpace(c.Binary) == "" {
		errs = append(errs, probeerrors.ConfigInvalid("binary", "must not be empty"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, probeerrors.ConfigInvalid("timeout", fmt.Sprintf("must be positive, got %v", c.Timeout)))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, probeerrors.ConfigInvalid("log.level", err.Error()))
	}
	if _, err := logging.NewFormatter(c.Log.Format, false); err != nil {
		errs = append(errs, probeerrors.ConfigInvalid("log.format", err.Error()))
	}
	for i, p := range c.Probes {
		if p.Tool == "" {
			errs = append(errs, probeerrors.ConfigInvalid(fmt.Sprintf("probes[%d].tool", i), "must not be empty"))
		}
		if p.MaxLines < 0 {
			errs = append(errs, probeerrors.ConfigInvalid(fmt.Sprintf("probes[%d].max_lines", i), "must not be negative"))
		}
	}

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Message()
	}
	return probeerrors.ConfigInvalid("configuration", strings.Join(messages, "; "))
}

// RepoPath returns Repo as an absolute path
func (c *Config) RepoPath() string {
	if abs, err := filepath.Abs(c.Repo); err == nil {
		return abs
	}
	return c.Repo
}

// ProbeTable returns the probes with ${repo} expanded. Each probe gets its
// own copy of the arguments.
func (c *Config) ProbeTable() []probe.Probe {
	repo := c.RepoPath()
	mapping := func(name string) string {
		if name == "repo" {
			return repo
		}
		return "${" + name + "}"
	}

	probes := make([]probe.Probe, len(c.Probes))
	for i, p := range c.Probes {
		title := p.Title
		if title == "" {
			title = p.Tool
		}
		probes[i] = probe.Probe{
			Title:     title,
			Tool:      p.Tool,
			Arguments: p.Arguments.Expand(mapping),
			MaxLines:  p.MaxLines,
		}
	}
	return probes
}

// RunnerConfig returns the subprocess settings for session.NewRunner. The
// server is launched as "binary mode args...".
func (c *Config) RunnerConfig(logger logging.Logger) session.RunnerConfig {
	var args []string
	if c.Mode != "" {
		args = append(args, c.Mode)
	}
	args = append(args, c.Args...)
	return session.RunnerConfig{
		Command: c.Binary,
		Args:    args,
		Env:     c.Env,
		Timeout: c.Timeout,
		Logger:  logger,
	}
}

// BuildOptions returns the handshake options for session.Build
func (c *Config) BuildOptions() []session.BuildOption {
	return []session.BuildOption{
		session.WithClientInfo(c.Client.Name, c.Client.Version),
		session.WithProtocolVersion(c.Client.ProtocolVersion),
	}
}
