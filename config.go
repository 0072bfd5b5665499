package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFilename is looked up in the app directory unless DEVLOOP_CONFIG is set.
const ConfigFilename = "devloop.yaml"

// Defaults mirror the checkout this tool was written for: a Streamlit app
// bound to 0.0.0.0:8502 with its pages under ./pages.
const (
	DefaultPort        = 8502
	DefaultBindAddress = "0.0.0.0"
	DefaultAppScript   = "streamlit_app.py"

	DefaultPortWaitSecs   = 10
	DefaultPollIntervalMS = 200
	DefaultKillWaitSecs   = 5
)

// Config holds every tunable. All fields have working defaults so that a bare
// `devloop` invocation needs no flags and no config file.
type Config struct {
	// Port the app listens on; the restart sequence kills whatever holds it.
	Port int `yaml:"port"`

	// BindAddress the relaunched app binds to.
	BindAddress string `yaml:"bind_address"`

	// AppDir is the working directory for the app and the formatter.
	// Relative paths are resolved against the current directory.
	AppDir string `yaml:"app_dir"`

	// AppCommand is the full argv used to relaunch the app. When empty it is
	// derived from Port/BindAddress so the launch arguments stay exactly
	// compatible with the target application.
	AppCommand []string `yaml:"app_command"`

	// PortWaitSecs bounds the poll-until-port-free wait between kill and launch.
	PortWaitSecs int `yaml:"port_wait_secs"`

	// PollIntervalMS is the delay between port probes.
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// KillWaitSecs is how long a terminated process gets to exit before the
	// kill escalates from TERM to KILL.
	KillWaitSecs int `yaml:"kill_wait_secs"`

	Formatter FormatterConfig `yaml:"formatter"`
}

// FormatterConfig configures the external source formatter.
type FormatterConfig struct {
	// Tool is the formatter executable / pip package name.
	Tool string `yaml:"tool"`

	// Pip is the package manager used to install Tool on demand.
	Pip string `yaml:"pip"`

	// Args are passed before the file arguments in destructive mode.
	Args []string `yaml:"args"`

	// Glob selects the source files, relative to the app directory.
	Glob string `yaml:"glob"`

	// Subdirs are extra directories (one level) to include when present.
	Subdirs []string `yaml:"subdirs"`
}

// DefaultConfig returns the configuration matching the original scripts.
func DefaultConfig() Config {
	return Config{
		Port:           DefaultPort,
		BindAddress:    DefaultBindAddress,
		AppDir:         ".",
		PortWaitSecs:   DefaultPortWaitSecs,
		PollIntervalMS: DefaultPollIntervalMS,
		KillWaitSecs:   DefaultKillWaitSecs,
		Formatter: FormatterConfig{
			Tool:    "autopep8",
			Pip:     "pip",
			Args:    []string{"--in-place", "--aggressive", "--aggressive"},
			Glob:    "*.py",
			Subdirs: []string{"pages"},
		},
	}
}

// ConfigPath returns the config file location, honoring DEVLOOP_CONFIG.
func ConfigPath(appDir string) string {
	if envPath := os.Getenv("DEVLOOP_CONFIG"); envPath != "" {
		return envPath
	}
	return filepath.Join(appDir, ConfigFilename)
}

// LoadConfig reads the config file at path over the defaults. A missing file
// is not an error; the defaults are returned as-is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.finish()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.finish()
	return cfg, nil
}

// finish fills derived fields after defaults and file values are merged.
func (c *Config) finish() {
	if len(c.AppCommand) == 0 {
		c.AppCommand = defaultAppCommand(c.BindAddress, c.Port)
	}
}

// defaultAppCommand builds the launch argv for the given address and port.
// The flag spelling must not change; the target application depends on it.
func defaultAppCommand(addr string, port int) []string {
	return []string{
		"streamlit", "run", DefaultAppScript,
		"--server.address", addr,
		"--server.port", strconv.Itoa(port),
	}
}

// PortWait returns the total poll-until-free budget.
func (c Config) PortWait() time.Duration {
	return time.Duration(c.PortWaitSecs) * time.Second
}

// PollInterval returns the delay between port probes.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// KillWait returns the TERM-to-KILL escalation window.
func (c Config) KillWait() time.Duration {
	return time.Duration(c.KillWaitSecs) * time.Second
}
