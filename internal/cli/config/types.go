// Package config loads deployhook configuration from defaults, a YAML file,
// the environment and command-line flags.
package config

import "time"

// Defaults.
const (
	DefaultPort          = 5000
	DefaultDriver        = "sqlite"
	DefaultDSN           = ".deployhook/deployhook.db"
	DefaultDeployApp     = "taffy"
	DefaultDeployWorkers = 2
	DefaultQueueSize     = 64
	DefaultLogFormat     = "text"
	DefaultConfigFile    = "deployhook.yaml"

	// EnvPrefix prefixes every environment variable. Nested keys use "__",
	// e.g. DEPLOYHOOK_DATABASE__DSN.
	EnvPrefix = "DEPLOYHOOK_"
)

// Config is the full deployhook configuration.
type Config struct {
	Port        int              `koanf:"port"`
	SecretToken string           `koanf:"secret_token"`
	Database    DatabaseConfig   `koanf:"database"`
	Controller  ControllerConfig `koanf:"controller"`
	Deploy      DeployConfig     `koanf:"deploy"`
	UI          UIConfig         `koanf:"ui"`
	LogFormat   string           `koanf:"log_format"`
	Verbose     bool             `koanf:"verbose"`
}

// DatabaseConfig selects the repo store.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// ControllerConfig points at the cluster controller API.
type ControllerConfig struct {
	URL     string        `koanf:"url"`
	Key     string        `koanf:"key"`
	Timeout time.Duration `koanf:"timeout"`
}

// DeployConfig configures the deploy workers.
type DeployConfig struct {
	// App is the builder app whose release runs deploy jobs.
	App       string        `koanf:"app"`
	Workers   int           `koanf:"workers"`
	QueueSize int           `koanf:"queue_size"`
	Timeout   time.Duration `koanf:"timeout"`
	// PollInterval is how often a running deploy job is checked.
	PollInterval time.Duration `koanf:"poll_interval"`
}

// UIConfig configures the dashboard.
type UIConfig struct {
	SessionSecret string `koanf:"session_secret"`
	// APIURL makes the dashboard read from another deployhook instead of in-process.
	APIURL       string `koanf:"api_url"`
	AppSelector  bool   `koanf:"app_selector"`
	ClearOptions bool   `koanf:"clear_options"`
}

func defaults() map[string]any {
	return map[string]any{
		"port":                 DefaultPort,
		"database.driver":      DefaultDriver,
		"database.dsn":         DefaultDSN,
		"controller.timeout":   "30s",
		"deploy.app":           DefaultDeployApp,
		"deploy.workers":       DefaultDeployWorkers,
		"deploy.queue_size":    DefaultQueueSize,
		"deploy.timeout":       "5m",
		"deploy.poll_interval": "2s",
		"ui.app_selector":      true,
		"ui.clear_options":     true,
		"log_format":           DefaultLogFormat,
		"verbose":              false,
	}
}
