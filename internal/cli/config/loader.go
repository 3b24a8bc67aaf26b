package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// configKey is used to store the config in context.
type configKey struct{}

// legacyEnv maps bare environment variables still honoured below the
// prefixed ones.
var legacyEnv = map[string]string{
	"PORT":         "port",
	"SECRET_TOKEN": "secret_token",
	"DATABASE_URL": "database.dsn",
}

// flagKeys maps flag names onto config keys where they differ.
var flagKeys = map[string]string{
	"db-driver":  "database.driver",
	"db":         "database.dsn",
	"controller": "controller.url",
	"api-url":    "ui.api_url",
	"workers":    "deploy.workers",
	"deploy-app": "deploy.app",
	"log-format": "log_format",
	"secret":     "secret_token",
	"queue-size": "deploy.queue_size",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads configuration with precedence flags > env > file > defaults.
// cfgFile may be empty; ./deployhook.yaml is used when it exists.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	fileUsed := findConfigFile(cfgFile)
	if fileUsed != "" {
		if err := k.Load(file.Provider(fileUsed), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", fileUsed, err)
		}
	}

	// 3. Environment: bare legacy names first, then DEPLOYHOOK_*
	legacy := map[string]any{}
	for name, key := range legacyEnv {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			legacy[key] = v
		}
	}
	if err := k.Load(confmap.Provider(legacy, "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			if f.Name == "no-selector" {
				return "ui.app_selector", !mustBool(flags, f.Name)
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.SecretToken = expandEnvVars(cfg.SecretToken)
	cfg.Controller.Key = expandEnvVars(cfg.Controller.Key)
	cfg.Database.DSN = expandEnvVars(cfg.Database.DSN)
	cfg.UI.SessionSecret = expandEnvVars(cfg.UI.SessionSecret)

	return &cfg, fileUsed, nil
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{DefaultConfigFile, "deployhook.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func mustBool(flags *pflag.FlagSet, name string) bool {
	v, _ := flags.GetBool(name)
	return v
}

// expandEnvVars expands ${VAR} patterns, leaving unknown variables as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// NewLogger builds the process logger for the configured format and verbosity.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithLogger stores a logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// WithConfig stores the loaded config in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context, or defaults.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	cfg, _, err := Load("", nil)
	if err != nil {
		return &Config{Port: DefaultPort, Database: DatabaseConfig{Driver: DefaultDriver, DSN: DefaultDSN}}
	}
	return cfg
}
