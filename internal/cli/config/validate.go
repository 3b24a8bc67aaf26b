package config

import (
	"fmt"
	"net/url"

	"github.com/leapstack-labs/deployhook/internal/state"
)

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	if _, err := state.NormalizeDriver(c.Database.Driver); err != nil {
		return err
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// ValidateServe checks the extra settings needed to run the server.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.SecretToken == "" {
		return fmt.Errorf("secret_token is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Controller.URL == "" {
		return fmt.Errorf("controller.url is required")
	}
	if c.Deploy.App == "" {
		return fmt.Errorf("deploy.app is required")
	}
	if c.Deploy.Workers <= 0 {
		return fmt.Errorf("deploy.workers must be positive, got %d", c.Deploy.Workers)
	}
	if c.Deploy.QueueSize <= 0 {
		return fmt.Errorf("deploy.queue_size must be positive, got %d", c.Deploy.QueueSize)
	}
	if c.Deploy.PollInterval <= 0 {
		return fmt.Errorf("deploy.poll_interval must be positive, got %s", c.Deploy.PollInterval)
	}
	if c.UI.APIURL != "" {
		u, err := url.Parse(c.UI.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("ui.api_url must be an http or https url, got %q", c.UI.APIURL)
		}
	}
	return nil
}
