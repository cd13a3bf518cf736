package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

type OutreachConfig struct {
	// SendDelay is the minimal pause between two delivery attempts.
	SendDelay      time.Duration `mapstructure:"send_delay"`
	BrowserTimeout time.Duration `mapstructure:"browser_timeout"`
	Headless       bool          `mapstructure:"headless"`
}

func (config OutreachConfig) validate() error {
	var errs []error
	if config.SendDelay <= 0 {
		errs = append(errs, fmt.Errorf("send_delay must be positive"))
	}
	if config.BrowserTimeout <= 0 {
		errs = append(errs, fmt.Errorf("browser_timeout must be positive"))
	}
	return errors.Join(errs...)
}

func (config OutreachConfig) bindEnvironmentVariables() error {
	return bindAll(map[string]string{
		"outreach.send_delay":      "OUTREACH_SEND_DELAY",
		"outreach.browser_timeout": "OUTREACH_BROWSER_TIMEOUT",
		"outreach.headless":        "OUTREACH_HEADLESS",
	})
}

type ResponsesConfig struct {
	// CheckSchedule is a cron spec, empty disables scheduled checks.
	CheckSchedule string `mapstructure:"check_schedule"`
}

func (config ResponsesConfig) validate() error {
	return nil
}

func (config ResponsesConfig) bindEnvironmentVariables() error {
	return bindAll(map[string]string{"responses.check_schedule": "RESPONSES_CHECK_SCHEDULE"})
}

type ScrapingConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

func (config ScrapingConfig) validate() error {
	if config.WebhookURL == "" {
		return nil
	}
	if _, err := url.ParseRequestURI(config.WebhookURL); err != nil {
		return fmt.Errorf("invalid webhook_url: %w", err)
	}
	return nil
}

func (config ScrapingConfig) bindEnvironmentVariables() error {
	return bindAll(map[string]string{"scraping.webhook_url": "SCRAPING_WEBHOOK_URL"})
}

type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

func (config MetricsConfig) validate() error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", config.Port)
	}
	return nil
}

func (config MetricsConfig) bindEnvironmentVariables() error {
	return bindAll(map[string]string{"metrics.port": "METRICS_PORT"})
}
