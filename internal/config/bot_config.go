package config

import (
	"fmt"
	"strings"
)

type BotConfig struct {
	Token string `mapstructure:"token"`
	// AdminPasswordHash is a bcrypt hash of the shared operator secret.
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

func (config BotConfig) validate() error {

	var missingFields []string

	if config.Token == "" {
		missingFields = append(missingFields, "token")
	}

	if config.AdminPasswordHash == "" {
		missingFields = append(missingFields, "admin_password_hash")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	return nil
}

func (config BotConfig) bindEnvironmentVariables() error {
	return bindAll(map[string]string{
		"bot.token":               "TOKEN",
		"bot.admin_password_hash": "ADMIN_PASSWORD_HASH",
	})
}
