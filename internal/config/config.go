package config

import (
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"os"
)

type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Bot       BotConfig       `mapstructure:"bot"`
	AI        AIConfig        `mapstructure:"ai"`
	DB        DBConfig        `mapstructure:"db"`
	Outreach  OutreachConfig  `mapstructure:"outreach"`
	Responses ResponsesConfig `mapstructure:"responses"`
	Scraping  ScrapingConfig  `mapstructure:"scraping"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type section interface {
	validate() error
	bindEnvironmentVariables() error
}

var configFile = "./configs/config.yaml"

func Get() *Config {

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("couldn't load .env file: %v", err)
	}

	if value, ok := os.LookupEnv("CONFIG_PATH"); ok {
		configFile = value
	}

	config, err := loadConfig(configFile)
	if err != nil {
		log.Fatal(err)
	}

	return config
}

func loadConfig(file string) (*Config, error) {

	viper.SetConfigFile(file)
	viper.AutomaticEnv()
	setDefaults()

	err := bindEnvironmentVariables()
	if err != nil {
		return nil, err
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Config{}
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("db.driver", string(DriverSqlite))
	viper.SetDefault("ai.model", "gemini-1.5-flash")
	viper.SetDefault("outreach.send_delay", "2s")
	viper.SetDefault("outreach.browser_timeout", "30s")
	viper.SetDefault("outreach.headless", true)
	viper.SetDefault("metrics.port", 8080)
}

func (config Config) sections() map[string]section {
	return map[string]section{
		"LoggerConfig":    config.Logger,
		"BotConfig":       config.Bot,
		"AIConfig":        config.AI,
		"DBConfig":        config.DB,
		"OutreachConfig":  config.Outreach,
		"ResponsesConfig": config.Responses,
		"ScrapingConfig":  config.Scraping,
		"MetricsConfig":   config.Metrics,
	}
}

func bindEnvironmentVariables() error {
	var errs []error

	for name, s := range (Config{}).sections() {
		if err := s.bindEnvironmentVariables(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config Config) validate() error {
	var errs []error

	for name, s := range config.sections() {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func bindAll(pairs map[string]string) error {
	var errs []error
	for key, env := range pairs {
		if err := viper.BindEnv(key, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
