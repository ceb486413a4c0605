package main

import (
	"fmt"
	"strings"

	"sprout_prelaunch/internal/mailer"
	"sprout_prelaunch/internal/repository"
	"sprout_prelaunch/internal/service"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config    `yaml:"database"`
	Server   ServerConfig         `yaml:"server"`
	Mailer   mailer.Config        `yaml:"mailer"`
	Rewards  service.RewardConfig `yaml:"rewards"`

	LogLevel string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.SetDefault("logLevel", "info")
	viper.SetDefault("rewards.tier1Limit", 100)
	viper.SetDefault("rewards.tier2Limit", 250)
	viper.SetDefault("rewards.referralThreshold", 10)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
