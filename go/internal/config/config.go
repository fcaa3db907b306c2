// Package config loads server settings from an optional YAML file with
// environment-variable overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the voteroom server settings.
type Config struct {
	Port           string `yaml:"port"`
	LogLevel       string `yaml:"log_level"`
	TimerSeconds   int    `yaml:"timer_seconds"`
	RoomCodeLength int    `yaml:"room_code_length"`
}

// Load reads the YAML file at path (skipped when path is empty) and then
// applies VOTEROOM_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:           "8080",
		LogLevel:       "info",
		TimerSeconds:   60,
		RoomCodeLength: 6,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Port = getEnv("VOTEROOM_PORT", cfg.Port)
	cfg.LogLevel = getEnv("VOTEROOM_LOG_LEVEL", cfg.LogLevel)
	cfg.TimerSeconds = getEnvAsInt("VOTEROOM_TIMER_SECONDS", cfg.TimerSeconds)
	cfg.RoomCodeLength = getEnvAsInt("VOTEROOM_ROOM_CODE_LENGTH", cfg.RoomCodeLength)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
