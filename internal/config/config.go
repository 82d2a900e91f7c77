// Package config centralizes configuration: defaults, an optional YAML
// config file and NEXTUP_-prefixed environment variables, resolved in
// that order of increasing priority. Command-line flags still win over
// everything at the call site.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "NEXTUP"

// Initialize sets defaults and loads an optional config file from
// ~/.config/nextup/config.yaml or the current directory. A missing file
// is not an error.
func Initialize() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "nextup"))
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("db", defaultDBPath())
	viper.SetDefault("socket", defaultSocketPath())
	viper.SetDefault("queue", "main")
	viper.SetDefault("json", false)
	viper.SetDefault("log-file", "")
	viper.SetDefault("log-max-size-mb", 10)
	viper.SetDefault("log-max-backups", 3)
	viper.SetDefault("notify-buffer", 64)
	viper.SetDefault("reorder-interval", 60*time.Second)

	// Scoring weights. The ranking.* trio weighs the emotional
	// indicators; velocity blends emotional score and stability force.
	viper.SetDefault("ranking.weight-calmer", 0.5)
	viper.SetDefault("ranking.weight-motivated", 0.35)
	viper.SetDefault("ranking.weight-progressed", 0.15)
	viper.SetDefault("ranking.weight-emotional", 0.7)
	viper.SetDefault("ranking.weight-stability", 0.3)
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "nextup.db"
	}
	return filepath.Join(home, ".local", "share", "nextup", "nextup.db")
}

func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "nextup.sock")
	}
	return filepath.Join(os.TempDir(), "nextup.sock")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a boolean config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetInt returns an integer config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// Set overrides a config value at runtime. Used by tests and by flag
// binding in the command layer.
func Set(key string, value interface{}) {
	viper.Set(key, value)
}
