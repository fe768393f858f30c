// Package config provides configuration management for the bean CLI.
// It loads configuration from .env files, environment variables and bound
// command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/pathutil"
)

// EnvPrefix is the prefix of every environment variable read by the CLI.
const EnvPrefix = "BEANCOUNT"

// DefaultLedgerName is the ledger file looked up in BEANCOUNT_PATH and the
// working directory.
const DefaultLedgerName = "main.beancount"

// Keys used with viper. Environment variables are the upper-cased keys with
// the BEANCOUNT_ prefix, e.g. BEANCOUNT_HISTORY_DB.
const (
	KeyFile      = "file"
	KeyPath      = "path"
	KeyHistory   = "history"
	KeyHistoryDB = "history_db"
	KeyLogLevel  = "log_level"
	KeyLogFormat = "log_format"
	KeyVerify    = "verify"
)

// ErrLedgerNotFound is returned when no ledger file can be discovered.
var ErrLedgerNotFound = errors.New("no ledger file found")

// Config represents the application configuration.
type Config struct {
	Ledger  LedgerConfig
	History HistoryConfig
	Log     LogConfig
	// Verify parses rendered records back before writing them.
	Verify bool
}

// LedgerConfig locates the root ledger file.
type LedgerConfig struct {
	File string
	Path string
}

// HistoryConfig represents insertion history configuration.
type HistoryConfig struct {
	Enabled bool
	DBPath  string
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and the values bound
// to v. It automatically loads a .env file from the current directory if
// available; a custom .env path can be given instead. A nil v uses a fresh
// viper instance.
func Load(v *viper.Viper, envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	config := &Config{
		Ledger: LedgerConfig{
			File: v.GetString(KeyFile),
			Path: v.GetString(KeyPath),
		},
		History: HistoryConfig{
			Enabled: v.GetBool(KeyHistory),
			DBPath:  v.GetString(KeyHistoryDB),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString(KeyLogLevel)),
			Format: strings.ToLower(v.GetString(KeyLogFormat)),
		},
		Verify: v.GetBool(KeyVerify),
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyFile, "")
	v.SetDefault(KeyPath, "")
	v.SetDefault(KeyHistory, true)
	v.SetDefault(KeyHistoryDB, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyVerify, false)
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}
	return nil
}

// ResolveLedger returns the absolute path of the root ledger file. The first
// of these wins: explicit, BEANCOUNT_FILE, BEANCOUNT_PATH/main.beancount if
// it exists, ./main.beancount if it exists.
func (c *Config) ResolveLedger(explicit string) (string, error) {
	candidates := []struct {
		path       string
		mustExist  bool
		configured bool
	}{
		{explicit, false, explicit != ""},
		{c.Ledger.File, false, c.Ledger.File != ""},
		{filepath.Join(c.Ledger.Path, DefaultLedgerName), true, c.Ledger.Path != ""},
		{DefaultLedgerName, true, true},
	}

	for _, cand := range candidates {
		if !cand.configured {
			continue
		}
		path := expandHome(cand.path)
		if cand.mustExist && !fileExists(path) {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to resolve ledger path %s: %w", path, err)
		}
		return abs, nil
	}
	return "", fmt.Errorf("%w: pass --file, set %s_FILE or %s_PATH, or run from a directory containing %s",
		ErrLedgerNotFound, EnvPrefix, EnvPrefix, DefaultLedgerName)
}

// Paths returns the path resolver for ledgerFile using the configured
// history database.
func (c *Config) Paths(ledgerFile string) *pathutil.PathResolver {
	return pathutil.New(pathutil.Config{
		LedgerFile: ledgerFile,
		HistoryDB:  expandHome(c.History.DBPath),
	})
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
