package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "DUCKCSV"

var defaults = map[string]any{
	"csv_path":       "employees.csv",
	"database_path":  "",
	"catalog_url":    "file:catalog.db",
	"log_level":      "info",
	"server.enabled": false,
	"server.port":    8001,
	"s3.region":      "",
	"s3.endpoint":    "",
	"s3.access_key":  "",
	"s3.secret_key":  "",
}

// Load resolves the configuration from defaults, an optional YAML file,
// DUCKCSV_* environment variables and finally overrides, in that order of
// increasing precedence. An empty file path skips the file. overrides uses
// the same dotted keys as the file, e.g. "server.port".
func Load(file string, overrides map[string]any) (*Config, error) {
	v := viper.New()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for key, val := range overrides {
		v.Set(key, val)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.CSVPath == "" {
		errs = append(errs, errors.New("csv_path is required"))
	}
	if c.Server.Enabled && c.CatalogURL == "" {
		errs = append(errs, errors.New("catalog_url is required when server.enabled is set"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
		errs = append(errs, errors.New("s3.access_key and s3.secret_key must be set together"))
	}

	return errors.Join(errs...)
}
