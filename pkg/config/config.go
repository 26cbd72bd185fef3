package config

import (
	"github.com/JayJamieson/duckcsv/pkg/db"
	"github.com/JayJamieson/duckcsv/pkg/source"
)

type Config struct {
	CSVPath      string   `mapstructure:"csv_path"`
	DatabasePath string   `mapstructure:"database_path"`
	CatalogURL   string   `mapstructure:"catalog_url"`
	LogLevel     string   `mapstructure:"log_level"`
	Server       Server   `mapstructure:"server"`
	S3           S3Config `mapstructure:"s3"`
}

type Server struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type S3Config struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// DB returns the engine settings for db.New. Only the server imports CSV
// files, so the catalog is left out when it is disabled.
func (c *Config) DB() db.Config {
	cfg := db.Config{DatabasePath: c.DatabasePath}
	if c.Server.Enabled {
		cfg.CatalogURL = c.CatalogURL
	}
	return cfg
}

func (c *Config) Source() source.S3Config {
	return source.S3Config{
		Region:    c.S3.Region,
		Endpoint:  c.S3.Endpoint,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
	}
}
