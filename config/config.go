// Package config - application configuration
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alwitt/goutils"
	"github.com/alwitt/karte/db"
	"github.com/alwitt/karte/models"
	"github.com/alwitt/karte/service"
	"github.com/alwitt/karte/storage"
	"github.com/apex/log"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database drivers
const (
	DatabaseDriverSqlite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
)

// DatabaseConfig row store settings
type DatabaseConfig struct {
	// Driver database driver
	Driver string `yaml:"driver" validate:"required,oneof=sqlite postgres"`
	// SqliteFile SQLite database file
	SqliteFile string `yaml:"sqlite_file" validate:"required_if=Driver sqlite"`
	// PostgresDSN Postgres connection string
	PostgresDSN string `yaml:"postgres_dsn" validate:"required_if=Driver postgres"`
	// LogLevel SQL log level
	LogLevel string `yaml:"log_level" validate:"required,oneof=silent error warn info"`
}

// DocumentsConfig document store settings
type DocumentsConfig struct {
	// Driver document store driver
	Driver string `yaml:"driver" validate:"required,oneof=fs s3 memory"`
	// Root document directory of the fs driver
	Root string `yaml:"root" validate:"required_if=Driver fs"`
	// S3 settings of the s3 driver
	S3 *storage.S3Config `yaml:"s3" validate:"required_if=Driver s3"`
}

// APIConfig HTTP API settings
type APIConfig struct {
	// ListenAddress address the HTTP server listens on
	ListenAddress string `yaml:"listen_address" validate:"required,hostname_port"`
	// RequestIDHeader request header carrying the caller's request ID
	RequestIDHeader string `yaml:"request_id_header" validate:"required"`
	// RequestLogLevel level at which served requests are logged
	RequestLogLevel string `yaml:"request_log_level" validate:"required,oneof=warn info debug"`
}

// RecordsConfig record service settings
type RecordsConfig struct {
	// ListLimit number of records listed when no limit is given
	ListLimit int `yaml:"list_limit" validate:"gte=1"`
}

// Config application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Documents DocumentsConfig `yaml:"documents"`
	API       APIConfig       `yaml:"api"`
	Records   RecordsConfig   `yaml:"records"`
}

// Default the configuration used for settings a file leaves out
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:     DatabaseDriverSqlite,
			SqliteFile: "karte.db",
			LogLevel:   "warn",
		},
		Documents: DocumentsConfig{
			Driver: string(storage.DriverFilesystem),
			Root:   "records",
		},
		API: APIConfig{
			ListenAddress:   "127.0.0.1:8080",
			RequestIDHeader: "Request-ID",
			RequestLogLevel: string(goutils.HTTPLogLevelINFO),
		},
		Records: RecordsConfig{ListLimit: service.DefaultListLimit},
	}
}

/*
Parse decode and validate a YAML configuration

Settings missing from the content keep their default.

	@param content []byte - YAML content
	@returns the configuration
*/
func Parse(content []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse configuration [%w]", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
Load read, decode, and validate a YAML configuration file

An empty path gives the default configuration.

	@param path string - configuration file
	@returns the configuration
*/
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read configuration %s [%w]", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return Config{}, err
	}
	log.WithField("config", path).Debug("Loaded configuration")
	return cfg, nil
}

// Validate check the configuration against its field rules
func (c Config) Validate() error {
	validate, err := models.NewValidator()
	if err != nil {
		return err
	}
	if err := validate.Struct(&c); err != nil {
		return fmt.Errorf("invalid configuration [%w]", err)
	}
	return nil
}

// SQLLogLevel the GORM log level of the database settings
func (c DatabaseConfig) SQLLogLevel() logger.LogLevel {
	switch c.LogLevel {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

// Dialector the GORM dialector of the database settings
func (c DatabaseConfig) Dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case DatabaseDriverSqlite:
		return db.GetSqliteDialector(c.SqliteFile), nil
	case DatabaseDriverPostgres:
		return db.GetPostgresDialector(c.PostgresDSN), nil
	}
	return nil, fmt.Errorf("unsupported database driver '%s'", c.Driver)
}

/*
DocumentStore build the document store of the document settings

	@param ctx context.Context - execution context
	@returns the document store
*/
func (c DocumentsConfig) DocumentStore(ctx context.Context) (storage.DocumentStore, error) {
	switch storage.Driver(c.Driver) {
	case storage.DriverFilesystem:
		return storage.NewFilesystemStore(c.Root)
	case storage.DriverS3:
		if c.S3 == nil {
			return nil, fmt.Errorf("s3 document store settings missing")
		}
		return storage.NewS3StoreFromConfig(ctx, *c.S3)
	case storage.DriverMemory:
		return storage.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unsupported document store driver '%s'", c.Driver)
}
