package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"

	"vector-store/vecmath"
)

// EnvPrefix is the prefix of every environment override, e.g. VECSTORE_SERVER_PORT.
const EnvPrefix = "VECSTORE"

/*
Config is the configuration for the application.

Contains the configuration for the server, storage, and the collections created at startup.
*/
type Config struct {
	Server      ServerConfig                `json:"server"`
	Storage     StorageConfig               `json:"storage"`
	Collections map[string]CollectionConfig `json:"collections" ignored:"true"`
	LogLevel    string                      `json:"log_level" split_words:"true"`
}

/*
ServerConfig is the configuration for the server.
*/
type ServerConfig struct {
	Host string `json:"host" split_words:"true"`
	Port string `json:"port" split_words:"true"`
	// metric used by the compare endpoint when the request names none
	DefaultMetric string `json:"default_metric" split_words:"true"`
}

/*
StorageConfig is the configuration for the storage.
*/
type StorageConfig struct {
	// path to the data directory
	DataPath string `json:"data_path" split_words:"true"`
	// whether to persist collections to disk
	PersistenceEngine bool `json:"persistence_engine" split_words:"true"`
	// interval to persist data [seconds]
	PersistenceInterval int `json:"persistence_interval" split_words:"true"`
}

/*
CollectionConfig represents the configuration for a single vector collection.
*/
type CollectionConfig struct {
	// length every embedding in the collection must have
	Dimension int `json:"dimension" split_words:"true"`
}

/*
Default config
*/
func DefaultConfig() *Config {
	return &Config{
		// server configuration
		Server: ServerConfig{
			Host:          "localhost",
			Port:          "8080",
			DefaultMetric: "cosine",
		},
		// storage configuration
		Storage: StorageConfig{
			DataPath:            "./data",
			PersistenceEngine:   true,
			PersistenceInterval: 5,
		},
		// default collection
		Collections: map[string]CollectionConfig{
			"default": {Dimension: 128},
		},
		// logging configuration
		LogLevel: "warn",
	}
}

/*
LoadFromFile loads the configuration from a JSON file.
*/
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := DefaultConfig()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return config, nil
}

/*
LoadFromEnv loads the configuration from the environment variables on top of the defaults.
*/
func LoadFromEnv() (*Config, error) {
	config := DefaultConfig()
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

/*
ApplyEnv overrides c with any VECSTORE_* environment variables that are set,
e.g. VECSTORE_SERVER_PORT or VECSTORE_STORAGE_DATA_PATH.

VECSTORE_DIMENSION applies to the "default" collection.
*/
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("env: %w", err)
	}

	if c.Collections == nil {
		c.Collections = make(map[string]CollectionConfig)
	}
	defaultCollection := c.Collections["default"]
	if err := envconfig.Process(EnvPrefix, &defaultCollection); err != nil {
		return fmt.Errorf("env collection: %w", err)
	}
	if defaultCollection.Dimension != 0 {
		c.Collections["default"] = defaultCollection
	}
	return nil
}

/*
Validate checks if the configuration is valid
*/
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("invalid port: empty")
	}
	if _, err := vecmath.ParseMetric(c.Server.DefaultMetric); err != nil {
		return err
	}
	if c.Storage.PersistenceEngine && c.Storage.PersistenceInterval <= 0 {
		return fmt.Errorf("invalid persistence interval: %d", c.Storage.PersistenceInterval)
	}
	for name, cc := range c.Collections {
		if name == "" {
			return fmt.Errorf("invalid collection name: empty")
		}
		if err := cc.Validate(); err != nil {
			return fmt.Errorf("collection %s: %w", name, err)
		}
	}
	return nil
}

/*
Validate checks a single collection configuration
*/
func (cc CollectionConfig) Validate() error {
	if cc.Dimension <= 0 {
		return fmt.Errorf("invalid dimension: %d", cc.Dimension)
	}
	return nil
}
