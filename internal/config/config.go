// Package config loads the configuration of the userdir command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Store backends.
const (
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the configuration of the userdir command.
// Sections map to config.yaml keys, see Load for the environment variables.
type Config struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Store struct {
		Backend string `mapstructure:"backend"`
	} `mapstructure:"store"`
	Mongo struct {
		URI        string `mapstructure:"uri"`
		DB         string `mapstructure:"db"`
		Collection string `mapstructure:"collection"`
	} `mapstructure:"mongo"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		Prefix   string `mapstructure:"prefix"`
	} `mapstructure:"redis"`
	Bcrypt struct {
		Cost int `mapstructure:"cost"`
	} `mapstructure:"bcrypt"`
	Page struct {
		DefaultLimit int `mapstructure:"default_limit"`
		MaxLimit     int `mapstructure:"max_limit"`
	} `mapstructure:"page"`
}

// Load reads the configuration. Values come from (highest priority first)
// environment variables, a .env file in the working directory, and
// config.yaml in dir. Missing files are not an error.
func Load(dir string) (cfg Config, err error) {
	if err = godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load .env file: %w", err)
		}
		log.Println("note: .env file not found, using environment only.")
	}

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("store.backend", "USERDIR_STORE")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.db", "MONGO_DB")
	v.BindEnv("mongo.collection", "MONGO_COLLECTION")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("redis.prefix", "REDIS_PREFIX")
	v.BindEnv("bcrypt.cost", "BCRYPT_COST")
	v.BindEnv("page.default_limit", "PAGE_DEFAULT_LIMIT")
	v.BindEnv("page.max_limit", "PAGE_MAX_LIMIT")

	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("store.backend", BackendMongo)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.db", "userdir")
	v.SetDefault("mongo.collection", "users")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "userdir:")
	v.SetDefault("bcrypt.cost", 10)
	v.SetDefault("page.default_limit", 10)
	v.SetDefault("page.max_limit", 100)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMongo, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}
	if c.Page.DefaultLimit < 0 || c.Page.MaxLimit < 0 {
		return fmt.Errorf("page limits must not be negative")
	}
	if c.Bcrypt.Cost < bcrypt.MinCost || c.Bcrypt.Cost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be in [%d, %d], got: %d", bcrypt.MinCost, bcrypt.MaxCost, c.Bcrypt.Cost)
	}
	return nil
}
