package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Driver         string `mapstructure:"driver"`
		Host           string `mapstructure:"host"`
		Port           string `mapstructure:"port"`
		User           string `mapstructure:"user"`
		Password       string `mapstructure:"password"`
		Name           string `mapstructure:"name"`
		SSLMode        string `mapstructure:"sslmode"`
		AutoMigrate    bool   `mapstructure:"auto_migrate"`
		MigrationsPath string `mapstructure:"migrations_path"`
	} `mapstructure:"database"`
	Redis struct {
		Enabled   bool          `mapstructure:"enabled"`
		Host      string        `mapstructure:"host"`
		Port      string        `mapstructure:"port"`
		Password  string        `mapstructure:"password"`
		DB        int           `mapstructure:"db"`
		ClientTTL time.Duration `mapstructure:"client_ttl"`
	} `mapstructure:"redis"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	JWT struct {
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"jwt"`
	Ledger struct {
		MaxRetries           int           `mapstructure:"max_retries"`
		RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	} `mapstructure:"ledger"`
	Accounts struct {
		BankCode          string `mapstructure:"bank_code"`
		BranchCode        string `mapstructure:"branch_code"`
		NumberMaxAttempts int    `mapstructure:"number_max_attempts"`
	} `mapstructure:"accounts"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("database.migrations_path", "file://db/migrations")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.client_ttl", 10*time.Minute)

	v.SetDefault("server.port", "8080")
	v.SetDefault("jwt.secret_key", "")

	v.SetDefault("ledger.max_retries", 3)
	v.SetDefault("ledger.retry_initial_interval", 10*time.Millisecond)

	v.SetDefault("accounts.bank_code", "30004")
	v.SetDefault("accounts.branch_code", "00001")
	v.SetDefault("accounts.number_max_attempts", 10)
}

// LoadConfig reads config.yml from path, then applies environment overrides.
// A .env file next to the config is loaded first when present. Keys map to
// environment variables with dots replaced by underscores, e.g.
// DATABASE_HOST or LEDGER_MAX_RETRIES.
func LoadConfig(path string) error {
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unable to decode into struct: %w", err)
	}

	AppConfig = cfg
	return nil
}
