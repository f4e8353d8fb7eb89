package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Типы хранилища
const (
	PostgresStore = "postgres"
	MongoStore    = "mongo"
	MemoryStore   = "memory"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress   string        `mapstructure:"SERVER_ADDRESS"`
	StoreType       string        `mapstructure:"STORE_TYPE"`
	PostgresConn    string        `mapstructure:"POSTGRES_CONN"`
	PostgresUser    string        `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass    string        `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost    string        `mapstructure:"POSTGRES_HOST"`
	PostgresPort    string        `mapstructure:"POSTGRES_PORT"`
	PostgresDB      string        `mapstructure:"POSTGRES_DATABASE"`
	MigrationURL    string        `mapstructure:"MIGRATION_URL"`
	MongoURI        string        `mapstructure:"MONGO_URI"`
	MongoDB         string        `mapstructure:"MONGO_DB"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	EventWebhookURL string        `mapstructure:"EVENT_WEBHOOK_URL"`
}

// LoadConfig загружает конфигурацию из файла app.env.
// Переменные окружения имеют приоритет, файл может отсутствовать.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("STORE_TYPE", PostgresStore)
	v.SetDefault("MIGRATION_URL", "file://migrations")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "proposals")
	v.SetDefault("REQUEST_TIMEOUT", "5s")
	v.SetDefault("LOG_LEVEL", "info")

	for _, key := range []string{
		"SERVER_ADDRESS", "STORE_TYPE", "POSTGRES_CONN", "POSTGRES_USERNAME",
		"POSTGRES_PASSWORD", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_DATABASE", "MIGRATION_URL",
		"MONGO_URI", "MONGO_DB", "REQUEST_TIMEOUT", "LOG_LEVEL", "EVENT_WEBHOOK_URL",
	} {
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&cfg)
	return
}
