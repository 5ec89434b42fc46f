package config

import (
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
)

type Config struct {
	Database DatabaseConfig `json:"database"`
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Streak   StreakConfig   `json:"streak"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	Port     int    `json:"port"`
	SSLMode  string `json:"sslmode"`
}

type TelegramConfig struct {
	Token string `json:"token"`
}

type LoggingConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	GormLevel string `json:"gorm_level"`
}

// StreakConfig pins the reference timezone used for calendar-day streak
// comparisons. Empty means UTC.
type StreakConfig struct {
	Timezone string `json:"timezone"`
}

var AppConfig Config

func LoadConfig(filename string) error {
	// Secrets may live in a .env file next to the binary. A missing file is
	// not an error.
	_ = godotenv.Load()

	file, err := os.Open(filename)
	if err != nil {
		logger.Error("failed to open config file", "error", err)
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&AppConfig); err != nil {
		logger.Error("failed to decode config file", "error", err)
		return err
	}

	applyEnvOverrides(&AppConfig)
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLASHDECK_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FLASHDECK_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FLASHDECK_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
}
