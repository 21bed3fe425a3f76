package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/renthus/renthus-admin/internal/api/http"
	"github.com/renthus/renthus-admin/internal/auth"
	"github.com/renthus/renthus-admin/internal/db"
	"github.com/renthus/renthus-admin/internal/printing"
)

type Config struct {
	Log      LogConfig
	Http     http.Config
	Database db.Config
	Auth     auth.Config
	Printing printing.Config
}

var config Config

func InitConfig() {
	var err error

	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/renthus-admin")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("auth.secret", "AUTH_SECRET")
	_ = viper.BindEnv("printing.encryption_key", "AGENT_KEY_ENCRYPTION_KEY")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		panic(err)
	}

	// Initialize logger with configured log level
	initLogger(config.Log.Level)

	// Pretty print config as JSON (only at DEBUG level)
	if strings.ToUpper(config.Log.Level) == LOG_LEVEL_DEBUG {
		configJSON, err := json.MarshalIndent(config, "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
}
