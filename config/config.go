package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Strum355/log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var storageDrivers = []string{"memory", "redis", "postgres", "pebble"}

// InitConfig loads .env and an optional jukebox.yaml from the working
// directory. Environment variables override both, with "." read as "_".
func InitConfig() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, proceeding with defaults.")
	}

	viper.SetConfigName("jukebox")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.WithError(err).Error("Failed to read jukebox.yaml, proceeding with defaults.")
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	initDefaults()
	viper.AutomaticEnv()
}

// Validate checks the settings that cannot be fixed up at runtime
func Validate() error {
	driver := viper.GetString("storage.driver")
	if !slices.Contains(storageDrivers, driver) {
		return fmt.Errorf("storage.driver %q must be one of %s", driver, strings.Join(storageDrivers, ", "))
	}
	if driver == "redis" || viper.GetBool("notify.redis") {
		if viper.GetString("redis.address") == "" {
			return errors.New("redis.address is required for redis storage and notifications")
		}
	}
	if viper.GetInt("room.code_attempts") < 1 {
		return errors.New("room.code_attempts must be at least 1")
	}
	if viper.GetInt("import.concurrency") < 1 {
		return errors.New("import.concurrency must be at least 1")
	}
	return nil
}
