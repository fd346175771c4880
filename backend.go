package main

import (
	"fmt"
	"time"

	"Jukebox/db_client"
	"Jukebox/kv_client"
	"Jukebox/redis_client"
	"Jukebox/storage"

	"github.com/Strum355/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// openBackend opens the room storage named by storage.driver. The returned
// func releases it.
func openBackend(rdb *redis.Client) (storage.Backend, func(), error) {
	switch driver := viper.GetString("storage.driver"); driver {
	case "memory":
		return storage.NewMemory(), func() {}, nil

	case "redis":
		ttl := time.Duration(viper.GetInt("redis.ttl")) * time.Second
		return redis_client.NewRoomBackend(rdb, ttl), func() {}, nil

	case "postgres":
		db, err := db_client.Open(viper.GetString("postgres.dsn"), viper.GetInt("postgres.attempts"))
		if err != nil {
			return nil, nil, err
		}
		return db_client.NewRoomBackend(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}, nil

	case "pebble":
		kv, err := kv_client.Open(viper.GetString("pebble.dir"))
		if err != nil {
			return nil, nil, err
		}
		return kv, func() {
			if err := kv.Close(); err != nil {
				log.WithError(err).Error("Failed to close Pebble")
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
