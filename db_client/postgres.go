package db_client

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Jukebox/queue"
	"Jukebox/storage"

	"github.com/Strum355/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed schema.sql
var schema string

// Open connects to Postgres, waiting for it to come up, and applies the schema
func Open(dsn string, attempts int) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	for range max(attempts, 1) {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			sqlDB, _ := db.DB()
			if err = sqlDB.Ping(); err == nil {
				break
			}
		}
		log.Info("Waiting for Postgres to be ready...")
		time.Sleep(time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.Exec(schema).Error; err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// Room is one persisted room record
type Room struct {
	Code      string    `gorm:"primaryKey;column:code"`
	State     []byte    `gorm:"column:state;type:jsonb"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Room) TableName() string {
	return "rooms"
}

// RoomBackend stores room records in the rooms table
type RoomBackend struct {
	db *gorm.DB
}

func NewRoomBackend(db *gorm.DB) *RoomBackend {
	return &RoomBackend{db: db}
}

func (b *RoomBackend) Load(ctx context.Context, code string) (queue.SharedState, error) {
	var row Room
	err := b.db.WithContext(ctx).Where("code = ?", code).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return queue.SharedState{}, storage.ErrNotFound
	}
	if err != nil {
		return queue.SharedState{}, fmt.Errorf("select room %s: %w", code, err)
	}
	return decodeRoom(row)
}

func (b *RoomBackend) Save(ctx context.Context, state queue.SharedState) error {
	row, err := encodeRoom(state)
	if err != nil {
		return err
	}
	err = b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert room %s: %w", state.RoomCode, err)
	}
	return nil
}

func encodeRoom(state queue.SharedState) (Room, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return Room{}, fmt.Errorf("encode room %s: %w", state.RoomCode, err)
	}
	return Room{Code: state.RoomCode, State: data, UpdatedAt: time.Now().UTC()}, nil
}

func decodeRoom(row Room) (queue.SharedState, error) {
	var st queue.SharedState
	if err := json.Unmarshal(row.State, &st); err != nil {
		return queue.SharedState{}, fmt.Errorf("decode room %s: %w", row.Code, err)
	}
	return st, nil
}
