// Package gormstore backs storage.Store with a single gorm table, so the same
// key-value contract runs on postgres in production and sqlite locally.
package gormstore

import (
	"context"
	"errors"
	"time"

	"go-inventory-uom/internal/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Entry struct {
	Key       string `gorm:"column:entry_key;type:varchar(191);primaryKey"`
	Value     []byte `gorm:"column:entry_value"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "kv_entries"
}

type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// New migrates the kv_entries table and returns the store.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	err := s.db.WithContext(ctx).First(&entry, "entry_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

// Set upserts the value in one statement.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&Entry{}, "entry_key = ?", key).Error
}
