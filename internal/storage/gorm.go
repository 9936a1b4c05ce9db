package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is one persisted widget key.
type Entry struct {
	Key       string `gorm:"column:key;primaryKey"`
	Value     []byte `gorm:"column:value;not null"`
	UpdatedAt time.Time
}

func (Entry) TableName() string { return "widget_storage" }

// GormBackend keeps entries in a single SQL table.
type GormBackend struct {
	db *gorm.DB
}

// OpenPostgres connects with the pgx-backed postgres driver and migrates the table.
func OpenPostgres(dsn string) (*GormBackend, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGormBackend(db)
}

func NewGormBackend(db *gorm.DB) (*GormBackend, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate widget_storage: %w", err)
	}
	return &GormBackend{db: db}, nil
}

func (b *GormBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	err := b.db.WithContext(ctx).Where("key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

func (b *GormBackend) Set(ctx context.Context, key string, value []byte) error {
	e := Entry{Key: key, Value: value}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

func (b *GormBackend) Delete(ctx context.Context, key string) error {
	return b.db.WithContext(ctx).Where("key = ?", key).Delete(&Entry{}).Error
}

func (b *GormBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.db.WithContext(ctx).Model(&Entry{}).
		Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("key").
		Pluck("key", &keys).Error
	return keys, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
