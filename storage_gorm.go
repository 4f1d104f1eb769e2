package opspod

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

var _ SessionStore = &GormStore{}

// Conversation is the persisted form of one session's history.
type Conversation struct {
	SessionID string `gorm:"primaryKey;size:64"`
	Messages  string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// GormStore implements SessionStore on top of a SQL database.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLiteStore opens (and creates if needed) a sqlite database file.
func OpenSQLiteStore(path string) (*GormStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Exec(`PRAGMA busy_timeout=5000;`).Error; err != nil {
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return NewGormStore(db)
}

// OpenPostgresStore connects to postgres using a DSN such as
// "host=localhost user=opspod dbname=opspod sslmode=disable".
func OpenPostgresStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewGormStore(db)
}

// NewGormStore wraps an open connection and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if err := db.AutoMigrate(&Conversation{}); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Load(ctx context.Context, sessionID string) ([]Message, error) {
	var conv Conversation
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", sessionID, err)
	}
	messages := []Message{}
	if err := json.Unmarshal([]byte(conv.Messages), &messages); err != nil {
		return nil, fmt.Errorf("failed to decode conversation %s: %w", sessionID, err)
	}
	return messages, nil
}

func (s *GormStore) Save(ctx context.Context, sessionID string, messages []Message) error {
	if messages == nil {
		messages = []Message{}
	}
	b, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode conversation %s: %w", sessionID, err)
	}
	conv := Conversation{SessionID: sessionID, Messages: string(b), UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"messages", "updated_at"}),
	}).Create(&conv).Error
	if err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", sessionID, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&Conversation{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the database connection.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
