package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"trapline/internal/logger"
	"trapline/internal/profile"
)

// Store is the durable configuration and trade log backend for the
// orchestrator: trading profiles (polled every outer iteration), append-only
// system logs and the trade history.
type Store struct {
	db *gorm.DB

	droppedLogs atomic.Int64
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: database path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ProfileModel{}, &SystemLogModel{}, &TradeHistoryModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListProfiles returns the enabled profiles in their stored order.
func (s *Store) ListProfiles(ctx context.Context) ([]profile.Profile, error) {
	var rows []ProfileModel
	if err := s.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("position asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]profile.Profile, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toProfile())
	}
	return out, nil
}

// UpsertProfiles replaces profile rows from the seed file.
func (s *Store) UpsertProfiles(ctx context.Context, profiles []profile.Profile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range profiles {
			row := fromProfile(p)
			row.UpdatedAtUnix = time.Now().Unix()
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendSystemLog is best-effort: a storage fault must never stall a trading
// cycle, so failures bump a counter and the write is abandoned.
func (s *Store) AppendSystemLog(profileID, kind, message string) {
	row := SystemLogModel{
		ProfileID: profileID,
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		n := s.droppedLogs.Add(1)
		logger.Warnf("Store: dropped system log (total=%d): %v", n, err)
	}
}

// DroppedLogs reports how many best-effort log writes were lost.
func (s *Store) DroppedLogs() int64 {
	return s.droppedLogs.Load()
}

// RecordTrade persists an executed (or simulated) entry.
func (s *Store) RecordTrade(ctx context.Context, t TradeHistoryModel) error {
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}
	return s.db.WithContext(ctx).Create(&t).Error
}

// RecentLogs returns the newest system log rows, newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]SystemLogModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []SystemLogModel
	err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// RecentTrades returns the newest trade history rows, newest first.
func (s *Store) RecentTrades(ctx context.Context, limit int) ([]TradeHistoryModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []TradeHistoryModel
	err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&rows).Error
	return rows, err
}
