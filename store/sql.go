package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Guilhermevang/up2sat/model"
)

// TLEArtifact is one persisted resolution. Rows are append-only so the
// table doubles as a resolution history.
type TLEArtifact struct {
	ID          uint      `gorm:"primarykey"`
	Destination string    `gorm:"index;not null"`
	SatelliteID string    `gorm:"index;not null"`
	Line1       string    `gorm:"not null"`
	Line2       string    `gorm:"not null"`
	ResolvedAt  time.Time `gorm:"index"`
}

// TableName pins the table name.
func (TLEArtifact) TableName() string { return "tle_artifacts" }

// SQLStore persists TLE artifacts through gorm.
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) a sqlite database at path and migrates the
// schema. An empty path uses a private in-memory database.
func OpenSQLite(path string) (*SQLStore, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	if path == "" {
		// each new connection to :memory: is a fresh database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewSQLStore(db)
}

// NewSQLStore wraps an existing gorm handle and migrates the schema.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&TLEArtifact{}); err != nil {
		return nil, fmt.Errorf("migrate tle_artifacts: %w", err)
	}
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// WriteTLE implements Store.
func (s *SQLStore) WriteTLE(ctx context.Context, destination string, tle model.TLE) error {
	row := TLEArtifact{
		Destination: destination,
		SatelliteID: tle.SatelliteID,
		Line1:       tle.Line1,
		Line2:       tle.Line2,
		ResolvedAt:  s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert tle artifact: %w", err)
	}
	return nil
}

// Latest implements Reader, returning the newest record for destination.
func (s *SQLStore) Latest(ctx context.Context, destination string) (model.TLE, error) {
	var row TLEArtifact
	err := s.db.WithContext(ctx).
		Where("destination = ?", destination).
		Order("id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.TLE{}, ErrNotFound
	}
	if err != nil {
		return model.TLE{}, fmt.Errorf("query tle artifact: %w", err)
	}
	return model.TLE{SatelliteID: row.SatelliteID, Line1: row.Line1, Line2: row.Line2}, nil
}

// History returns every record written for satelliteID, oldest first.
func (s *SQLStore) History(ctx context.Context, satelliteID string) ([]TLEArtifact, error) {
	var rows []TLEArtifact
	err := s.db.WithContext(ctx).
		Where("satellite_id = ?", satelliteID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query tle history: %w", err)
	}
	return rows, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
