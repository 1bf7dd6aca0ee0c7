package store

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fileforge/fileforge/internal/job"
)

// ConversionRecord is one terminal conversion outcome, kept as an audit log.
// Live job state never touches the database; it stays with the job manager.
type ConversionRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	JobID      string    `gorm:"index" json:"job_id"`
	FileName   string    `json:"file_name"`
	Category   string    `json:"category"`
	SourceExt  string    `json:"source_ext"`
	TargetExt  string    `json:"target_ext"`
	Status     string    `gorm:"index" json:"status"`
	Error      string    `json:"error,omitempty"`
	OutputLen  int64     `json:"output_bytes"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stats aggregates the history table.
type Stats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Store persists conversion history in SQLite.
type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) the history database at path. Use ":memory:"
// for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.AutoMigrate(&ConversionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Record implements job.HistorySink.
func (s *Store) Record(entry job.HistoryEntry) {
	rec := ConversionRecord{
		JobID:      entry.JobID,
		FileName:   entry.FileName,
		Category:   string(entry.Category),
		SourceExt:  entry.SourceExt,
		TargetExt:  entry.TargetExt,
		Status:     string(entry.Status),
		Error:      entry.Error,
		OutputLen:  entry.OutputLen,
		DurationMs: entry.Duration.Milliseconds(),
	}
	s.db.Create(&rec)
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(limit int) ([]ConversionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []ConversionRecord
	err := s.db.Order("id desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// Summary aggregates outcome counts.
func (s *Store) Summary() (Stats, error) {
	var stats Stats
	if err := s.db.Model(&ConversionRecord{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}
	if err := s.db.Model(&ConversionRecord{}).Where("status = ?", string(job.StatusCompleted)).Count(&stats.Completed).Error; err != nil {
		return stats, err
	}
	err := s.db.Model(&ConversionRecord{}).Where("status = ?", string(job.StatusError)).Count(&stats.Failed).Error
	return stats, err
}
