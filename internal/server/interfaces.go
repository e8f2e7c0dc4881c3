package server

import (
	"context"
	"time"

	"github.com/afroash/storm-antenna/internal/models"
	"github.com/afroash/storm-antenna/internal/storage"
)

// Controller is the decision cycle and command surface the handlers drive.
// control.Controller implements this interface.
type Controller interface {
	Cycle(ctx context.Context) *models.CycleRecord
	Manual(ctx context.Context, ch models.Channel, on bool) error
	Reset(ctx context.Context)
	TestOutputs(ctx context.Context) error
	TestIndividual(ctx context.Context) error
	Status() *models.CycleRecord
	Device() *models.DeviceInfo
	Thresholds() models.Thresholds
	Channels() []models.Channel
}

// RecordStore defines the interface for recent in-memory history.
// MemoryStore implements this interface
type RecordStore interface {
	// Record adds a cycle record
	Record(rec *models.CycleRecord)

	// RecordCommand adds a command record
	RecordCommand(rec *models.CommandRecord)

	// GetLatest returns the n most recent records (newest first)
	GetLatest(n int) []*models.CycleRecord

	// GetBefore returns up to n records recorded before t (newest first)
	GetBefore(before time.Time, n int) []*models.CycleRecord

	// GetCommands returns the n most recent commands (newest first)
	GetCommands(n int) []*models.CommandRecord

	// Stats returns statistics about the store
	Stats() StoreStats
}

// HistoricalStore defines the interface for persistent history.
// storage.SQLiteStore implements this interface
type HistoricalStore interface {
	// GetCyclesInRange returns cycles within a time range
	GetCyclesInRange(start, end time.Time, limit int) ([]*models.CycleRecord, error)

	// GetCyclesBefore returns cycles before a timestamp (for scrolling back)
	GetCyclesBefore(before time.Time, limit int) ([]*models.CycleRecord, error)

	// GetCommands returns the most recent commands
	GetCommands(limit int) ([]*models.CommandRecord, error)

	// GetDailyStats returns aggregated daily statistics
	GetDailyStats(start, end time.Time) ([]storage.DailyStat, error)

	// GetStorageStats returns database statistics
	GetStorageStats() (*storage.StorageStats, error)
}
