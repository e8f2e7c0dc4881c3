package server

import (
	"sync"
	"time"

	"github.com/afroash/storm-antenna/internal/models"
)

// MemoryStore is an in-memory ring buffer of recent cycle and command records
type MemoryStore struct {
	capacity     int
	records      []*models.CycleRecord
	commands     []*models.CommandRecord
	mutex        sync.RWMutex
	totalRecords int64
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{
		capacity: capacity,
	}
}

// Record adds a cycle record, evicting the oldest when full
func (ms *MemoryStore) Record(rec *models.CycleRecord) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if len(ms.records) >= ms.capacity {
		ms.records = ms.records[1:]
	}
	ms.records = append(ms.records, rec.Copy())
	ms.totalRecords++
}

// RecordCommand adds a command record, evicting the oldest when full
func (ms *MemoryStore) RecordCommand(rec *models.CommandRecord) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if len(ms.commands) >= ms.capacity {
		ms.commands = ms.commands[1:]
	}
	c := *rec
	ms.commands = append(ms.commands, &c)
}

// GetLatest returns the n most recent records, newest first
func (ms *MemoryStore) GetLatest(n int) []*models.CycleRecord {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	start := len(ms.records) - n
	if start < 0 {
		start = 0
	}

	result := make([]*models.CycleRecord, 0, len(ms.records)-start)
	for i := len(ms.records) - 1; i >= start; i-- {
		result = append(result, ms.records[i].Copy())
	}
	return result
}

// GetBefore returns up to n records recorded before t, newest first
func (ms *MemoryStore) GetBefore(before time.Time, n int) []*models.CycleRecord {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	var result []*models.CycleRecord
	for i := len(ms.records) - 1; i >= 0 && len(result) < n; i-- {
		if ms.records[i].RecordedAt.Before(before) {
			result = append(result, ms.records[i].Copy())
		}
	}
	return result
}

// GetCommands returns the n most recent commands, newest first
func (ms *MemoryStore) GetCommands(n int) []*models.CommandRecord {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	var result []*models.CommandRecord
	for i := len(ms.commands) - 1; i >= 0 && len(result) < n; i-- {
		c := *ms.commands[i]
		result = append(result, &c)
	}
	return result
}

// Stats returns statistics about the store
func (ms *MemoryStore) Stats() StoreStats {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	stats := StoreStats{
		TotalRecords:   ms.totalRecords,
		CurrentRecords: len(ms.records),
		Commands:       len(ms.commands),
		Capacity:       ms.capacity,
	}
	if len(ms.records) > 0 {
		stats.OldestRecord = ms.records[0].RecordedAt
		stats.NewestRecord = ms.records[len(ms.records)-1].RecordedAt
	}
	return stats
}

// StoreStats contains statistics about the memory store
type StoreStats struct {
	TotalRecords   int64     `json:"total_records"`
	CurrentRecords int       `json:"current_records"` // in memory now
	Commands       int       `json:"commands"`
	Capacity       int       `json:"capacity"`
	OldestRecord   time.Time `json:"oldest_record,omitempty"`
	NewestRecord   time.Time `json:"newest_record,omitempty"`
}

// Clear removes all data from the store
func (ms *MemoryStore) Clear() {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	ms.records = nil
	ms.commands = nil
	ms.totalRecords = 0
}
