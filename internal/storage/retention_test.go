package storage

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRetentionCleaner_InitialCleanup(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now().UTC()

	store.InsertCycle(createTestCycle(now.AddDate(0, 0, -10), true, false, 20))
	store.InsertCycle(createTestCycle(now.AddDate(0, 0, -2), true, false, 20))
	store.InsertCycle(createTestCycle(now, true, false, 20))

	cleaner, err := NewRetentionCleaner(store, RetentionCleanerConfig{RetentionDays: 7, Schedule: "@every 1h"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRetentionCleaner failed: %v", err)
	}
	defer cleaner.Stop()

	stats := cleaner.Stats()
	if stats.TotalCleanups != 1 || stats.LastDeleteCount != 1 {
		t.Errorf("stats = %+v, want one cleanup deleting one cycle", stats)
	}

	storeStats, _ := store.GetStorageStats()
	if storeStats.TotalCycles != 2 {
		t.Errorf("TotalCycles = %d, want 2", storeStats.TotalCycles)
	}
}

func TestRetentionCleaner_RunNow(t *testing.T) {
	store := setupTestStore(t)

	cleaner, err := NewRetentionCleaner(store, DefaultRetentionCleanerConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRetentionCleaner failed: %v", err)
	}
	defer cleaner.Stop()

	store.InsertCycle(createTestCycle(time.Now().UTC().AddDate(0, 0, -45), false, false, 20))
	cleaner.RunNow()

	stats := cleaner.Stats()
	if stats.TotalCleanups != 2 || stats.TotalDeleted != 1 {
		t.Errorf("stats = %+v, want 2 cleanups and 1 deletion", stats)
	}
	if stats.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", stats.RetentionDays)
	}
}

func TestRetentionCleaner_Schedule(t *testing.T) {
	store := setupTestStore(t)

	cleaner, err := NewRetentionCleaner(store, RetentionCleanerConfig{RetentionDays: 1, Schedule: "@every 1s"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRetentionCleaner failed: %v", err)
	}
	defer cleaner.Stop()

	waitFor(t, 3*time.Second, func() bool { return cleaner.Stats().TotalCleanups >= 2 })
}

func TestRetentionCleaner_InvalidSchedule(t *testing.T) {
	store := setupTestStore(t)

	if _, err := NewRetentionCleaner(store, RetentionCleanerConfig{RetentionDays: 1, Schedule: "whenever"}, zerolog.Nop()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestRetentionCleaner_StopIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	cleaner, err := NewRetentionCleaner(store, DefaultRetentionCleanerConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRetentionCleaner failed: %v", err)
	}
	cleaner.Stop()
	cleaner.Stop()
}
