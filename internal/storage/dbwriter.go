package storage

import (
	"sync"
	"time"

	"github.com/afroash/storm-antenna/internal/metrics"
	"github.com/afroash/storm-antenna/internal/models"
	"github.com/rs/zerolog"
)

// DBWriter handles async batched writes of cycles and commands
type DBWriter struct {
	store       Store
	logger      zerolog.Logger
	writeChan   chan writeItem
	batchSize   int
	flushPeriod time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup

	// Stats
	mu            sync.RWMutex
	totalWritten  int64
	totalBatches  int64
	totalErrors   int64
	totalDropped  int64
	lastWriteTime time.Time
}

// writeItem carries exactly one of cycle or command
type writeItem struct {
	cycle   *models.CycleRecord
	command *models.CommandRecord
}

// DBWriterConfig holds configuration for the async writer
type DBWriterConfig struct {
	BatchSize   int           // records per write (default: 10)
	FlushPeriod time.Duration // max time between flushes (default: 5s)
	ChannelSize int           // write queue capacity (default: 100)
}

// DefaultDBWriterConfig returns defaults sized for one cycle per request
func DefaultDBWriterConfig() DBWriterConfig {
	return DBWriterConfig{
		BatchSize:   10,
		FlushPeriod: 5 * time.Second,
		ChannelSize: 100,
	}
}

// DBWriterStats contains statistics about the writer
type DBWriterStats struct {
	TotalWritten  int64     `json:"total_written"`
	TotalBatches  int64     `json:"total_batches"`
	TotalErrors   int64     `json:"total_errors"`
	TotalDropped  int64     `json:"total_dropped"`
	LastWriteTime time.Time `json:"last_write_time,omitempty"`
	QueueLength   int       `json:"queue_length"`
}

// NewDBWriter creates and starts an async database writer
func NewDBWriter(store Store, config DBWriterConfig, logger zerolog.Logger) *DBWriter {
	defaults := DefaultDBWriterConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.FlushPeriod <= 0 {
		config.FlushPeriod = defaults.FlushPeriod
	}
	if config.ChannelSize <= 0 {
		config.ChannelSize = defaults.ChannelSize
	}

	w := &DBWriter{
		store:       store,
		logger:      logger,
		writeChan:   make(chan writeItem, config.ChannelSize),
		batchSize:   config.BatchSize,
		flushPeriod: config.FlushPeriod,
		stopChan:    make(chan struct{}),
	}

	w.wg.Add(1)
	go w.writerLoop()

	logger.Info().
		Int("batch_size", config.BatchSize).
		Dur("flush_period", config.FlushPeriod).
		Int("channel_size", config.ChannelSize).
		Msg("DBWriter started")

	return w
}

// Record queues a cycle record. It never blocks; a full queue drops the record.
func (w *DBWriter) Record(rec *models.CycleRecord) {
	w.enqueue(writeItem{cycle: rec})
}

// RecordCommand queues a command record
func (w *DBWriter) RecordCommand(rec *models.CommandRecord) {
	w.enqueue(writeItem{command: rec})
}

// Write queues a cycle record. Returns true if queued, false if dropped.
func (w *DBWriter) Write(rec *models.CycleRecord) bool {
	return w.enqueue(writeItem{cycle: rec})
}

func (w *DBWriter) enqueue(item writeItem) bool {
	select {
	case w.writeChan <- item:
		return true
	default:
		w.mu.Lock()
		w.totalDropped++
		w.mu.Unlock()
		metrics.HistoryWrites.WithLabelValues("dropped").Inc()
		w.logger.Warn().Msg("DBWriter channel full, dropping record")
		return false
	}
}

// writerLoop batches queued records until stopped
func (w *DBWriter) writerLoop() {
	defer w.wg.Done()

	batch := make([]writeItem, 0, w.batchSize)
	ticker := time.NewTicker(w.flushPeriod)
	defer ticker.Stop()

	for {
		select {
		case item := <-w.writeChan:
			batch = append(batch, item)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = make([]writeItem, 0, w.batchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = make([]writeItem, 0, w.batchSize)
			}

		case <-w.stopChan:
			draining := true
			for draining {
				select {
				case item := <-w.writeChan:
					batch = append(batch, item)
				default:
					draining = false
				}
			}
			if len(batch) > 0 {
				w.flush(batch)
			}
			w.logger.Info().Msg("DBWriter stopped")
			return
		}
	}
}

// flush writes a batch to the database
func (w *DBWriter) flush(batch []writeItem) {
	var cycles []*models.CycleRecord
	var commands []*models.CommandRecord
	for _, item := range batch {
		if item.cycle != nil {
			cycles = append(cycles, item.cycle)
		}
		if item.command != nil {
			commands = append(commands, item.command)
		}
	}

	err := w.store.InsertCycleBatch(cycles)
	if err == nil {
		err = w.store.InsertCommandBatch(commands)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.totalErrors++
		metrics.HistoryWrites.WithLabelValues("error").Add(float64(len(batch)))
		w.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Failed to write batch")
		return
	}
	w.totalWritten += int64(len(batch))
	w.totalBatches++
	w.lastWriteTime = time.Now()
	metrics.HistoryWrites.WithLabelValues("ok").Add(float64(len(batch)))
	w.logger.Debug().Int("cycles", len(cycles)).Int("commands", len(commands)).Msg("Flushed batch")
}

// Stop gracefully stops the writer, flushing any remaining data
func (w *DBWriter) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.wg.Wait()
	})
}

// Stats returns current writer statistics
func (w *DBWriter) Stats() DBWriterStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return DBWriterStats{
		TotalWritten:  w.totalWritten,
		TotalBatches:  w.totalBatches,
		TotalErrors:   w.totalErrors,
		TotalDropped:  w.totalDropped,
		LastWriteTime: w.lastWriteTime,
		QueueLength:   len(w.writeChan),
	}
}
