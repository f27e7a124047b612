package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// AsyncBuffer is the size of the write channel.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds each storage write and how long Record waits for
	// channel space.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes records to storage from a background worker so that
// journaling never delays a pipeline run.
type Recorder struct {
	storage    Storage
	config     RecorderConfig
	recordChan chan *Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
	now        func() time.Time
}

// NewRecorder starts a recorder writing to storage.
func NewRecorder(storage Storage, config RecorderConfig) *Recorder {
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = DefaultRecorderConfig().AsyncBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultRecorderConfig().WriteTimeout
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "journal.recorder"),
		now:        time.Now,
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Record enqueues a copy of rec. Missing IDs and timestamps are filled in.
// It returns a *RecorderError when the channel stays full for WriteTimeout
// or the recorder is closed.
func (r *Recorder) Record(ctx context.Context, rec *Record) error {
	cp := *rec
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = r.now()
	}

	select {
	case <-r.done:
		return NewRecorderError(cp.ID, context.Canceled)
	default:
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- &cp:
		return nil
	case <-timer.C:
		r.logger.Error("journal channel full, dropping record",
			"record_id", cp.ID,
			"request_id", cp.RequestID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return NewRecorderError(cp.ID, context.DeadlineExceeded)
	case <-r.done:
		return NewRecorderError(cp.ID, context.Canceled)
	case <-ctx.Done():
		return NewRecorderError(cp.ID, ctx.Err())
	}
}

// Close drains pending records and stops the worker. It does not close
// the storage.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case rec := <-r.recordChan:
			r.write(rec)
		case <-r.done:
			for {
				select {
				case rec := <-r.recordChan:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, rec); err != nil {
		r.logger.Error("failed to store journal record",
			"record_id", rec.ID,
			"request_id", rec.RequestID,
			"error", err,
		)
		return
	}

	duration := time.Since(start)
	r.logger.Debug("journal record stored",
		"record_id", rec.ID,
		"request_id", rec.RequestID,
		"status", rec.Status,
		"duration_ms", duration.Milliseconds(),
	)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow journal write",
			"record_id", rec.ID,
			"duration_ms", duration.Milliseconds(),
		)
	}
}
