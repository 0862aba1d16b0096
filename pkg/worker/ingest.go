// Package worker runs the background poll loops: the ingest worker that
// drives pending jobs through OCR into staging, and the approval expiry
// sweeper. Each cycle runs under a redis lock so multiple instances never
// process the same batch.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/functions"
	"github.com/Ramsey-B/clover/pkg/lifecycle"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/reconciler"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ErrWorkerAlreadyRunning is returned when starting a running worker
var ErrWorkerAlreadyRunning = errors.New("worker already running")

const (
	// DefaultPollInterval is the default interval between ingest cycles
	DefaultPollInterval = 15 * time.Second

	// DefaultBatchSize is the number of jobs claimed per cycle
	DefaultBatchSize = 10

	// DefaultLockTTL is the default TTL for the cycle lock
	DefaultLockTTL = 60 * time.Second

	ingestLockKey = "ingest:claim"
)

// IngestConfig holds ingest worker tuning
type IngestConfig struct {
	PollInterval  time.Duration
	BatchSize     int
	LockTTL       time.Duration
	MinConfidence float64
}

// IngestWorker polls for due pending jobs and runs them through the parser
type IngestWorker struct {
	controller *lifecycle.Controller
	reconciler *reconciler.Service
	files      FileStore
	parser     MenuParser
	locker     *redis.Locker
	config     IngestConfig
	logger     ectologger.Logger

	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       sync.RWMutex
}

// NewIngestWorker creates a new ingest worker
func NewIngestWorker(
	controller *lifecycle.Controller,
	reconcilerSvc *reconciler.Service,
	files FileStore,
	parser MenuParser,
	locker *redis.Locker,
	config IngestConfig,
	logger ectologger.Logger,
) *IngestWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}

	return &IngestWorker{
		controller: controller,
		reconciler: reconcilerSvc,
		files:      files,
		parser:     parser,
		locker:     locker,
		config:     config,
		logger:     logger,
		stopCh:     make(chan struct{}),
		stoppedC:   make(chan struct{}),
	}
}

// Start starts the ingest worker
func (w *IngestWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrWorkerAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()

	w.logger.WithContext(ctx).Infof("Starting ingest worker: poll_interval=%s batch_size=%d",
		w.config.PollInterval, w.config.BatchSize)

	go w.pollLoop(ctx)
	return nil
}

// Stop stops the ingest worker gracefully
func (w *IngestWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.stoppedC:
		w.logger.WithContext(ctx).Info("Ingest worker stopped")
	case <-ctx.Done():
		w.logger.WithContext(ctx).Warn("Ingest worker shutdown timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the worker is running
func (w *IngestWorker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *IngestWorker) pollLoop(ctx context.Context) {
	defer close(w.stoppedC)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.runCycle(ctx)

	for {
		select {
		case <-w.stopCh:
			w.logger.WithContext(ctx).Debug("Ingest worker poll loop stopping")
			return
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

// runCycle claims a batch of due jobs under the cycle lock and processes
// them. A missed lock means another instance is on this cycle.
func (w *IngestWorker) runCycle(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "worker.IngestWorker.runCycle")
	defer span.End()

	err := w.locker.WithLock(ctx, ingestLockKey, w.config.LockTTL, func() error {
		jobs, err := w.controller.ClaimDue(ctx, w.config.BatchSize)
		if err != nil {
			return err
		}

		if len(jobs) == 0 {
			return nil
		}

		w.logger.WithContext(ctx).Infof("Claimed %d ingest jobs", len(jobs))
		for i := range jobs {
			w.processJob(ctx, &jobs[i])
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			metrics.WorkerCyclesTotal.WithLabelValues("ingest", "skipped").Inc()
			return
		}
		metrics.WorkerCyclesTotal.WithLabelValues("ingest", "error").Inc()
		w.logger.WithContext(ctx).WithError(err).Error("Ingest cycle failed")
		return
	}

	metrics.WorkerCyclesTotal.WithLabelValues("ingest", "ok").Inc()
}

// processJob runs one claimed job through fetch, parse, and staging. Any
// failure routes through the controller, which decides retry versus fail.
func (w *IngestWorker) processJob(ctx context.Context, job *models.IngestJob) {
	ctx, span := tracing.StartSpan(ctx, "worker.IngestWorker.processJob")
	defer span.End()

	metrics.WorkerJobsInFlight.Inc()
	defer metrics.WorkerJobsInFlight.Dec()

	log := w.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":   job.ID,
		"venue_id": job.VenueID,
		"attempt":  job.AttemptCount + 1,
	})
	log.Info("Processing ingest job")

	image, err := w.files.Fetch(ctx, job.FilePath)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			w.failJob(ctx, job, models.IngestErrorFileNotFound, err.Error())
			return
		}
		w.failJob(ctx, job, models.IngestErrorOCRFailed, err.Error())
		return
	}

	items, err := w.parser.ParseMenu(ctx, image)
	if err != nil {
		var remoteErr *functions.RemoteError
		if errors.As(err, &remoteErr) {
			w.failJob(ctx, job, models.IngestErrorOCRFailed, remoteErr.Message)
			return
		}
		w.failJob(ctx, job, models.IngestErrorInvalidJSON, err.Error())
		return
	}

	cleaned := w.cleanItems(items)
	if _, err := w.reconciler.CreateStagingItems(ctx, job.TenantID, job.ID, job.VenueID, cleaned); err != nil {
		w.failJob(ctx, job, models.IngestErrorDBError, err.Error())
		return
	}

	if _, err := w.controller.Transition(ctx, job.TenantID, job.ID, models.IngestJobStatusNeedsReview); err != nil {
		log.WithError(err).Error("Failed to move ingest job to review")
		return
	}

	log.WithFields(map[string]any{"items": len(cleaned)}).Info("Ingest job ready for review")
}

// cleanItems drops unusable raw rows and normalizes confidence. Rows with
// no name cannot become menu items; out-of-range confidence is clamped and
// low-confidence rows carry a warning for the reviewer.
func (w *IngestWorker) cleanItems(items []models.ParsedItem) []models.ParsedItem {
	cleaned := make([]models.ParsedItem, 0, len(items))
	for _, item := range items {
		if item.Name == "" {
			continue
		}

		if item.Confidence != nil {
			c := *item.Confidence
			if c < 0 {
				c = 0
			}
			if c > 1 {
				c = 1
			}
			item.Confidence = &c
			if c < w.config.MinConfidence {
				item.Warnings = append(item.Warnings, "low confidence")
			}
		}
		if item.Price == nil {
			item.Warnings = append(item.Warnings, "no price detected")
		}

		cleaned = append(cleaned, item)
	}
	return cleaned
}

func (w *IngestWorker) failJob(ctx context.Context, job *models.IngestJob, errCode, errMessage string) {
	if err := w.controller.HandleParserFailure(ctx, job, errCode, errMessage); err != nil {
		w.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"job_id":     job.ID,
			"error_code": errCode,
		}).Error("Failed to record ingest job failure")
	}
}
