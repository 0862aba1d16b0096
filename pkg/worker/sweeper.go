package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/approvals"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	// DefaultSweepInterval is the default interval between expiry sweeps
	DefaultSweepInterval = 60 * time.Second

	sweepLockKey = "approvals:sweep"
)

// SweeperConfig holds expiry sweeper tuning
type SweeperConfig struct {
	Interval time.Duration
	LockTTL  time.Duration
}

// ApprovalSweeper periodically expires pending approval requests that have
// passed their expiry
type ApprovalSweeper struct {
	approvals *approvals.Service
	locker    *redis.Locker
	config    SweeperConfig
	logger    ectologger.Logger

	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       sync.RWMutex
}

// NewApprovalSweeper creates a new approval expiry sweeper
func NewApprovalSweeper(approvalsSvc *approvals.Service, locker *redis.Locker, config SweeperConfig, logger ectologger.Logger) *ApprovalSweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultSweepInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}

	return &ApprovalSweeper{
		approvals: approvalsSvc,
		locker:    locker,
		config:    config,
		logger:    logger,
		stopCh:    make(chan struct{}),
		stoppedC:  make(chan struct{}),
	}
}

// Start starts the sweeper
func (s *ApprovalSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrWorkerAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithContext(ctx).Infof("Starting approval sweeper: interval=%s", s.config.Interval)

	go s.pollLoop(ctx)
	return nil
}

// Stop stops the sweeper gracefully
func (s *ApprovalSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.stoppedC:
		s.logger.WithContext(ctx).Info("Approval sweeper stopped")
	case <-ctx.Done():
		s.logger.WithContext(ctx).Warn("Approval sweeper shutdown timed out")
		return ctx.Err()
	}

	return nil
}

func (s *ApprovalSweeper) pollLoop(ctx context.Context) {
	defer close(s.stoppedC)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.runSweep(ctx)

	for {
		select {
		case <-s.stopCh:
			s.logger.WithContext(ctx).Debug("Approval sweeper poll loop stopping")
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

func (s *ApprovalSweeper) runSweep(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "worker.ApprovalSweeper.runSweep")
	defer span.End()

	err := s.locker.WithLock(ctx, sweepLockKey, s.config.LockTTL, func() error {
		_, err := s.approvals.ExpireDue(ctx, time.Now().UTC())
		return err
	})
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			metrics.WorkerCyclesTotal.WithLabelValues("sweeper", "skipped").Inc()
			return
		}
		metrics.WorkerCyclesTotal.WithLabelValues("sweeper", "error").Inc()
		s.logger.WithContext(ctx).WithError(err).Error("Approval sweep failed")
		return
	}

	metrics.WorkerCyclesTotal.WithLabelValues("sweeper", "ok").Inc()
}
