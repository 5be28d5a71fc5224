// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"gdeltnews/internal/shared/biztime"
	"gdeltnews/internal/shared/logger"
)

// BatchJob defines the interface for a scheduled batch processing job.
// Each Execute call processes a batch and returns the number of items processed.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// MaintenanceTimeout bounds one nightly pass: retention plus a full warmup
// sweep across the configured country set.
const MaintenanceTimeout = 30 * time.Minute

// Manager manages all scheduled jobs using gocron v2.
type Manager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewManager creates a new Manager instance. It initializes gocron with the
// business timezone so cron expressions fire on the same wall clock the
// day-boundary calculations use.
func NewManager(log logger.Interface) (*Manager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &Manager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterMaintenanceJob registers the nightly maintenance job (retention
// enforcement plus cache warmup) at the given hour and minute in the
// business timezone.
func (m *Manager) RegisterMaintenanceJob(job BatchJob, hour, minute int) error {
	_, err := m.scheduler.NewJob(
		gocron.CronJob(fmt.Sprintf("%d %d * * *", minute, hour), false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), MaintenanceTimeout)
			defer cancel()
			m.runMaintenance(ctx, job)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("maintenance", "retention", "warmup"),
		gocron.WithName("nightly-maintenance"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered maintenance job",
		"schedule", fmt.Sprintf("%02d:%02d", hour, minute),
	)
	return nil
}

func (m *Manager) runMaintenance(ctx context.Context, job BatchJob) {
	m.logger.Infow("nightly maintenance started")

	startTime := time.Now()
	warmed, err := job.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("nightly maintenance failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	m.logger.Infow("nightly maintenance completed",
		"countries_warmed", warmed,
		"duration", time.Since(startTime),
	)
}

// Start starts the scheduler and all registered jobs.
func (m *Manager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler. It waits for running jobs to
// complete before returning.
func (m *Manager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *Manager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *Manager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
