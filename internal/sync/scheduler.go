package sync

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/config"
)

type Scheduler struct {
	cfg      config.SchedulerConfig
	daysBack int
	timeout  time.Duration
	manager  *Manager
	cron     *cron.Cron
	entryID  cron.EntryID
	log      *zap.Logger
	now      func() time.Time
}

func NewScheduler(cfg config.SchedulerConfig, syncCfg config.SyncConfig, manager *Manager, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		daysBack: syncCfg.DaysBack,
		timeout:  syncCfg.Timeout,
		manager:  manager,
		cron:     cron.New(),
		log:      log,
		now:      time.Now,
	}
}

func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.log.Info("Scheduler is disabled")
		return nil
	}

	s.log.Info("Starting scheduler",
		zap.String("interval", s.cfg.Interval),
		zap.Int("days_back", s.daysBack),
	)

	id, err := s.cron.AddFunc(s.cfg.Interval, s.triggerSync)
	if err != nil {
		return err
	}

	s.entryID = id
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.log.Info("Stopped scheduler")
}

// cutoff returns nil for a full snapshot, otherwise now minus days_back.
func (s *Scheduler) cutoff() *time.Time {
	if s.daysBack <= 0 {
		return nil
	}
	since := s.now().AddDate(0, 0, -s.daysBack)
	return &since
}

func (s *Scheduler) triggerSync() {
	s.log.Info("Triggering scheduled sync")

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	_, err := s.manager.Run(ctx, s.cutoff())
	switch {
	case errors.Is(err, ErrSyncInProgress):
		s.log.Info("Sync already running, skipping scheduled run")
	case err != nil:
		s.log.Error("Scheduled sync failed", zap.Error(err))
	}
}
