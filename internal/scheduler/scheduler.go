package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"go-inventory-uom/internal/config"
	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/repository"
	"go-inventory-uom/internal/service"
)

const backupTimeout = time.Minute

// Scheduler snapshots stock on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	stock   *service.StockManager
	backups repository.BackupRepository
	cfg     config.BackupConfig
	logger  *zap.Logger
}

func NewScheduler(cfg config.BackupConfig, stock *service.StockManager, backups repository.BackupRepository, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(),
		stock:   stock,
		backups: backups,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start registers the backup job and starts the cron runner. It is a no-op when backups are disabled.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("stock backups disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runBackup); err != nil {
		return fmt.Errorf("schedule stock backup %q: %w", s.cfg.CronSchedule, err)
	}
	s.logger.Info("starting scheduler", zap.String("backup_schedule", s.cfg.CronSchedule))
	s.cron.Start()
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// BackupNow snapshots current stock and stores it as the latest backup.
func (s *Scheduler) BackupNow(ctx context.Context) (*model.StockBackup, error) {
	backup, err := s.stock.CreateStockBackup(ctx)
	if err != nil {
		return nil, fmt.Errorf("create stock backup: %w", err)
	}
	if err := s.backups.Save(ctx, *backup); err != nil {
		return nil, fmt.Errorf("save stock backup: %w", err)
	}
	return backup, nil
}

func (s *Scheduler) runBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	backup, err := s.BackupNow(ctx)
	if err != nil {
		s.logger.Error("scheduled stock backup failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled stock backup stored", zap.Int("items", len(backup.Items)))
}
