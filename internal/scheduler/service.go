package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/bidradar/rfp-discovery-bot/internal/config"
	"github.com/bidradar/rfp-discovery-bot/internal/monitoring"
)

// Service schedules periodic discovery runs.
type Service struct {
	config    *config.Config
	discovery *monitoring.Service
	cron      *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, discovery *monitoring.Service) *Service {
	return &Service{
		config:    cfg,
		discovery: discovery,
		cron:      cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled discovery scans
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.ScanSchedule {
	case "hourly":
		cronExpression = "0 0 * * * *"
	case "daily":
		// Run daily at 6 AM UTC, before the working day starts
		cronExpression = "0 0 6 * * *"
	case "weekly":
		// Run weekly on Monday at 6 AM UTC
		cronExpression = "0 0 6 * * MON"
	default:
		cronExpression = "0 0 6 * * *"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled discovery run")
		count, err := s.discovery.RunDiscovery(context.Background(), "")
		if err != nil {
			logrus.Errorf("Scheduled discovery run failed: %v", err)
			return
		}
		logrus.Infof("Scheduled discovery run finished: %d opportunities discovered", count)
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s scan schedule", s.config.ScanSchedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
