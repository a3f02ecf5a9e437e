// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// OrphanBlobSweeper provides the ability to delete unreferenced blobs.
type OrphanBlobSweeper interface {
	DeleteOrphans() (int64, error)
}

// SweepScheduler periodically reclaims blobs nothing references anymore.
// An interrupted thumbnail swap leaves the replaced blob behind by contract;
// the sweep is what eventually cleans those up.
type SweepScheduler struct {
	sweeper  OrphanBlobSweeper
	schedule string

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewSweepScheduler creates a sweep scheduler with a standard 5-field cron
// schedule.
func NewSweepScheduler(sweeper OrphanBlobSweeper, schedule string) *SweepScheduler {
	return &SweepScheduler{
		sweeper:  sweeper,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start registers the sweep job and begins the schedule.
func (s *SweepScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runSweep); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.isRunning = true
	logrus.Infof("orphan blob sweep scheduled: %s", s.schedule)
	return nil
}

// Stop halts the schedule, waiting for an in-flight sweep to finish.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
}

func (s *SweepScheduler) runSweep() {
	deleted, err := s.sweeper.DeleteOrphans()
	if err != nil {
		logrus.Errorf("orphan blob sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		logrus.Infof("orphan blob sweep removed %d blobs", deleted)
	}
}
