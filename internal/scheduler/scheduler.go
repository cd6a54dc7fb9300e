package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"PriceStation/internal/reconciler"
)

// Station is what the scheduler drives.
type Station interface {
	UpdateAll(ctx context.Context, onlyOpen, blocking bool) ([]reconciler.Outcome, error)
	Patrol(ctx context.Context, force, dryRun bool) (string, error)
	Cleanup() (int, error)
	HandleCommand(ctx context.Context, command string) string
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron    *cron.Cron
	Station Station
	Daily   *DailyMarker
	Ctx     context.Context

	mu sync.Mutex
}

// NewScheduler creates a new Scheduler. Jobs never overlap.
func NewScheduler(ctx context.Context, st Station, daily *DailyMarker) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		Station: st,
		Daily:   daily,
		Ctx:     ctx,
	}
}

// RegisterAll registers the market poll and the daily full update.
func (s *Scheduler) RegisterAll(pollCron, dailyCron string) error {
	if _, err := s.Cron.AddFunc(pollCron, s.pollTask); err != nil {
		return fmt.Errorf("register poll task: %w", err)
	}
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunPollNow executes the poll task immediately (RUN_ON_START).
func (s *Scheduler) RunPollNow() {
	s.pollTask()
}

// HandleCommand answers a bot command once no job is running, so a manual
// /update never races the poll or the daily update.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Station.HandleCommand(ctx, command)
}

// pollTask refreshes open markets, then checks alerts and summary slots.
func (s *Scheduler) pollTask() {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Println("[INFO] running poll task")
	if _, err := s.Station.UpdateAll(s.Ctx, true, true); err != nil {
		log.Printf("[WARN] poll update: %v", err)
	}
	if s.Ctx.Err() != nil {
		return
	}
	if _, err := s.Station.Patrol(s.Ctx, false, false); err != nil {
		log.Printf("[ERROR] patrol: %v", err)
	}
}

// dailyTask updates every symbol once per day regardless of trading hours.
func (s *Scheduler) dailyTask() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Daily != nil && s.Daily.Done() {
		log.Println("[INFO] daily update already done today")
		return
	}
	log.Println("[INFO] running daily update")
	_, err := s.Station.UpdateAll(s.Ctx, false, true)
	if err != nil {
		log.Printf("[WARN] daily update: %v", err)
		return
	}
	if _, err := s.Station.Cleanup(); err != nil {
		log.Printf("[WARN] %v", err)
	}
	if s.Daily != nil {
		if err := s.Daily.Mark(); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}
}
