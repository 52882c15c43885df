package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"library_service/pkg/circuitbreaker"
	"library_service/pkg/config"
	"library_service/pkg/loans"
)

var ErrScanInProgress = errors.New("overdue scan already in progress")

// OverdueScanner runs the loan engine's overdue scan on a cron schedule.
type OverdueScanner struct {
	db       *gorm.DB
	engine   *loans.Engine
	breaker  *circuitbreaker.CircuitBreaker
	schedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
	scanning   atomic.Bool
}

func NewOverdueScanner(db *gorm.DB, engine *loans.Engine, cfg config.OverdueScan) *OverdueScanner {
	return &OverdueScanner{
		db:       db,
		engine:   engine,
		breaker:  circuitbreaker.NewCircuitBreakerWithWindow(cfg.MaxFailures, cfg.Cooldown, time.Hour),
		schedule: cfg.Schedule,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start schedules the scan and returns immediately. Cancelling ctx stops
// the scheduler.
func (s *OverdueScanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := config.ValidateCronSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.tick)
	if err != nil {
		return fmt.Errorf("failed to schedule overdue scan: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Overdue scanner: started with schedule '%s'", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a scan in flight to finish.
func (s *OverdueScanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron.Remove(s.entryID)

	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Overdue scanner: stopped")
}

func (s *OverdueScanner) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun is nil while the scanner is stopped.
func (s *OverdueScanner) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	t := s.cron.Entry(s.entryID).Next
	return &t
}

// RunNow scans synchronously and returns how many loans became overdue.
func (s *OverdueScanner) RunNow(ctx context.Context) (int, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		return 0, ErrScanInProgress
	}
	defer s.scanning.Store(false)

	var flipped int
	err := s.breaker.Execute(func() error {
		overdue, err := s.engine.ScanOverdue(ctx, s.db)
		if err != nil {
			return err
		}
		flipped = len(overdue)
		return nil
	})
	return flipped, err
}

func (s *OverdueScanner) tick() {
	start := time.Now()
	flipped, err := s.RunNow(context.Background())
	switch {
	case errors.Is(err, ErrScanInProgress):
		log.Printf("Overdue scan: skipped (previous scan still running)")
	case errors.Is(err, circuitbreaker.ErrOpen):
		log.Printf("Overdue scan: skipped (circuit breaker open)")
	case err != nil:
		log.Printf("Overdue scan: failed: %v", err)
	default:
		log.Printf("Overdue scan: %d loan(s) marked overdue in %v", flipped, time.Since(start).Round(time.Millisecond))
	}
}
