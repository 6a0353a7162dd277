package alert

import (
	"log"
	"sync"
	"time"
)

const (
	// PollActive is the check interval while the dashboard is in use.
	PollActive = 5 * time.Minute

	// PollBackground is the check interval while the dashboard is idle.
	PollBackground = 15 * time.Minute

	// firstCheckDelay keeps the first check out of startup's way.
	firstCheckDelay = 5 * time.Second
)

// Scheduler re-arms the engine's check cycle on a recurring timer. A
// presence transition cancels the pending timer and reschedules at the
// new interval; it never stacks timers.
type Scheduler struct {
	mu sync.Mutex

	engine     *Engine
	active     time.Duration
	background time.Duration

	foreground bool
	running    bool
	next       *time.Timer
	first      *time.Timer
}

func NewScheduler(engine *Engine) *Scheduler {
	return &Scheduler{
		engine:     engine,
		active:     PollActive,
		background: PollBackground,
	}
}

// Start begins polling. No-op when alerts are disabled in settings.
// Safe to call repeatedly; a running scheduler is rescheduled.
func (s *Scheduler) Start() {
	if !s.engine.Settings().Enabled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.running = true

	interval := s.intervalLocked()
	s.next = time.AfterFunc(interval, s.tick)
	s.first = time.AfterFunc(firstCheckDelay, s.engine.RunCheckCycle)

	log.Printf("🚀 Alert polling started (interval %s)\n", interval)
}

// SetForeground records dashboard presence and re-arms the timer at
// the matching interval, mirroring browser visibility transitions.
func (s *Scheduler) SetForeground(foreground bool) {
	s.mu.Lock()
	s.foreground = foreground
	s.mu.Unlock()

	if s.engine.Settings().Enabled {
		s.Start()
	}
}

// Stop cancels any pending checks. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	s.running = false
	if s.next != nil {
		s.next.Stop()
		s.next = nil
	}
	if s.first != nil {
		s.first.Stop()
		s.first = nil
	}
}

func (s *Scheduler) intervalLocked() time.Duration {
	if s.foreground {
		return s.active
	}
	return s.background
}

func (s *Scheduler) tick() {
	s.engine.RunCheckCycle()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.next = time.AfterFunc(s.intervalLocked(), s.tick)
}
