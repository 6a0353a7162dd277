package api

import (
	"sync"
	"time"
)

// idleAfter is how long without a dashboard request before the service
// counts as backgrounded.
const idleAfter = 2 * time.Minute

// Presence tracks whether anyone is actively using the dashboard. It
// stands in for the browser's visibility state: API traffic marks the
// dashboard foregrounded, silence marks it backgrounded.
type Presence struct {
	mu       sync.Mutex
	lastSeen time.Time
	idle     *time.Timer

	// OnTransition is invoked with the new foreground state on every
	// transition, mirroring visibilitychange events.
	OnTransition func(foreground bool)
}

func NewPresence(onTransition func(foreground bool)) *Presence {
	return &Presence{OnTransition: onTransition}
}

// Touch records dashboard activity, firing a foreground transition if
// the dashboard was idle.
func (p *Presence) Touch() {
	p.mu.Lock()
	wasForeground := p.foregroundLocked()
	p.lastSeen = time.Now()

	if p.idle != nil {
		p.idle.Stop()
	}
	p.idle = time.AfterFunc(idleAfter, p.goIdle)
	fn := p.OnTransition
	p.mu.Unlock()

	if !wasForeground && fn != nil {
		fn(true)
	}
}

// Foreground reports whether the dashboard saw activity recently.
func (p *Presence) Foreground() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.foregroundLocked()
}

func (p *Presence) foregroundLocked() bool {
	return !p.lastSeen.IsZero() && time.Since(p.lastSeen) < idleAfter
}

func (p *Presence) goIdle() {
	p.mu.Lock()
	fn := p.OnTransition
	p.mu.Unlock()
	if fn != nil {
		fn(false)
	}
}
