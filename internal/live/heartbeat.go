package live

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default heartbeat cadence and cap on how long one activity may keep a
// chat's transport warm.
const (
	DefaultHeartbeatInterval = time.Second
	DefaultHeartbeatLifetime = 120 * time.Second
)

// HeartbeatScheduler emits periodic heartbeat frames for chats with
// background work in flight. Each running chat holds a periodic ticker plus a
// bounded-lifetime timer that force-stops it, so a forgotten Stop can never
// leave an immortal timer behind.
type HeartbeatScheduler struct {
	registry *Registry
	interval time.Duration
	lifetime time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running map[string]*heartbeat
}

type heartbeat struct {
	ticker   *time.Ticker
	lifetime *time.Timer
	done     chan struct{}
	// gen increments whenever the lifetime timer is replaced, so a timer
	// that fired before being stopped cannot cancel its successor.
	gen int
}

// NewHeartbeatScheduler returns a scheduler broadcasting through registry.
// Non-positive durations fall back to the defaults.
func NewHeartbeatScheduler(registry *Registry, interval, lifetime time.Duration, logger *zap.Logger) *HeartbeatScheduler {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if lifetime <= 0 {
		lifetime = DefaultHeartbeatLifetime
	}
	return &HeartbeatScheduler{
		registry: registry,
		interval: interval,
		lifetime: lifetime,
		logger:   logger.Named("heartbeat"),
		running:  make(map[string]*heartbeat),
	}
}

// Start begins heartbeating chatID. If a heartbeat is already running it is
// stopped and replaced, which resets the bounded lifetime.
func (s *HeartbeatScheduler) Start(chatID string) {
	s.mu.Lock()
	if hb, ok := s.running[chatID]; ok {
		s.stopLocked(chatID, hb)
	}

	hb := &heartbeat{
		ticker: time.NewTicker(s.interval),
		done:   make(chan struct{}),
	}
	hb.lifetime = time.AfterFunc(s.lifetime, func() { s.forceStop(chatID, hb, 0) })
	s.running[chatID] = hb
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-hb.done:
				return
			case <-hb.ticker.C:
				s.registry.Broadcast(chatID, Heartbeat())
			}
		}
	}()
	s.logger.Debug("heartbeat started", zap.String("chat_id", chatID))
}

// Extend replaces only the bounded-lifetime timer, leaving the periodic
// ticker's phase untouched. No-op when the chat is not running.
func (s *HeartbeatScheduler) Extend(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hb, ok := s.running[chatID]
	if !ok {
		return
	}
	hb.lifetime.Stop()
	hb.gen++
	gen := hb.gen
	hb.lifetime = time.AfterFunc(s.lifetime, func() { s.forceStop(chatID, hb, gen) })
}

// forceStop ends a heartbeat whose lifetime elapsed. The identity and
// generation checks keep an already-fired timer from killing a heartbeat that
// was restarted or extended since.
func (s *HeartbeatScheduler) forceStop(chatID string, hb *heartbeat, gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.running[chatID]
	if !ok || current != hb || hb.gen != gen {
		return
	}
	s.logger.Warn("heartbeat lifetime elapsed, forcing stop", zap.String("chat_id", chatID))
	s.stopLocked(chatID, hb)
}

// Stop cancels both timers for chatID. Safe to call when not running.
func (s *HeartbeatScheduler) Stop(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hb, ok := s.running[chatID]
	if !ok {
		return
	}
	s.stopLocked(chatID, hb)
}

// Running reports whether chatID currently has an active heartbeat.
func (s *HeartbeatScheduler) Running(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[chatID]
	return ok
}

func (s *HeartbeatScheduler) stopLocked(chatID string, hb *heartbeat) {
	hb.ticker.Stop()
	hb.lifetime.Stop()
	close(hb.done)
	delete(s.running, chatID)
	s.logger.Debug("heartbeat stopped", zap.String("chat_id", chatID))
}
