// Package visitors keeps a lightweight online/daily counter for the
// landing page. A visitor counts as online for five minutes after the
// last enter ping; the daily total resets at local midnight.
package visitors

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const onlineWindow = 5 * time.Minute

type Service struct {
	mu     sync.Mutex
	online map[string]time.Time
	daily  int64
	day    string

	now func() time.Time
}

func NewService() *Service {
	return &Service{
		online: make(map[string]time.Time),
		now:    time.Now,
	}
}

// WithNow swaps the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Enter records a visitor ping and bumps the daily counter. An empty id
// gets one assigned; the caller keeps it for the exit call.
func (s *Service) Enter(id string) string {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)
	s.rollDayLocked(now)

	s.online[id] = now
	s.daily++

	return id
}

// Exit drops the visitor from the online set. Unknown ids are a no-op.
func (s *Service) Exit(id string) {
	if id == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.online, id)
}

// Status reports the current online and daily counts.
func (s *Service) Status() (online int, daily int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)
	s.rollDayLocked(now)

	return len(s.online), s.daily
}

func (s *Service) expireLocked(now time.Time) {
	for id, last := range s.online {
		if now.Sub(last) > onlineWindow {
			delete(s.online, id)
		}
	}
}

func (s *Service) rollDayLocked(now time.Time) {
	day := now.Format("2006-01-02")
	if s.day != day {
		s.day = day
		s.daily = 0
	}
}
