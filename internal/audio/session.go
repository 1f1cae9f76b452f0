package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Category says what an audio session lease will be used for.
type Category string

const (
	CategoryPlayAndRecord Category = "play_and_record"
	CategoryPlayback      Category = "playback"
)

// Backend activates and deactivates the platform audio stack.
type Backend interface {
	Activate(ctx context.Context, category Category) error
	Deactivate() error
	Name() string
}

// Session is the process-wide audio session. It is handed explicitly to the
// components that record or play, which hold a Lease while they use it.
type Session struct {
	backend Backend

	mu     sync.Mutex
	leases int
}

func NewSession(backend Backend) *Session {
	return &Session{backend: backend}
}

// Acquire activates the backend for category and returns a lease that must be
// released on every exit path.
func (s *Session) Acquire(ctx context.Context, category Category) (*Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Activate(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to activate %s audio session: %w", category, err)
	}

	s.leases++
	slog.Debug("Audio session acquired", "category", category, "backend", s.backend.Name(), "leases", s.leases)
	return &Lease{session: s, category: category}, nil
}

// Active returns the number of unreleased leases.
func (s *Session) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leases
}

func (s *Session) release(category Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leases--
	slog.Debug("Audio session released", "category", category, "leases", s.leases)
	if s.leases > 0 {
		return nil
	}

	s.leases = 0
	if err := s.backend.Deactivate(); err != nil {
		return fmt.Errorf("failed to deactivate audio session: %w", err)
	}
	return nil
}

// Lease is one holder's claim on the audio session.
type Lease struct {
	session  *Session
	category Category
	once     sync.Once
}

func (l *Lease) Category() Category {
	return l.category
}

// Release gives the lease back. Only the first call has an effect.
func (l *Lease) Release() error {
	if l == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		err = l.session.release(l.category)
	})
	return err
}
