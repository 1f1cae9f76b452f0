package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/audiolibrelab/quickrec/internal/audio"
	"github.com/audiolibrelab/quickrec/internal/recording"
)

// State is where the record screen currently stands.
type State string

const (
	StateUnprepared  State = "UNPREPARED"
	StatePreparing   State = "PREPARING"
	StateDenied      State = "DENIED"
	StateUnavailable State = "UNAVAILABLE"
	StateIdle        State = "IDLE"
	StateRecording   State = "RECORDING"
)

var (
	ErrNotPrepared        = errors.New("recording session not prepared")
	ErrPermissionDenied   = errors.New("microphone permission denied")
	ErrSessionUnavailable = errors.New("recording session unavailable")
	ErrAlreadyRecording   = errors.New("already recording")
	ErrRecordingExists    = errors.New("recording already exists")
)

type EventKind string

const (
	EventStateChanged EventKind = "state_changed"
	EventAlert        EventKind = "alert"
	EventSaved        EventKind = "saved"
)

// Event tells listeners about transitions, alerts and saved recordings.
type Event struct {
	Kind      EventKind
	State     State
	Alert     recording.Alert
	Recording recording.Recording
	Err       error
}

// Info is a snapshot of the session.
type Info struct {
	State     State                `json:"state"`
	Recording *recording.Recording `json:"recording,omitempty"`
	StartTime time.Time            `json:"start_time,omitempty"`
}

// Badge is told when a new recording has been saved.
type Badge interface {
	MarkNewRecording() error
}

type Option func(*RecordingSession)

// WithListener registers fn for every Event. fn runs outside the session lock.
func WithListener(fn func(Event)) Option {
	return func(s *RecordingSession) { s.listener = fn }
}

func WithBadge(b Badge) Option {
	return func(s *RecordingSession) { s.badge = b }
}

// WithDecoder makes Stop decode the finished file and reject it unless it
// is playable.
func WithDecoder(dec audio.Decoder) Option {
	return func(s *RecordingSession) { s.decoder = dec }
}

func WithClock(now func() time.Time) Option {
	return func(s *RecordingSession) { s.now = now }
}

// RecordingSession owns the idle/recording state of the record screen.
type RecordingSession struct {
	dir       string
	audio     *audio.Session
	authority audio.Authority
	encoder   audio.Encoder
	badge     Badge
	decoder   audio.Decoder
	now       func() time.Time
	listener  func(Event)

	mu        sync.Mutex
	state     State
	stream    audio.Stream
	closing   bool
	lease     *audio.Lease
	current   *recording.Recording
	startTime time.Time
}

func New(dir string, sess *audio.Session, authority audio.Authority, encoder audio.Encoder, opts ...Option) *RecordingSession {
	s := &RecordingSession{
		dir:       dir,
		audio:     sess,
		authority: authority,
		encoder:   encoder,
		now:       time.Now,
		state:     StateUnprepared,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prepare checks the audio session and asks for microphone permission. The
// answer is kept; later calls return it without asking again.
func (s *RecordingSession) Prepare(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.state != StateUnprepared {
		st := s.state
		s.mu.Unlock()
		return st, nil
	}
	s.state = StatePreparing
	s.mu.Unlock()

	lease, err := s.audio.Acquire(ctx, audio.CategoryPlayAndRecord)
	if err != nil {
		slog.Error("Failed to activate recording session", "error", err)
		s.settle(StateUnavailable, recording.AlertSessionFailed, err)
		return StateUnavailable, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	defer func() {
		if err := lease.Release(); err != nil {
			slog.Warn("Failed to release audio session", "error", err)
		}
	}()

	granted, err := s.authority.RequestRecordPermission(ctx)
	if err != nil {
		slog.Error("Microphone permission request failed", "error", err)
		s.settle(StateUnavailable, recording.AlertSessionFailed, err)
		return StateUnavailable, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if !granted {
		slog.Info("Microphone permission denied")
		s.settle(StateDenied, recording.AlertPermissionDenied, ErrPermissionDenied)
		return StateDenied, ErrPermissionDenied
	}

	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()

	slog.Debug("Recording session prepared")
	s.emit(Event{Kind: EventStateChanged, State: StateIdle})
	return StateIdle, nil
}

func (s *RecordingSession) settle(st State, alert recording.Alert, err error) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	s.emit(Event{Kind: EventStateChanged, State: st})
	s.emit(Event{Kind: EventAlert, State: st, Alert: alert, Err: err})
}

// Start opens a new timestamp-named recording and begins encoding.
func (s *RecordingSession) Start(ctx context.Context) (recording.Recording, error) {
	s.mu.Lock()

	switch s.state {
	case StateUnprepared, StatePreparing:
		s.mu.Unlock()
		return recording.Recording{}, ErrNotPrepared
	case StateDenied:
		s.mu.Unlock()
		return recording.Recording{}, ErrPermissionDenied
	case StateUnavailable:
		s.mu.Unlock()
		return recording.Recording{}, ErrSessionUnavailable
	case StateRecording:
		s.mu.Unlock()
		return recording.Recording{}, ErrAlreadyRecording
	}

	rec, err := s.open(ctx)
	if err != nil {
		s.mu.Unlock()
		slog.Error("Failed to start recording", "error", err)
		s.emit(Event{Kind: EventAlert, State: StateIdle, Alert: recording.AlertRecordingFailed, Err: err})
		return recording.Recording{}, err
	}

	stream := s.stream
	s.mu.Unlock()

	go s.watch(stream)

	slog.Info("Recording started", "file", rec.Path)
	s.emit(Event{Kind: EventStateChanged, State: StateRecording, Recording: rec})
	return rec, nil
}

// open must be called with s.mu held and leaves the session idle on error.
func (s *RecordingSession) open(ctx context.Context) (recording.Recording, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return recording.Recording{}, fmt.Errorf("failed to create recordings directory: %w", err)
	}

	startTime := s.now()
	rec := recording.FromPath(recording.NewPath(s.dir, startTime))
	if _, err := os.Stat(rec.Path); err == nil {
		return recording.Recording{}, fmt.Errorf("%w: %s", ErrRecordingExists, rec.Name)
	}

	lease, err := s.audio.Acquire(ctx, audio.CategoryPlayAndRecord)
	if err != nil {
		return recording.Recording{}, err
	}

	stream, err := s.encoder.Open(ctx, rec.Path, audio.VoiceMemo)
	if err != nil {
		if relErr := lease.Release(); relErr != nil {
			slog.Warn("Failed to release audio session", "error", relErr)
		}
		return recording.Recording{}, fmt.Errorf("failed to open encoder: %w", err)
	}

	s.state = StateRecording
	s.stream = stream
	s.closing = false
	s.lease = lease
	s.current = &rec
	s.startTime = startTime
	return rec, nil
}

// watch handles an encoder that ends while still recording.
func (s *RecordingSession) watch(stream audio.Stream) {
	res := <-stream.Done()

	s.mu.Lock()
	if s.stream != res.Stream || s.closing {
		s.mu.Unlock()
		return
	}
	lease := s.lease
	rec := *s.current
	s.reset()
	s.mu.Unlock()

	if err := lease.Release(); err != nil {
		slog.Warn("Failed to release audio session", "error", err)
	}

	err := res.Err
	if err == nil {
		err = errors.New("encoder stopped unexpectedly")
	}
	slog.Error("Recording failed", "file", rec.Path, "error", err)
	s.emit(Event{Kind: EventStateChanged, State: StateIdle})
	s.emit(Event{Kind: EventAlert, State: StateIdle, Alert: recording.AlertRecordingFailed, Recording: rec, Err: err})
}

// reset must be called with s.mu held.
func (s *RecordingSession) reset() {
	s.state = StateIdle
	s.stream = nil
	s.closing = false
	s.lease = nil
	s.current = nil
	s.startTime = time.Time{}
}

// Stop finalizes the recording in progress. It is a no-op when idle.
func (s *RecordingSession) Stop() (*recording.Recording, error) {
	s.mu.Lock()
	if s.state != StateRecording || s.closing {
		s.mu.Unlock()
		return nil, nil
	}
	s.closing = true
	stream := s.stream
	lease := s.lease
	rec := *s.current
	s.mu.Unlock()

	closeErr := stream.Close()

	s.mu.Lock()
	s.reset()
	s.mu.Unlock()

	if err := lease.Release(); err != nil {
		slog.Warn("Failed to release audio session", "error", err)
	}
	s.emit(Event{Kind: EventStateChanged, State: StateIdle})

	if err := errors.Join(closeErr, s.validateOutput(rec.Path)); err != nil {
		slog.Error("Recording failed", "file", rec.Path, "error", err)
		s.emit(Event{Kind: EventAlert, State: StateIdle, Alert: recording.AlertRecordingFailed, Recording: rec, Err: err})
		return nil, fmt.Errorf("recording failed: %w", err)
	}

	if s.badge != nil {
		if err := s.badge.MarkNewRecording(); err != nil {
			slog.Warn("Failed to raise new recording badge", "error", err)
		}
	}

	slog.Info("Recording saved", "file", rec.Path)
	s.emit(Event{Kind: EventSaved, State: StateIdle, Recording: rec})
	return &rec, nil
}

func (s *RecordingSession) validateOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("recording file not found: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("recording file is empty: %s", path)
	}
	if s.decoder == nil {
		return nil
	}
	if _, err := audio.Load(s.decoder, path); err != nil {
		return fmt.Errorf("recording file is not playable: %w", err)
	}
	return nil
}

// Info returns the current state and the recording in progress.
func (s *RecordingSession) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{State: s.state, StartTime: s.startTime}
	if s.current != nil {
		rec := *s.current
		info.Recording = &rec
	}
	return info
}

func (s *RecordingSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *RecordingSession) emit(ev Event) {
	if s.listener != nil {
		s.listener(ev)
	}
}
