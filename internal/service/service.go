package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/audiolibrelab/quickrec/internal/audio"
	"github.com/audiolibrelab/quickrec/internal/config"
	"github.com/audiolibrelab/quickrec/internal/library"
	"github.com/audiolibrelab/quickrec/internal/play"
	"github.com/audiolibrelab/quickrec/internal/recording"
	"github.com/audiolibrelab/quickrec/internal/session"
	"github.com/audiolibrelab/quickrec/internal/state"
)

// Service is what the CLI, the TUI and the HTTP server drive.
type Service interface {
	// Recording operations
	Prepare(ctx context.Context) (session.State, error)
	StartRecording(ctx context.Context) (recording.Recording, error)
	StopRecording() (*recording.Recording, error)
	RecordingStatus() session.Info

	// Library operations
	Reload() []recording.Recording
	Recordings() []recording.Recording
	ListRecordings() ([]RecordingInfo, error)
	Lookup(name string) (recording.Recording, error)
	Play(name string) (library.PlaybackState, error)
	StopPlayback()
	PlaybackStatus() library.PlaybackState
	Delete(name string) error
	Describe(name string) (library.Details, error)
	RecordingsDirectory() string

	// Badge and alerts
	HasNewRecordings() bool
	ClearNewRecordings() bool
	Alert() *recording.Alert
	DismissAlert()

	// Plumbing
	Status() Status
	Subscribe(fn func(Event))
	Watch(ctx context.Context) error
	GetConfig() *config.Config
	GetLastError() string
	Close()
}

// Event wraps whichever state holder changed. Exactly one field is set.
type Event struct {
	Session *session.Event
	Library *library.Event
}

// RecordingInfo is a listing row enriched with file metadata.
type RecordingInfo struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	SizeHuman    string    `json:"size_human"`
	ModTime      time.Time `json:"mod_time"`
	ModTimeHuman string    `json:"mod_time_human"`
	Playing      bool      `json:"playing"`
	StreamURL    string    `json:"stream_url"`
}

// Status is the combined state of both screens.
type Status struct {
	Recording     session.Info          `json:"recording"`
	Playback      library.PlaybackState `json:"playback"`
	Alert         *recording.Alert      `json:"alert,omitempty"`
	NewRecordings bool                  `json:"new_recordings"`
	Error         string                `json:"error,omitempty"`
}

// Options carries the pieces that depend on how QuickRec was started.
type Options struct {
	// Prompt asks for microphone access. Nil means never ask.
	Prompt audio.Prompter
	// LogWriter receives encoder diagnostics.
	LogWriter io.Writer
}

type deps struct {
	backend   audio.Backend
	authority audio.Authority
	encoder   audio.Encoder
	decoder   audio.Decoder
	player    play.Player
	store     *state.Store
}

var _ Service = (*QuickRecService)(nil)

// QuickRecService is the main service implementation
type QuickRecService struct {
	cfg     *config.Config
	store   *state.Store
	session *session.RecordingSession
	library *library.Library

	// playback outlives the request that started it
	ctx    context.Context
	cancel context.CancelFunc

	listenersMutex sync.RWMutex
	listeners      []func(Event)

	alertMutex sync.RWMutex
	alert      *recording.Alert

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

// New creates a service backed by PipeWire, ffmpeg and an external player.
func New(cfg *config.Config, opts Options) *QuickRecService {
	logWriter := opts.LogWriter
	if logWriter == nil {
		logWriter = io.Discard
	}

	store := state.NewStore(cfg.Storage.StateFile)
	player := play.New(cfg.Player.Command)

	return newService(cfg, deps{
		backend:   audio.NewPipeWireBackend(cfg.Input.Backend, player.Commands()),
		authority: audio.NewSystemAuthority(store, opts.Prompt, cfg.Input.Backend, cfg.Input.Source),
		encoder:   audio.NewFFmpegEncoder(cfg.Input.Backend, cfg.Input.Source, logWriter),
		decoder:   audio.MP4Decoder{},
		player:    player,
		store:     store,
	})
}

func newService(cfg *config.Config, d deps) *QuickRecService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &QuickRecService{
		cfg:    cfg,
		store:  d.store,
		ctx:    ctx,
		cancel: cancel,
	}

	sess := audio.NewSession(d.backend)
	s.session = session.New(cfg.Storage.Directory, sess, d.authority, d.encoder,
		session.WithBadge(d.store),
		session.WithDecoder(d.decoder),
		session.WithListener(s.onSessionEvent),
	)
	s.library = library.New(cfg.Storage.Directory, sess, d.decoder, d.player,
		library.WithListener(s.onLibraryEvent),
	)
	return s
}

func (s *QuickRecService) onSessionEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventAlert:
		alert := ev.Alert
		s.alertMutex.Lock()
		s.alert = &alert
		s.alertMutex.Unlock()
		if ev.Err != nil {
			s.setLastError(fmt.Sprintf("%s: %v", alert, ev.Err))
		}
	case session.EventSaved:
		s.clearLastError()
		// the library picks the new file up without waiting for the watcher
		s.library.Reload()
	}
	s.publish(Event{Session: &ev})
}

func (s *QuickRecService) onLibraryEvent(ev library.Event) {
	if ev.Err != nil {
		s.setLastError(fmt.Sprintf("Library %s failed: %v", ev.Kind, ev.Err))
	}
	s.publish(Event{Library: &ev})
}

func (s *QuickRecService) publish(ev Event) {
	s.listenersMutex.RLock()
	listeners := append([]func(Event){}, s.listeners...)
	s.listenersMutex.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Subscribe registers fn for every session and library event.
func (s *QuickRecService) Subscribe(fn func(Event)) {
	s.listenersMutex.Lock()
	defer s.listenersMutex.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Prepare asks for microphone permission once.
func (s *QuickRecService) Prepare(ctx context.Context) (session.State, error) {
	slog.Debug("Service.Prepare called")
	return s.session.Prepare(ctx)
}

// StartRecording prepares the session if needed and starts a new recording.
func (s *QuickRecService) StartRecording(ctx context.Context) (recording.Recording, error) {
	slog.Debug("Service.StartRecording called")
	s.clearLastError()

	if _, err := s.session.Prepare(ctx); err != nil {
		return recording.Recording{}, err
	}

	rec, err := s.session.Start(s.ctx)
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
		return recording.Recording{}, err
	}
	return rec, nil
}

// StopRecording stops the current recording. It is a no-op when idle.
func (s *QuickRecService) StopRecording() (*recording.Recording, error) {
	rec, err := s.session.Stop()
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to stop recording: %v", err))
		return nil, err
	}
	return rec, nil
}

func (s *QuickRecService) RecordingStatus() session.Info {
	return s.session.Info()
}

func (s *QuickRecService) Reload() []recording.Recording {
	return s.library.Reload()
}

// Recordings returns the list as of the last reload.
func (s *QuickRecService) Recordings() []recording.Recording {
	return s.library.Recordings()
}

// ListRecordings reloads the listing and lowers the "New" badge.
func (s *QuickRecService) ListRecordings() ([]RecordingInfo, error) {
	recs := s.library.Reload()
	s.ClearNewRecordings()

	playing := s.library.State()

	infos := make([]RecordingInfo, 0, len(recs))
	for _, rec := range recs {
		ri := RecordingInfo{
			Name:      rec.Name,
			Path:      rec.Path,
			Playing:   playing.Recording != nil && playing.Recording.Path == rec.Path,
			StreamURL: fmt.Sprintf("/api/recordings/stream/%s", rec.Name),
		}
		if info, err := os.Stat(rec.Path); err == nil {
			ri.Size = info.Size()
			ri.SizeHuman = formatBytes(info.Size())
			ri.ModTime = info.ModTime()
			ri.ModTimeHuman = info.ModTime().Format("2006-01-02 15:04:05")
		} else {
			slog.Warn("Failed to get file info", "file", rec.Name, "error", err)
		}
		infos = append(infos, ri)
	}
	return infos, nil
}

func (s *QuickRecService) Lookup(name string) (recording.Recording, error) {
	return s.library.Lookup(name)
}

// Play starts playback of the named recording, stopping any other first.
func (s *QuickRecService) Play(name string) (library.PlaybackState, error) {
	rec, err := s.library.Lookup(name)
	if err != nil {
		return library.PlaybackState{}, err
	}

	st, err := s.library.Play(s.ctx, rec)
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to play %s: %v", name, err))
		return library.PlaybackState{}, err
	}
	s.clearLastError()
	return st, nil
}

func (s *QuickRecService) StopPlayback() {
	s.library.Stop()
}

func (s *QuickRecService) PlaybackStatus() library.PlaybackState {
	return s.library.State()
}

// Delete removes the named recording.
func (s *QuickRecService) Delete(name string) error {
	rec, err := s.library.Lookup(name)
	if err != nil {
		return err
	}
	if err := s.library.Delete(rec); err != nil {
		s.setLastError(fmt.Sprintf("Failed to delete %s: %v", name, err))
		return err
	}
	return nil
}

func (s *QuickRecService) Describe(name string) (library.Details, error) {
	rec, err := s.library.Lookup(name)
	if err != nil {
		return library.Details{}, err
	}
	return s.library.Describe(rec)
}

func (s *QuickRecService) RecordingsDirectory() string {
	return s.cfg.Storage.Directory
}

func (s *QuickRecService) HasNewRecordings() bool {
	return s.store.HasNewRecording()
}

// ClearNewRecordings lowers the badge and reports whether it was raised.
func (s *QuickRecService) ClearNewRecordings() bool {
	had, err := s.store.ClearNewRecording()
	if err != nil {
		slog.Warn("Failed to clear new recording badge", "error", err)
	}
	return had
}

// Alert returns the alert waiting to be dismissed, if any.
func (s *QuickRecService) Alert() *recording.Alert {
	s.alertMutex.RLock()
	defer s.alertMutex.RUnlock()
	if s.alert == nil {
		return nil
	}
	alert := *s.alert
	return &alert
}

func (s *QuickRecService) DismissAlert() {
	s.alertMutex.Lock()
	defer s.alertMutex.Unlock()
	s.alert = nil
}

func (s *QuickRecService) Status() Status {
	return Status{
		Recording:     s.session.Info(),
		Playback:      s.library.State(),
		Alert:         s.Alert(),
		NewRecordings: s.HasNewRecordings(),
		Error:         s.GetLastError(),
	}
}

// Watch reloads the library whenever the recordings directory changes, until
// ctx is done.
func (s *QuickRecService) Watch(ctx context.Context) error {
	w, err := library.NewWatcher(s.cfg.Storage.Directory, library.DefaultDebounce, func() {
		s.library.Reload()
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// GetConfig returns the current configuration
func (s *QuickRecService) GetConfig() *config.Config {
	return s.cfg
}

// Close stops playback and any recording in progress.
func (s *QuickRecService) Close() {
	if _, err := s.session.Stop(); err != nil {
		slog.Warn("Failed to finalize recording on shutdown", "error", err)
	}
	s.library.Stop()
	s.cancel()
}

// GetLastError returns the last error message (thread-safe)
func (s *QuickRecService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

// setLastError sets the last error message (thread-safe)
func (s *QuickRecService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err

	slog.Debug("Service error recorded", "error_message", err)
}

// clearLastError clears the last error message (thread-safe)
func (s *QuickRecService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}

// formatBytes formats bytes in human readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
