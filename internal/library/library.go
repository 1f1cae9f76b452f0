package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/audiolibrelab/quickrec/internal/audio"
	"github.com/audiolibrelab/quickrec/internal/play"
	"github.com/audiolibrelab/quickrec/internal/recording"
)

type EventKind string

const (
	EventReloaded        EventKind = "reloaded"
	EventPlaybackStarted EventKind = "playback_started"
	EventPlaybackStopped EventKind = "playback_stopped"
	EventDeleted         EventKind = "deleted"
)

// Event tells listeners the list or the playback state changed.
type Event struct {
	Kind      EventKind
	Recording recording.Recording
	Err       error
}

// PlaybackState is idle when Recording is nil.
type PlaybackState struct {
	Playing   bool                 `json:"playing"`
	Recording *recording.Recording `json:"recording,omitempty"`
	ID        string               `json:"id,omitempty"`
	StartTime time.Time            `json:"start_time,omitempty"`
}

// Details describes a decoded recording.
type Details struct {
	Recording  recording.Recording `json:"recording" yaml:"recording"`
	Size       int64               `json:"size" yaml:"size"`
	Duration   time.Duration       `json:"duration" yaml:"duration"`
	SampleRate int                 `json:"sample_rate" yaml:"sample_rate"`
	Channels   int                 `json:"channels" yaml:"channels"`
	Codec      string              `json:"codec" yaml:"codec"`
	Brand      string              `json:"brand" yaml:"brand"`
	Recorded   time.Time           `json:"recorded,omitempty" yaml:"recorded,omitempty"`
}

type Option func(*Library)

// WithListener registers fn for every Event. fn runs outside the library lock.
func WithListener(fn func(Event)) Option {
	return func(l *Library) { l.listener = fn }
}

// Library is the listing screen: the recordings on disk and at most one
// playback.
type Library struct {
	dir      string
	audio    *audio.Session
	decoder  audio.Decoder
	player   play.Player
	listener func(Event)

	// op serializes Play and Stop so two playbacks never overlap.
	op sync.Mutex

	mu         sync.Mutex
	recordings []recording.Recording
	playback   play.Playback
	lease      *audio.Lease
	selected   *recording.Recording
	startTime  time.Time
}

func New(dir string, sess *audio.Session, decoder audio.Decoder, player play.Player, opts ...Option) *Library {
	l := &Library{
		dir:     dir,
		audio:   sess,
		decoder: decoder,
		player:  player,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Library) Dir() string {
	return l.dir
}

// Reload replaces the list with the current contents of the recordings
// directory, sorted by name.
func (l *Library) Reload() []recording.Recording {
	recs, err := l.scan()
	if err != nil {
		slog.Error("Failed to list recordings", "dir", l.dir, "error", err)
		recs = nil
	}

	l.mu.Lock()
	l.recordings = recs
	l.mu.Unlock()

	slog.Debug("Recordings reloaded", "count", len(recs))
	l.emit(Event{Kind: EventReloaded, Err: err})
	return slices.Clone(recs)
}

func (l *Library) scan() ([]recording.Recording, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	recs := make([]recording.Recording, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		recs = append(recs, recording.FromPath(filepath.Join(l.dir, entry.Name())))
	}
	recording.Sort(recs)
	return recs, nil
}

// Recordings returns a copy of the current list.
func (l *Library) Recordings() []recording.Recording {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.recordings)
}

// Lookup finds a recording by file name.
func (l *Library) Lookup(name string) (recording.Recording, error) {
	if err := recording.ValidateName(name); err != nil {
		return recording.Recording{}, err
	}

	l.mu.Lock()
	for _, rec := range l.recordings {
		if rec.Name == name {
			l.mu.Unlock()
			return rec, nil
		}
	}
	l.mu.Unlock()

	// the list may predate the file
	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return recording.Recording{}, fmt.Errorf("%w: %s", recording.ErrNotFound, name)
	}
	return recording.FromPath(path), nil
}

// Play stops whatever is playing and starts rec. Session and decode failures
// leave the library idle and are only logged.
func (l *Library) Play(ctx context.Context, rec recording.Recording) (PlaybackState, error) {
	l.op.Lock()
	defer l.op.Unlock()

	l.stop()

	lease, err := l.audio.Acquire(ctx, audio.CategoryPlayback)
	if err != nil {
		slog.Error("Failed to activate playback session", "file", rec.Path, "error", err)
		return PlaybackState{}, err
	}

	clip, err := audio.Load(l.decoder, rec.Path)
	if err != nil {
		l.release(lease)
		slog.Error("Failed to decode recording", "file", rec.Path, "error", err)
		return PlaybackState{}, err
	}

	pb, err := l.player.Start(ctx, clip)
	if err != nil {
		l.release(lease)
		slog.Error("Failed to start playback", "file", rec.Path, "error", err)
		return PlaybackState{}, err
	}

	l.mu.Lock()
	l.playback = pb
	l.lease = lease
	l.selected = &rec
	l.startTime = time.Now()
	st := l.stateLocked()
	l.mu.Unlock()

	go l.watch(pb)

	slog.Info("Playback started", "file", rec.Path, "id", pb.ID())
	l.emit(Event{Kind: EventPlaybackStarted, Recording: rec})
	return st, nil
}

// watch applies the playback's completion unless it is no longer current.
func (l *Library) watch(pb play.Playback) {
	res := <-pb.Done()

	l.mu.Lock()
	if l.playback == nil || l.playback.ID() != res.Playback.ID() {
		l.mu.Unlock()
		return
	}
	lease := l.lease
	rec := *l.selected
	l.clear()
	l.mu.Unlock()

	l.release(lease)
	if res.Err != nil {
		slog.Error("Playback failed", "file", rec.Path, "error", res.Err)
	} else {
		slog.Debug("Playback finished", "file", rec.Path)
	}
	l.emit(Event{Kind: EventPlaybackStopped, Recording: rec, Err: res.Err})
}

// Stop ends playback and clears the selection. It is a no-op when idle.
func (l *Library) Stop() {
	l.op.Lock()
	defer l.op.Unlock()
	l.stop()
}

func (l *Library) stop() {
	l.mu.Lock()
	pb := l.playback
	if pb == nil {
		l.mu.Unlock()
		return
	}
	lease := l.lease
	rec := *l.selected
	l.clear()
	l.mu.Unlock()

	if err := pb.Stop(); err != nil {
		slog.Warn("Failed to stop playback", "id", pb.ID(), "error", err)
	}
	l.release(lease)

	slog.Info("Playback stopped", "file", rec.Path)
	l.emit(Event{Kind: EventPlaybackStopped, Recording: rec})
}

// clear must be called with l.mu held.
func (l *Library) clear() {
	l.playback = nil
	l.lease = nil
	l.selected = nil
	l.startTime = time.Time{}
}

func (l *Library) release(lease *audio.Lease) {
	if err := lease.Release(); err != nil {
		slog.Warn("Failed to release audio session", "error", err)
	}
}

// Delete removes rec from disk and from the list. A playback of rec keeps
// going.
func (l *Library) Delete(rec recording.Recording) error {
	if err := os.Remove(rec.Path); err != nil {
		slog.Error("Failed to delete recording", "file", rec.Path, "error", err)
		return fmt.Errorf("failed to delete %s: %w", rec.Name, err)
	}

	l.mu.Lock()
	l.recordings = slices.DeleteFunc(l.recordings, func(r recording.Recording) bool {
		return r.Path == rec.Path
	})
	l.mu.Unlock()

	slog.Info("Recording deleted", "file", rec.Path)
	l.emit(Event{Kind: EventDeleted, Recording: rec})
	return nil
}

// Describe decodes rec and reports its format.
func (l *Library) Describe(rec recording.Recording) (Details, error) {
	clip, err := audio.Load(l.decoder, rec.Path)
	if err != nil {
		return Details{}, err
	}

	details := Details{
		Recording:  rec,
		Size:       clip.Size,
		Duration:   clip.Duration,
		SampleRate: clip.SampleRate,
		Channels:   clip.Channels,
		Codec:      clip.Codec,
		Brand:      clip.Brand,
	}
	if t, ok := recording.ParseTime(rec.Name); ok {
		details.Recorded = t
	}
	return details, nil
}

// State returns the current playback state.
func (l *Library) State() PlaybackState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked()
}

func (l *Library) stateLocked() PlaybackState {
	if l.playback == nil {
		return PlaybackState{}
	}
	rec := *l.selected
	return PlaybackState{
		Playing:   true,
		Recording: &rec,
		ID:        l.playback.ID(),
		StartTime: l.startTime,
	}
}

// Selected returns the row being played, or nil.
func (l *Library) Selected() *recording.Recording {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.selected == nil {
		return nil
	}
	rec := *l.selected
	return &rec
}

func (l *Library) emit(ev Event) {
	if l.listener != nil {
		l.listener(ev)
	}
}
