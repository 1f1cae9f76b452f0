package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Consent is the stored answer to the microphone permission prompt.
type Consent string

const (
	ConsentUnknown Consent = ""
	ConsentGranted Consent = "granted"
	ConsentDenied  Consent = "denied"
)

// State is what QuickRec remembers between runs. It lives outside the
// recordings directory so that it never shows up as a recording.
type State struct {
	MicrophoneConsent Consent `yaml:"microphone_consent,omitempty"`
	NewRecordings     bool    `yaml:"new_recordings"`
	LastUpdated       string  `yaml:"last_updated,omitempty"`
}

// Store reads and writes the state file.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the current state. A missing file is an empty state.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Update applies fn to the stored state and writes it back.
func (s *Store) Update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	fn(&st)
	st.LastUpdated = time.Now().Format(time.RFC3339)
	return s.save(st)
}

func (s *Store) load() (State, error) {
	var st State

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := yaml.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	return st, nil
}

func (s *Store) save(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Consent returns the stored microphone decision.
func (s *Store) Consent() (Consent, error) {
	st, err := s.Load()
	return st.MicrophoneConsent, err
}

// SetConsent records the user's answer to the microphone prompt.
func (s *Store) SetConsent(granted bool) error {
	return s.Update(func(st *State) {
		if granted {
			st.MicrophoneConsent = ConsentGranted
		} else {
			st.MicrophoneConsent = ConsentDenied
		}
	})
}

// ResetConsent forgets the stored answer so the next run asks again.
func (s *Store) ResetConsent() error {
	return s.Update(func(st *State) {
		st.MicrophoneConsent = ConsentUnknown
	})
}

// MarkNewRecording raises the "New" badge on the listing screen.
func (s *Store) MarkNewRecording() error {
	return s.Update(func(st *State) {
		st.NewRecordings = true
	})
}

// ClearNewRecording lowers the badge. It reports whether the badge was set.
func (s *Store) ClearNewRecording() (bool, error) {
	var had bool
	err := s.Update(func(st *State) {
		had = st.NewRecordings
		st.NewRecordings = false
	})
	return had, err
}

// HasNewRecording reports whether the badge is raised.
func (s *Store) HasNewRecording() bool {
	st, err := s.Load()
	if err != nil {
		return false
	}
	return st.NewRecordings
}
