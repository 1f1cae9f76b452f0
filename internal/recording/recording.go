package recording

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Extension is the file extension of every recording QuickRec writes.
const Extension = ".m4a"

// timestampLayout renders yyyy.MM.dd_HH-mm-ss
const timestampLayout = "2006.01.02_15-04-05"

var (
	ErrInvalidName = errors.New("invalid recording name")
	ErrNotFound    = errors.New("recording not found")
)

// Recording is one saved audio clip. Name is always the last path component of Path.
type Recording struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// FromPath builds a Recording for the file at path.
func FromPath(path string) Recording {
	return Recording{Name: filepath.Base(path), Path: path}
}

// FileName returns the file name for a recording started at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("recording-%s%s", t.Format(timestampLayout), Extension)
}

// NewPath returns the path a recording started at t should be written to.
func NewPath(dir string, t time.Time) string {
	return filepath.Join(dir, FileName(t))
}

// ParseTime recovers the start time encoded in a timestamp-derived file name.
func ParseTime(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, "recording-") || !strings.HasSuffix(name, Extension) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, "recording-"), Extension)
	t, err := time.ParseInLocation(timestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ValidateName rejects names that would escape the recordings directory.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Sort orders recordings by name, ascending.
func Sort(recs []Recording) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Name < recs[j].Name
	})
}

// Alert is a user-facing failure that needs an explicit dismissal.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (a Alert) String() string {
	return a.Title + ": " + a.Message
}

var (
	AlertPermissionDenied = Alert{Title: "Failed to record", Message: "We can't use microphone without your permission"}
	AlertSessionFailed    = Alert{Title: "Whoops", Message: "Failed to activate recording session"}
	AlertRecordingFailed  = Alert{Title: "Ouch", Message: "Recording failed"}
)
