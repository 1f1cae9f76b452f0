package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/quickrec/internal/library"
	"github.com/audiolibrelab/quickrec/internal/recording"
	"github.com/audiolibrelab/quickrec/internal/service"
	"github.com/audiolibrelab/quickrec/internal/session"
)

// fakeService implements the calls the handlers make. Anything else panics
// through the nil embedded interface.
type fakeService struct {
	service.Service

	dir       string
	startErr  error
	alert     *recording.Alert
	status    service.Status
	hasNew    bool
	deleted   []string
	played    []string
	stopCalls int
}

func (f *fakeService) StartRecording(ctx context.Context) (recording.Recording, error) {
	if f.startErr != nil {
		return recording.Recording{}, f.startErr
	}
	return recording.FromPath(filepath.Join(f.dir, "recording-2024.05.01_10-20-30.m4a")), nil
}

func (f *fakeService) StopRecording() (*recording.Recording, error) { return nil, nil }
func (f *fakeService) Status() service.Status                     { return f.status }
func (f *fakeService) Alert() *recording.Alert                    { return f.alert }
func (f *fakeService) HasNewRecordings() bool                     { return f.hasNew }
func (f *fakeService) RecordingsDirectory() string                { return f.dir }
func (f *fakeService) StopPlayback()                              { f.stopCalls++ }

func (f *fakeService) ListRecordings() ([]service.RecordingInfo, error) {
	f.hasNew = false
	return []service.RecordingInfo{{Name: "a.m4a"}, {Name: "b.m4a"}}, nil
}

func (f *fakeService) Lookup(name string) (recording.Recording, error) {
	if err := recording.ValidateName(name); err != nil {
		return recording.Recording{}, err
	}
	path := filepath.Join(f.dir, name)
	if _, err := os.Stat(path); err != nil {
		return recording.Recording{}, fmt.Errorf("%w: %s", recording.ErrNotFound, name)
	}
	return recording.FromPath(path), nil
}

func (f *fakeService) Play(name string) (library.PlaybackState, error) {
	rec, err := f.Lookup(name)
	if err != nil {
		return library.PlaybackState{}, err
	}
	f.played = append(f.played, name)
	return library.PlaybackState{Playing: true, Recording: &rec}, nil
}

func (f *fakeService) Delete(name string) error {
	if _, err := f.Lookup(name); err != nil {
		return err
	}
	f.deleted = append(f.deleted, name)
	return nil
}

func newTestServer(t *testing.T) (*fakeService, http.Handler) {
	t.Helper()
	svc := &fakeService{dir: t.TempDir()}
	return svc, New(svc, "0").Handler()
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRequestIDHeader(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/status")
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	require.NoError(t, err)

	// a valid incoming id is kept
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(requestIDHeader, id)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, id, rec.Header().Get(requestIDHeader))
}

func TestStatus(t *testing.T) {
	svc, h := newTestServer(t)
	rec := recording.FromPath("/tmp/recording-2024.05.01_10-20-30.m4a")
	svc.status = service.Status{
		Recording:     session.Info{State: session.StateRecording, Recording: &rec},
		NewRecordings: true,
	}

	resp := do(t, h, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, resp.Code)

	var body StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "RECORDING", body.Status)
	require.Equal(t, "Recording in progress - recording-2024.05.01_10-20-30.m4a", body.Message)
	require.True(t, body.NewRecordings)
}

func TestRecord_PermissionDenied(t *testing.T) {
	svc, h := newTestServer(t)
	svc.startErr = session.ErrPermissionDenied
	alert := recording.AlertPermissionDenied
	svc.alert = &alert

	resp := do(t, h, http.MethodPost, "/record")
	require.Equal(t, http.StatusForbidden, resp.Code)

	var body GenericResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.False(t, body.Success)
	require.NotNil(t, body.Alert)
	require.Equal(t, "Failed to record", body.Alert.Title)
}

func TestRecord_Conflict(t *testing.T) {
	svc, h := newTestServer(t)
	svc.startErr = session.ErrAlreadyRecording
	require.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/record").Code)
}

func TestRecord_Started(t *testing.T) {
	_, h := newTestServer(t)
	resp := do(t, h, http.MethodPost, "/record")
	require.Equal(t, http.StatusOK, resp.Code)

	var body GenericResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Success)
	require.Equal(t, "recording-2024.05.01_10-20-30.m4a", body.Recording.Name)
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := newTestServer(t)
	require.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/record").Code)
}

func TestRecordings_ReportsBadgeBeforeClearing(t *testing.T) {
	svc, h := newTestServer(t)
	svc.hasNew = true

	resp := do(t, h, http.MethodGet, "/api/recordings")
	require.Equal(t, http.StatusOK, resp.Code)

	var body RecordingsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 2, body.TotalCount)
	require.True(t, body.NewRecordings)
	require.False(t, svc.hasNew)
}

func TestPlayAndDelete(t *testing.T) {
	svc, h := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(svc.dir, "a.m4a"), []byte("audio"), 0644))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/recordings/play/a.m4a").Code)
	require.Equal(t, []string{"a.m4a"}, svc.played)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/playback/stop").Code)
	require.Equal(t, 1, svc.stopCalls)

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/recordings/play/missing.m4a").Code)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/api/recordings/a.m4a").Code)
	require.Equal(t, []string{"a.m4a"}, svc.deleted)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/api/recordings/..m4a").Code)
}

func TestRecordingStream(t *testing.T) {
	svc, h := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(svc.dir, "a.m4a"), []byte("audio bytes"), 0644))

	resp := do(t, h, http.MethodGet, "/api/recordings/stream/a.m4a")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "audio/mp4", resp.Header().Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "audio bytes", string(body))

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/recordings/stream/b.m4a").Code)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, statusFor(recording.ErrInvalidName))
	require.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("wrapped: %w", recording.ErrNotFound)))
	require.Equal(t, http.StatusServiceUnavailable, statusFor(session.ErrSessionUnavailable))
	require.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}
