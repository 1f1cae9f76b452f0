package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/audiolibrelab/quickrec/internal/library"
	"github.com/audiolibrelab/quickrec/internal/recording"
	"github.com/audiolibrelab/quickrec/internal/service"
	"github.com/audiolibrelab/quickrec/internal/session"
)

const requestIDHeader = "X-Request-ID"

// Server is the HTTP remote control for QuickRec.
type Server struct {
	service service.Service
	port    string
}

// StatusResponse represents the JSON response for status endpoint
type StatusResponse struct {
	Status        string                `json:"status"`
	Message       string                `json:"message,omitempty"`
	Recording     session.Info          `json:"recording"`
	Playback      library.PlaybackState `json:"playback"`
	Alert         *recording.Alert      `json:"alert,omitempty"`
	NewRecordings bool                  `json:"new_recordings"`
}

// RecordingsResponse represents the JSON response for the listing endpoint
type RecordingsResponse struct {
	Recordings    []service.RecordingInfo `json:"recordings"`
	TotalCount    int                     `json:"total_count"`
	Directory     string                  `json:"directory"`
	NewRecordings bool                    `json:"new_recordings"`
}

// GenericResponse represents a generic API response
type GenericResponse struct {
	Success   bool                 `json:"success"`
	Message   string               `json:"message,omitempty"`
	Error     string               `json:"error,omitempty"`
	Alert     *recording.Alert     `json:"alert,omitempty"`
	Recording *recording.Recording `json:"recording,omitempty"`
}

func New(svc service.Service, port string) *Server {
	return &Server{service: svc, port: port}
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /record", s.handleRecord)
	mux.HandleFunc("POST /stop", s.handleStop)
	mux.HandleFunc("POST /alert/dismiss", s.handleDismissAlert)
	mux.HandleFunc("GET /api/recordings", s.handleRecordings)
	mux.HandleFunc("GET /api/recordings/info/{name}", s.handleRecordingInfo)
	mux.HandleFunc("GET /api/recordings/stream/{name}", s.handleRecordingStream)
	mux.HandleFunc("POST /api/recordings/play/{name}", s.handlePlay)
	mux.HandleFunc("POST /api/playback/stop", s.handleStopPlayback)
	mux.HandleFunc("DELETE /api/recordings/{name}", s.handleDelete)
	return withRequestID(mux)
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	localIP := getLocalIP()
	slog.Info("Starting QuickRec Web Server",
		"port", s.port,
		"local_url", fmt.Sprintf("http://%s:%s", localIP, s.port),
		"localhost_url", fmt.Sprintf("http://localhost:%s", s.port))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("Shutting down web server")
		return srv.Shutdown(shutdownCtx)
	}
}

type ctxKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestID tags every request with an id, echoed in the response header
// and attached to the request's logger.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		logger := slog.With("request_id", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, logger)))

		logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>QuickRec</title>
</head>
<body>
    <h1>QuickRec</h1>
    <h2>API Endpoints:</h2>
    <ul>
        <li>GET /status - Recording and playback status</li>
        <li>POST /record - Start recording</li>
        <li>POST /stop - Stop and save the recording</li>
        <li>GET /api/recordings - List recordings</li>
        <li>POST /api/recordings/play/{name} - Play a recording</li>
        <li>POST /api/playback/stop - Stop playback</li>
        <li>DELETE /api/recordings/{name} - Delete a recording</li>
        <li>GET /api/recordings/stream/{name} - Download a recording</li>
    </ul>
</body>
</html>`

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.service.Status()

	s.writeJSON(w, r, http.StatusOK, StatusResponse{
		Status:        string(st.Recording.State),
		Message:       s.generateStatusMessage(st),
		Recording:     st.Recording,
		Playback:      st.Playback,
		Alert:         st.Alert,
		NewRecordings: st.NewRecordings,
	})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.StartRecording(r.Context())
	if err != nil {
		s.sendErrorResponse(w, r, statusFor(err),
			fmt.Sprintf("Failed to start recording: %v", err),
			"operation", "start_recording")
		return
	}

	s.writeJSON(w, r, http.StatusOK, GenericResponse{
		Success:   true,
		Message:   "Recording started",
		Recording: &rec,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.StopRecording()
	if err != nil {
		s.sendErrorResponse(w, r, http.StatusInternalServerError,
			fmt.Sprintf("Failed to stop recording: %v", err),
			"operation", "stop_recording")
		return
	}

	message := "Not recording"
	if rec != nil {
		message = "Recording saved"
	}
	s.writeJSON(w, r, http.StatusOK, GenericResponse{Success: true, Message: message, Recording: rec})
}

func (s *Server) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	s.service.DismissAlert()
	s.writeJSON(w, r, http.StatusOK, GenericResponse{Success: true, Message: "Alert dismissed"})
}

func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	hadNew := s.service.HasNewRecordings()

	recs, err := s.service.ListRecordings()
	if err != nil {
		s.sendErrorResponse(w, r, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list recordings: %v", err),
			"operation", "list_recordings")
		return
	}

	s.writeJSON(w, r, http.StatusOK, RecordingsResponse{
		Recordings:    recs,
		TotalCount:    len(recs),
		Directory:     s.service.RecordingsDirectory(),
		NewRecordings: hadNew,
	})
}

func (s *Server) handleRecordingInfo(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	details, err := s.service.Describe(name)
	if err != nil {
		s.sendErrorResponse(w, r, statusFor(err),
			fmt.Sprintf("Failed to read %s: %v", name, err),
			"operation", "describe", "name", name)
		return
	}
	s.writeJSON(w, r, http.StatusOK, details)
}

func (s *Server) handleRecordingStream(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rec, err := s.service.Lookup(name)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	file, err := os.Open(rec.Path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "File not found", http.StatusNotFound)
		} else {
			http.Error(w, "Error opening file", http.StatusInternalServerError)
		}
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, "Error accessing file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/mp4")
	w.Header().Set("Accept-Ranges", "bytes")
	http.ServeContent(w, r, rec.Name, info.ModTime(), file)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	st, err := s.service.Play(name)
	if err != nil {
		s.sendErrorResponse(w, r, statusFor(err),
			fmt.Sprintf("Failed to play %s: %v", name, err),
			"operation", "play", "name", name)
		return
	}
	s.writeJSON(w, r, http.StatusOK, GenericResponse{Success: true, Message: "Playing", Recording: st.Recording})
}

func (s *Server) handleStopPlayback(w http.ResponseWriter, r *http.Request) {
	s.service.StopPlayback()
	s.writeJSON(w, r, http.StatusOK, GenericResponse{Success: true, Message: "Playback stopped"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.service.Delete(name); err != nil {
		s.sendErrorResponse(w, r, statusFor(err),
			fmt.Sprintf("Failed to delete %s: %v", name, err),
			"operation", "delete", "name", name)
		return
	}
	s.writeJSON(w, r, http.StatusOK, GenericResponse{Success: true, Message: "Recording deleted"})
}

func (s *Server) generateStatusMessage(st service.Status) string {
	if st.Alert != nil {
		return st.Alert.String()
	}
	switch st.Recording.State {
	case session.StateRecording:
		if st.Recording.Recording != nil {
			return fmt.Sprintf("Recording in progress - %s", st.Recording.Recording.Name)
		}
		return "Recording in progress"
	case session.StateDenied:
		return recording.AlertPermissionDenied.String()
	case session.StateUnavailable:
		if st.Error != "" {
			return st.Error
		}
		return recording.AlertSessionFailed.String()
	}
	if st.Playback.Recording != nil {
		return fmt.Sprintf("Playing %s", st.Playback.Recording.Name)
	}
	return st.Error
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, recording.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, recording.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, session.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, session.ErrAlreadyRecording), errors.Is(err, session.ErrRecordingExists):
		return http.StatusConflict
	case errors.Is(err, session.ErrSessionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		loggerFrom(r.Context()).Warn("Failed to encode response", "error", err)
	}
}

// sendErrorResponse logs the error and sends a JSON error response to the
// client, with the pending alert if the failure raised one.
func (s *Server) sendErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorMsg string, logContext ...any) {
	logFields := []any{"error_message", errorMsg, "status_code", statusCode}
	logFields = append(logFields, logContext...)
	loggerFrom(r.Context()).Error("Sending error response to client", logFields...)

	s.writeJSON(w, r, statusCode, GenericResponse{
		Success: false,
		Error:   errorMsg,
		Alert:   s.service.Alert(),
	})
}

func getLocalIP() string {
	// Try to connect to a remote address to determine local IP
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
