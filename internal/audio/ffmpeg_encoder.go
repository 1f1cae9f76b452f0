package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Input backends ffmpeg can capture from.
const (
	InputPulse = "pulse"
	InputJack  = "jack"
)

// jackClientName is the JACK client ffmpeg registers in jack mode.
const jackClientName = "quickrec"

// FFmpegEncoder captures from PipeWire through ffmpeg.
type FFmpegEncoder struct {
	Input       string
	Source      string
	pipewire    *PipeWire
	logWriter   io.Writer
	stopTimeout time.Duration
}

func NewFFmpegEncoder(input, source string, logWriter io.Writer) *FFmpegEncoder {
	if logWriter == nil {
		logWriter = io.Discard
	}
	return &FFmpegEncoder{
		Input:       input,
		Source:      source,
		pipewire:    NewPipeWire(),
		logWriter:   logWriter,
		stopTimeout: 5 * time.Second,
	}
}

// Args builds the ffmpeg command line for a capture into path.
func (e *FFmpegEncoder) Args(path string, profile Profile) []string {
	var args []string
	if e.Input == InputJack {
		args = append(args, "pw-jack", "ffmpeg")
	} else {
		args = append(args, "ffmpeg")
	}

	args = append(args, "-hide_banner", "-nostdin", "-loglevel", "error")

	switch e.Input {
	case InputJack:
		args = append(args,
			"-f", "jack",
			"-channels", fmt.Sprintf("%d", profile.Channels),
			"-i", jackClientName,
		)
	default:
		source := e.Source
		if source == "" {
			source = "default"
		}
		args = append(args, "-f", "pulse", "-i", source)
	}

	args = append(args, profile.OutputArgs()...)
	// -n refuses to overwrite an existing recording
	args = append(args, "-n", path)
	return args
}

// Open starts ffmpeg writing into path.
func (e *FFmpegEncoder) Open(ctx context.Context, path string, profile Profile) (Stream, error) {
	args := e.Args(path, profile)
	slog.Info("Starting ffmpeg", "command", strings.Join(args, " "))

	cmd := exec.Command(args[0], args[1:]...)
	// own process group: a terminal Ctrl+C must not reach ffmpeg before Close does
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if e.Input == InputJack {
		cmd.Env = append(os.Environ(), "PIPEWIRE_LATENCY=256/48000")
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s := &ffmpegStream{
		cmd:         cmd,
		path:        path,
		stopTimeout: e.stopTimeout,
		outputDone:  make(chan struct{}),
		exited:      make(chan struct{}),
		done:        make(chan StreamResult, 1),
	}

	go s.readOutput(stderr, e.logWriter)
	go s.wait()

	if e.Input == InputJack {
		go e.connectSource(ctx, s)
	}

	return s, nil
}

// connectSource links the configured capture port to ffmpeg's JACK input.
func (e *FFmpegEncoder) connectSource(ctx context.Context, s *ffmpegStream) {
	dest := jackClientName + ":input_1"
	if err := e.pipewire.WaitForPort(dest, 5*time.Second); err != nil {
		slog.Error("ffmpeg JACK port did not appear", "port", dest, "error", err)
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-s.exited:
		return
	default:
	}

	if err := e.pipewire.ConnectPortsWithRetry(e.Source, dest); err != nil {
		slog.Error("Failed to connect capture source", "source", e.Source, "dest", dest, "error", err)
		return
	}
	slog.Info("Connected capture source", "source", e.Source, "dest", dest)
}

type ffmpegStream struct {
	cmd         *exec.Cmd
	path        string
	stopTimeout time.Duration

	mu      sync.Mutex
	closing bool
	killed  bool
	exitErr error
	stderr  strings.Builder

	outputDone chan struct{}
	exited     chan struct{}
	done       chan StreamResult
}

func (s *ffmpegStream) Path() string {
	return s.path
}

func (s *ffmpegStream) Done() <-chan StreamResult {
	return s.done
}

func (s *ffmpegStream) wait() {
	// stderr must be drained before Wait closes the pipe
	<-s.outputDone
	err := s.cmd.Wait()

	s.mu.Lock()
	switch {
	case s.killed && err != nil:
		err = fmt.Errorf("ffmpeg was killed before finalizing %s: %w", s.path, err)
	case s.closing && isInterruptExit(err):
		err = nil
	}
	if err != nil && s.stderr.Len() > 0 {
		err = fmt.Errorf("%w: %s", err, strings.TrimSpace(s.stderr.String()))
	}
	s.exitErr = err
	s.mu.Unlock()

	close(s.exited)
	s.done <- StreamResult{Stream: s, Err: err}
}

// Close interrupts ffmpeg so it writes the container trailer, then waits.
func (s *ffmpegStream) Close() error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	select {
	case <-s.exited:
		return s.result()
	default:
	}

	slog.Debug("Sending SIGINT to ffmpeg")
	if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
		slog.Debug("Failed to interrupt ffmpeg, killing", "error", err)
		s.kill()
	}

	select {
	case <-s.exited:
	case <-time.After(s.stopTimeout):
		slog.Warn("ffmpeg did not exit within timeout, force killing")
		s.kill()
		<-s.exited
	}
	return s.result()
}

// kill ends ffmpeg without a trailer, so the recording counts as failed.
func (s *ffmpegStream) kill() {
	s.mu.Lock()
	s.killed = true
	s.mu.Unlock()
	s.cmd.Process.Kill()
}

func (s *ffmpegStream) result() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitErr
}

func (s *ffmpegStream) readOutput(pipe io.ReadCloser, logWriter io.Writer) {
	defer close(s.outputDone)
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		s.mu.Lock()
		s.stderr.WriteString(line + "\n")
		s.mu.Unlock()
		fmt.Fprintln(logWriter, line)
		slog.Debug("ffmpeg output", "line", line)
	}
}

// isInterruptExit reports whether err is how ffmpeg exits after SIGINT.
func isInterruptExit(err error) bool {
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	if exitErr.ExitCode() == 255 {
		return true
	}
	if exitErr.ProcessState != nil {
		return exitErr.ProcessState.String() == "signal: interrupt"
	}
	return false
}
