package play

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/audiolibrelab/quickrec/internal/audio"
)

// Candidates lists supported players in order of preference.
var Candidates = []string{"ffplay", "mpv", "vlc"}

// Player starts playback of decoded clips.
type Player interface {
	Start(ctx context.Context, clip *audio.Clip) (Playback, error)
}

// Playback is one running playback. Done yields exactly one Result.
type Playback interface {
	ID() string
	Clip() *audio.Clip
	Stop() error
	Done() <-chan Result
}

// Result reports how a playback ended.
type Result struct {
	Playback Playback
	Err      error
}

// ExecPlayer plays through an external command-line player.
type ExecPlayer struct {
	command  string
	lookPath func(string) (string, error)
}

// New returns a player using command, or the first installed candidate when
// command is "auto" or empty.
func New(command string) *ExecPlayer {
	return &ExecPlayer{command: command, lookPath: exec.LookPath}
}

// Commands returns the players this ExecPlayer may use.
func (p *ExecPlayer) Commands() []string {
	if p.command == "" || p.command == "auto" {
		return Candidates
	}
	return []string{p.command}
}

func (p *ExecPlayer) findAudioPlayer() (string, error) {
	players := p.Commands()
	for _, player := range players {
		if _, err := p.lookPath(player); err == nil {
			return player, nil
		}
	}
	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(players, ", "))
}

func playerArgs(player, path string) ([]string, error) {
	switch player {
	case "ffplay":
		return []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "error", path}, nil
	case "mpv":
		return []string{"mpv", "--no-video", "--really-quiet", path}, nil
	case "vlc":
		return []string{"cvlc", "--play-and-exit", path}, nil
	default:
		return nil, fmt.Errorf("unsupported player: %s", player)
	}
}

func (p *ExecPlayer) Start(ctx context.Context, clip *audio.Clip) (Playback, error) {
	player, err := p.findAudioPlayer()
	if err != nil {
		return nil, err
	}

	args, err := playerArgs(player, clip.Path)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(args[0], args[1:]...)
	// Ctrl+C in the terminal stops playback through Stop, not by killing the player
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", player, err)
	}

	pb := &execPlayback{
		id:   uuid.NewString(),
		clip: clip,
		cmd:  cmd,
		done: make(chan Result, 1),
		exit: make(chan struct{}),
	}
	slog.Debug("Playback started", "id", pb.id, "player", player, "file", clip.Path)

	go pb.wait(player)
	go func() {
		select {
		case <-ctx.Done():
			pb.Stop()
		case <-pb.exit:
		}
	}()

	return pb, nil
}

type execPlayback struct {
	id   string
	clip *audio.Clip
	cmd  *exec.Cmd

	mu      sync.Mutex
	stopped bool

	done chan Result
	exit chan struct{}
}

func (pb *execPlayback) ID() string { return pb.id }

func (pb *execPlayback) Clip() *audio.Clip { return pb.clip }

func (pb *execPlayback) Done() <-chan Result { return pb.done }

func (pb *execPlayback) wait(player string) {
	err := pb.cmd.Wait()

	pb.mu.Lock()
	if pb.stopped {
		err = nil
	}
	pb.mu.Unlock()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		err = fmt.Errorf("playback failed with %s: %w", player, err)
	}

	close(pb.exit)
	pb.done <- Result{Playback: pb, Err: err}
}

// Stop ends playback and waits for the player to exit.
func (pb *execPlayback) Stop() error {
	pb.mu.Lock()
	if pb.stopped {
		pb.mu.Unlock()
		<-pb.exit
		return nil
	}
	pb.stopped = true
	pb.mu.Unlock()

	select {
	case <-pb.exit:
		return nil
	default:
	}

	if err := pb.cmd.Process.Kill(); err != nil {
		slog.Debug("Failed to kill player", "id", pb.id, "error", err)
	}
	<-pb.exit
	return nil
}
