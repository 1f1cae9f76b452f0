package audio

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

// finalizingFFmpeg writes a finished file when interrupted, like ffmpeg
// flushing the MP4 trailer, and exits 255.
const finalizingFFmpeg = `#!/bin/sh
for out in "$@"; do :; done
trap 'printf "ftypM4A finalized" > "$out"; exit 255' INT
: > "$out.ready"
while :; do sleep 0.05; done
`

// stuckFFmpeg ignores SIGINT and never finalizes.
const stuckFFmpeg = `#!/bin/sh
for out in "$@"; do :; done
trap '' INT
printf "partial" > "$out"
: > "$out.ready"
while :; do sleep 0.05; done
`

// installFakeFFmpeg puts script on PATH as ffmpeg.
func installFakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	bin := t.TempDir()
	if err := os.WriteFile(filepath.Join(bin, "ffmpeg"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	return bin
}

func waitReady(t *testing.T, out string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(out + ".ready"); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("fake ffmpeg never became ready for %s", out)
}

func TestFFmpegStream_CloseFinalizes(t *testing.T) {
	installFakeFFmpeg(t, finalizingFFmpeg)
	out := filepath.Join(t.TempDir(), "memo.m4a")

	stream, err := NewFFmpegEncoder(InputPulse, "", nil).Open(context.Background(), out, VoiceMemo)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	waitReady(t, out)

	if err := stream.Close(); err != nil {
		t.Fatalf("Expected a clean close, got: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "ftypM4A finalized" {
		t.Errorf("Expected finalized output, got %q (%v)", data, err)
	}

	res := <-stream.Done()
	if res.Err != nil || res.Stream != stream {
		t.Errorf("Unexpected completion: %+v", res)
	}
}

func TestFFmpegStream_OwnProcessGroup(t *testing.T) {
	installFakeFFmpeg(t, finalizingFFmpeg)
	out := filepath.Join(t.TempDir(), "memo.m4a")

	stream, err := NewFFmpegEncoder(InputPulse, "", nil).Open(context.Background(), out, VoiceMemo)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer stream.Close()
	waitReady(t, out)

	pid := stream.(*ffmpegStream).cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		t.Fatal(err)
	}
	if pgid != pid {
		t.Errorf("Expected ffmpeg to lead its own process group, pgid=%d pid=%d", pgid, pid)
	}
	if pgid == syscall.Getpgrp() {
		t.Error("ffmpeg shares the caller's process group")
	}
}

// The terminal delivers Ctrl+C to the whole foreground process group. The
// interrupt runs in a child test process that leads its own group so the
// signal stays inside it.
func TestFFmpegStream_TerminalInterrupt(t *testing.T) {
	if out := os.Getenv("QUICKREC_INTERRUPT_OUT"); out != "" {
		interruptOwnGroup(t, out)
		return
	}

	installFakeFFmpeg(t, finalizingFFmpeg)
	out := filepath.Join(t.TempDir(), "memo.m4a")

	cmd := exec.Command(os.Args[0], "-test.run=^TestFFmpegStream_TerminalInterrupt$")
	cmd.Env = append(os.Environ(), "QUICKREC_INTERRUPT_OUT="+out)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Recording did not survive a terminal interrupt: %v\n%s", err, output)
	}

	data, err := os.ReadFile(out)
	if err != nil || string(data) != "ftypM4A finalized" {
		t.Errorf("Expected finalized output, got %q (%v)", data, err)
	}
}

func interruptOwnGroup(t *testing.T, out string) {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	stream, err := NewFFmpegEncoder(InputPulse, "", nil).Open(context.Background(), out, VoiceMemo)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	waitReady(t, out)

	if err := syscall.Kill(0, syscall.SIGINT); err != nil {
		t.Fatalf("Failed to signal process group: %v", err)
	}
	<-interrupts

	select {
	case res := <-stream.Done():
		t.Fatalf("Encoder ended on the terminal interrupt: %v", res.Err)
	case <-time.After(300 * time.Millisecond):
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Expected a clean close after the interrupt, got: %v", err)
	}
}

func TestFFmpegStream_KilledIsFailure(t *testing.T) {
	installFakeFFmpeg(t, stuckFFmpeg)
	out := filepath.Join(t.TempDir(), "memo.m4a")

	enc := NewFFmpegEncoder(InputPulse, "", nil)
	enc.stopTimeout = 200 * time.Millisecond
	stream, err := enc.Open(context.Background(), out, VoiceMemo)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	waitReady(t, out)

	err = stream.Close()
	if err == nil {
		t.Fatal("Expected an error when ffmpeg had to be killed")
	}
	if !strings.Contains(err.Error(), "killed before finalizing") {
		t.Errorf("Unexpected error: %v", err)
	}
}
