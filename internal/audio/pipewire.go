package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

var (
	ErrPortNotFound  = errors.New("port not found")
	ErrDuplicatePort = errors.New("duplicate sources detected")
)

// commandRunner runs an external tool and returns its combined output.
type commandRunner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// PipeWire inspects and wires the PipeWire graph through pw-link.
type PipeWire struct {
	run        commandRunner
	retryDelay time.Duration
}

func NewPipeWire() *PipeWire {
	return &PipeWire{run: execRunner, retryDelay: 500 * time.Millisecond}
}

// ListPorts returns every input and output port in the graph.
func (pw *PipeWire) ListPorts() ([]string, error) {
	output, err := pw.run("pw-link", "-io")
	if err != nil {
		return nil, fmt.Errorf("failed to list PipeWire ports: %w", err)
	}
	return parsePorts(string(output)), nil
}

func parsePorts(output string) []string {
	var ports []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Input ports:") || strings.HasPrefix(line, "Output ports:") {
			continue
		}
		ports = append(ports, line)
	}
	return ports
}

// ValidatePort checks that a port exists exactly once.
func (pw *PipeWire) ValidatePort(portName string) error {
	if portName == "" {
		return nil
	}

	ports, err := pw.ListPorts()
	if err != nil {
		return err
	}
	return validatePortInList(portName, ports)
}

func validatePortInList(portName string, ports []string) error {
	duplicates := findPortDuplicatesInList(portName, ports)
	switch {
	case len(duplicates) == 0:
		return fmt.Errorf("%w: %s", ErrPortNotFound, portName)
	case len(duplicates) > 1:
		return fmt.Errorf("%w for '%s': %v. Please close conflicting applications", ErrDuplicatePort, portName, duplicates)
	}
	return nil
}

// findPortDuplicatesInList returns every port with exactly portName
func findPortDuplicatesInList(portName string, ports []string) []string {
	var duplicates []string
	for _, port := range ports {
		if port == portName {
			duplicates = append(duplicates, port)
		}
	}
	return duplicates
}

func (pw *PipeWire) portExists(portName string) bool {
	ports, err := pw.ListPorts()
	if err != nil {
		slog.Debug("Failed to check port existence", "port", portName, "error", err)
		return false
	}
	return len(findPortDuplicatesInList(portName, ports)) > 0
}

// WaitForPort polls until portName shows up or timeout elapses.
func (pw *PipeWire) WaitForPort(portName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if pw.portExists(portName) {
			slog.Debug("PipeWire port found", "port", portName)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for port: %s", portName)
}

// ConnectPortsWithRetry links sourcePort to destPort. Application ports get a
// longer budget since they come and go with the app.
func (pw *PipeWire) ConnectPortsWithRetry(sourcePort, destPort string) error {
	maxRetries := 5
	retryDelay := pw.retryDelay
	if isEphemeralPort(sourcePort) {
		maxRetries = 15
		retryDelay = 2 * pw.retryDelay
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if pw.portExists(sourcePort) {
			err := pw.connectPorts(sourcePort, destPort)
			if err == nil {
				slog.Debug("Connected ports", "source", sourcePort, "dest", destPort, "attempt", attempt)
				return nil
			}
			slog.Debug("Connection attempt failed", "source", sourcePort, "dest", destPort, "attempt", attempt, "error", err)
		} else {
			slog.Debug("Source port not yet available", "source", sourcePort, "attempt", attempt)
		}

		if attempt < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	return fmt.Errorf("failed to connect %s to %s after %d attempts", sourcePort, destPort, maxRetries)
}

func (pw *PipeWire) connectPorts(sourcePort, destPort string) error {
	output, err := pw.run("pw-link", sourcePort, destPort)
	if err != nil {
		return fmt.Errorf("failed to connect ports: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func isEphemeralPort(portName string) bool {
	lower := strings.ToLower(portName)
	for _, app := range []string{"chrome", "firefox", "discord", "zoom", "teams", "slack"} {
		if strings.Contains(lower, app) {
			return true
		}
	}
	return false
}
