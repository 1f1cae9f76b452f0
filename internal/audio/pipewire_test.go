package audio

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const pwLinkOutput = `Output ports:
system:capture_1
Chrome:output_FL
Chrome:output_FL
Chrome-2:output_FL
Input ports:
quickrec:input_1
`

func fakePipeWire(output string, calls *[]string) *PipeWire {
	return &PipeWire{
		retryDelay: time.Millisecond,
		run: func(name string, args ...string) ([]byte, error) {
			if calls != nil {
				*calls = append(*calls, name+" "+strings.Join(args, " "))
			}
			if len(args) == 1 && args[0] == "-io" {
				return []byte(output), nil
			}
			return nil, nil
		},
	}
}

func TestParsePorts_SkipsHeaders(t *testing.T) {
	ports := parsePorts(pwLinkOutput)
	if len(ports) != 5 {
		t.Fatalf("Expected 5 ports, got %d: %v", len(ports), ports)
	}
	for _, port := range ports {
		if strings.HasSuffix(port, "ports:") {
			t.Errorf("Header leaked into ports: %s", port)
		}
	}
}

func TestValidatePort_Success(t *testing.T) {
	pw := fakePipeWire(pwLinkOutput, nil)
	if err := pw.ValidatePort("system:capture_1"); err != nil {
		t.Errorf("Expected no error for valid single port, got: %v", err)
	}
}

func TestValidatePort_NotFound(t *testing.T) {
	pw := fakePipeWire(pwLinkOutput, nil)
	err := pw.ValidatePort("nonexistent:port")
	if !errors.Is(err, ErrPortNotFound) {
		t.Errorf("Expected ErrPortNotFound, got: %v", err)
	}
}

func TestValidatePort_DuplicateDetection(t *testing.T) {
	pw := fakePipeWire(pwLinkOutput, nil)
	err := pw.ValidatePort("Chrome:output_FL")
	if !errors.Is(err, ErrDuplicatePort) {
		t.Errorf("Expected ErrDuplicatePort, got: %v", err)
	}

	// a second instance with a different client name is not a duplicate
	if err := pw.ValidatePort("Chrome-2:output_FL"); err != nil {
		t.Errorf("Expected no error for Chrome-2:output_FL, got: %v", err)
	}
}

func TestValidatePort_Empty(t *testing.T) {
	pw := fakePipeWire("", nil)
	if err := pw.ValidatePort(""); err != nil {
		t.Errorf("Expected no error for empty string, got: %v", err)
	}
}

func TestValidatePort_ListFailure(t *testing.T) {
	pw := &PipeWire{run: func(name string, args ...string) ([]byte, error) {
		return nil, errors.New("pw-link: not found")
	}}
	if err := pw.ValidatePort("system:capture_1"); err == nil {
		t.Error("Expected error when pw-link fails")
	}
}

func TestFindPortDuplicates(t *testing.T) {
	ports := []string{"Firefox:output_FL", "Firefox:output_FL", "Firefox (1):output_FL", "Chrome:output_FL"}

	if got := findPortDuplicatesInList("Firefox:output_FL", ports); len(got) != 2 {
		t.Errorf("Expected 2 duplicates, got %d: %v", len(got), got)
	}
	if got := findPortDuplicatesInList("Chrome:output_FL", ports); len(got) != 1 {
		t.Errorf("Expected 1 match, got %d: %v", len(got), got)
	}
}

func TestConnectPortsWithRetry(t *testing.T) {
	var calls []string
	pw := fakePipeWire(pwLinkOutput, &calls)

	if err := pw.ConnectPortsWithRetry("system:capture_1", "quickrec:input_1"); err != nil {
		t.Fatalf("Expected connection to succeed, got: %v", err)
	}
	last := calls[len(calls)-1]
	if last != "pw-link system:capture_1 quickrec:input_1" {
		t.Errorf("Unexpected link command: %s", last)
	}
}

func TestConnectPortsWithRetry_MissingSource(t *testing.T) {
	pw := fakePipeWire(pwLinkOutput, nil)
	if err := pw.ConnectPortsWithRetry("usb-mic:capture_1", "quickrec:input_1"); err == nil {
		t.Error("Expected error for a source that never appears")
	}
}

func TestIsEphemeralPort(t *testing.T) {
	if !isEphemeralPort("Chrome:output_FL") {
		t.Error("Chrome should be ephemeral")
	}
	if isEphemeralPort("alsa_input.usb-Blue_Yeti:capture_MONO") {
		t.Error("hardware input should not be ephemeral")
	}
}
