package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/quickrec/internal/library"
	"github.com/audiolibrelab/quickrec/internal/recording"
	"github.com/audiolibrelab/quickrec/internal/service"
	"github.com/audiolibrelab/quickrec/internal/session"
)

type tab int

const (
	tabRecord tab = iota
	tabListen
)

var tabNames = []string{"Record", "Listen"}

const tickInterval = 500 * time.Millisecond

type (
	eventMsg    struct{ ev service.Event }
	preparedMsg struct {
		state session.State
		err   error
	}
	opErrMsg struct {
		op  string
		err error
	}
	tickMsg time.Time
)

type model struct {
	svc    service.Service
	prompt *Prompt
	ctx    context.Context

	tab    tab
	width  int
	height int

	recs     []recording.Recording
	cursor   int
	rec      session.Info
	playback library.PlaybackState
	alert    *recording.Alert
	badge    bool
	asking   chan bool
	status   string
	now      time.Time
}

func newModel(ctx context.Context, svc service.Service, prompt *Prompt) model {
	return model{
		svc:    svc,
		prompt: prompt,
		ctx:    ctx,
		now:    time.Now(),
	}.refresh()
}

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, svc service.Service, prompt *Prompt) error {
	p := tea.NewProgram(newModel(ctx, svc, prompt), tea.WithAltScreen(), tea.WithContext(ctx))

	// events arrive on service goroutines; Send hops them onto the UI loop
	svc.Subscribe(func(ev service.Event) {
		p.Send(eventMsg{ev: ev})
	})

	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.prepare(), tick(), reloadCmd(m.svc)}
	if m.prompt != nil {
		cmds = append(cmds, m.prompt.wait())
	}
	return tea.Batch(cmds...)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) prepare() tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		st, err := svc.Prepare(ctx)
		return preparedMsg{state: st, err: err}
	}
}

func reloadCmd(svc service.Service) tea.Cmd {
	return func() tea.Msg {
		svc.Reload()
		return nil
	}
}

// refresh copies the service state into the model.
func (m model) refresh() model {
	m.rec = m.svc.RecordingStatus()
	m.playback = m.svc.PlaybackStatus()
	m.alert = m.svc.Alert()
	m.recs = m.svc.Recordings()
	if m.tab == tabListen {
		m.svc.ClearNewRecordings()
		m.badge = false
	} else {
		m.badge = m.svc.HasNewRecordings()
	}
	if m.cursor >= len(m.recs) {
		m.cursor = max(len(m.recs)-1, 0)
	}
	return m
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case eventMsg:
		if ev := msg.ev.Session; ev != nil && ev.Kind == session.EventSaved {
			m.status = fmt.Sprintf("Saved %s", ev.Recording.Name)
		}
		return m.refresh(), nil

	case preparedMsg:
		if msg.err != nil {
			slog.Debug("Prepare finished with error", "state", msg.state, "error", msg.err)
		}
		return m.refresh(), nil

	case promptMsg:
		m.asking = msg.reply
		return m, nil

	case opErrMsg:
		m.status = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		return m.refresh(), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	// modals swallow every other key
	if m.asking != nil {
		switch key {
		case "y", "Y":
			m.asking <- true
		case "n", "N", "esc":
			m.asking <- false
		default:
			return m, nil
		}
		m.asking = nil
		return m, m.prompt.wait()
	}
	if m.alert != nil {
		if key == "enter" || key == "esc" {
			m.svc.DismissAlert()
			m.alert = nil
		}
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "tab":
		return m.switchTab((m.tab + 1) % 2), nil
	case "1":
		return m.switchTab(tabRecord), nil
	case "2":
		return m.switchTab(tabListen), nil
	}

	if m.tab == tabRecord {
		return m.handleRecordKey(key)
	}
	return m.handleListenKey(key)
}

func (m model) switchTab(t tab) model {
	m.tab = t
	m.status = ""
	return m.refresh()
}

func (m model) handleRecordKey(key string) (tea.Model, tea.Cmd) {
	svc, ctx := m.svc, m.ctx
	switch key {
	case "r":
		if m.rec.State != session.StateIdle {
			return m, nil
		}
		m.status = ""
		return m, func() tea.Msg {
			if _, err := svc.StartRecording(ctx); err != nil {
				return opErrMsg{op: "Record", err: err}
			}
			return nil
		}
	case "s":
		if m.rec.State != session.StateRecording {
			return m, nil
		}
		return m, func() tea.Msg {
			if _, err := svc.StopRecording(); err != nil {
				return opErrMsg{op: "Save", err: err}
			}
			return nil
		}
	}
	return m, nil
}

func (m model) handleListenKey(key string) (tea.Model, tea.Cmd) {
	svc := m.svc
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.recs)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.recs) == 0 {
			return m, nil
		}
		rec := m.recs[m.cursor]
		// selecting the row that is playing stops it
		if m.playback.Recording != nil && m.playback.Recording.Path == rec.Path {
			return m, func() tea.Msg {
				svc.StopPlayback()
				return nil
			}
		}
		name := rec.Name
		return m, func() tea.Msg {
			if _, err := svc.Play(name); err != nil {
				return opErrMsg{op: "Play", err: err}
			}
			return nil
		}
	case "x":
		return m, func() tea.Msg {
			svc.StopPlayback()
			return nil
		}
	case "d":
		if len(m.recs) == 0 {
			return m, nil
		}
		name := m.recs[m.cursor].Name
		return m, func() tea.Msg {
			if err := svc.Delete(name); err != nil {
				return opErrMsg{op: "Delete", err: err}
			}
			return nil
		}
	case "R":
		return m, reloadCmd(svc)
	}
	return m, nil
}
