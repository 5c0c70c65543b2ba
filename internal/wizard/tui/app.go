package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/provision"
)

// operation is a long-running session call executed in a tea.Cmd
type operation int

const (
	opScan operation = iota
	opWifi
	opSearch
	opChannel
)

func (o operation) String() string {
	switch o {
	case opScan:
		return "Scanning for WiFi networks"
	case opWifi:
		return "Connecting the device to WiFi"
	case opSearch:
		return "Searching for the channel"
	case opChannel:
		return "Sending the channel to the device"
	default:
		return "Working"
	}
}

// opDoneMsg carries the outcome of an operation back into Update
type opDoneMsg struct {
	op  operation
	out provision.Outcome
}

// wifiMode is the sub-state of the WiFi screen
type wifiMode int

const (
	wifiList wifiMode = iota
	wifiSecret
	wifiHidden
)

// AppModel is the top-level Bubble Tea model. It drives a provisioning
// session and renders only from the session's snapshots.
type AppModel struct {
	session *provision.Session
	ctx     context.Context
	snap    provision.Snapshot

	// WiFi screen
	mode     wifiMode
	networks list.Model
	secret   textinput.Model
	hidden   textinput.Model

	// Channel screen
	query textinput.Model

	// Operation state
	busy    bool
	running operation
	spinner spinner.Model

	// notice is the message of the last outcome or rejected action
	notice string
	failed bool

	// UI state
	Width  int
	Height int
	Help   help.Model
	Keys   keyMaps
}

// NewAppModel creates the wizard for session. Operations run with ctx.
func NewAppModel(ctx context.Context, session *provision.Session) AppModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	secret := textinput.New()
	secret.Placeholder = "WiFi password"
	secret.EchoMode = textinput.EchoPassword
	secret.EchoCharacter = '•'
	secret.CharLimit = device.MaxSecretLength
	secret.Width = 40

	hidden := textinput.New()
	hidden.Placeholder = "Network name"
	hidden.CharLimit = device.MaxSSIDLength
	hidden.Width = 40

	query := textinput.New()
	query.Placeholder = "Channel name or handle"
	query.CharLimit = 100
	query.Width = 40

	networks := list.New([]list.Item{}, list.NewDefaultDelegate(), MinTerminalWidth, 12)
	networks.Title = "WiFi networks"
	networks.SetShowStatusBar(false)
	networks.SetFilteringEnabled(false)
	networks.SetShowHelp(false)
	networks.DisableQuitKeybindings()
	networks.Styles.Title = TitleStyle

	m := AppModel{
		session:  session,
		ctx:      ctx,
		networks: networks,
		secret:   secret,
		hidden:   hidden,
		query:    query,
		spinner:  s,
		Help:     help.New(),
		Keys:     defaultKeyMaps(),
	}
	m.refresh()
	return m
}

// Init starts with a network scan
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run(opScan))
}

// Update handles all messages and routes them to the current step
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.networks.SetSize(max(msg.Width-6, 20), max(msg.Height-16, 6))
		return m, nil

	case tea.KeyMsg:
		// Global quit handler
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case opDoneMsg:
		return m.finish(msg)
	}

	switch m.snap.Step {
	case provision.StepWifi:
		return m.updateWifi(msg)
	case provision.StepChannel:
		return m.updateChannel(msg)
	default:
		return m.updateComplete(msg)
	}
}

// start marks op as running and returns the command executing it
func (m AppModel) start(op operation) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	m.running = op
	m.notice, m.failed = "", false
	return m, tea.Batch(m.spinner.Tick, m.run(op))
}

func (m AppModel) run(op operation) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		var out provision.Outcome
		switch op {
		case opScan:
			out = session.Scan(ctx)
		case opWifi:
			out = session.SubmitWifi(ctx)
		case opSearch:
			out = session.SearchChannel(ctx)
		case opChannel:
			out = session.SubmitChannel(ctx)
		}
		return opDoneMsg{op: op, out: out}
	}
}

func (m AppModel) finish(msg opDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.notice, m.failed = msg.out.Message, !msg.out.Success
	m.refresh()

	logging.Debug("Wizard operation finished",
		zap.Stringer("op", msg.op),
		zap.Bool("success", msg.out.Success),
		zap.Stringer("kind", msg.out.Kind),
	)

	if msg.op != opWifi {
		return m, nil
	}
	if msg.out.Success || m.snap.SelectedOpen {
		m.mode = wifiList
		m.secret.Reset()
		m.secret.Blur()
		return m, nil
	}
	// Keep the secret prompt open so the password can be corrected
	m.mode = wifiSecret
	return m, m.secret.Focus()
}

// reject reports a call the session refused
func (m *AppModel) reject(err error) {
	m.notice = device.GetShortErrorMessage(err)
	m.failed = true
	m.refresh()
}

// refresh re-reads the session snapshot and rebuilds the network list
func (m *AppModel) refresh() {
	m.snap = m.session.Snapshot()

	items := make([]list.Item, len(m.snap.Networks))
	for i, ap := range m.snap.Networks {
		items[i] = networkItem{ap: ap, selected: ap.SSID == m.snap.SelectedSSID}
	}
	index := m.networks.Index()
	m.networks.SetItems(items)
	if index < len(items) {
		m.networks.Select(index)
	}
}

func (m AppModel) updateComplete(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(k, m.Keys.Complete.Restart):
		m.session.Reset()
		m.mode = wifiList
		m.query.Reset()
		m.secret.Reset()
		m.refresh()
		return m.start(opScan)

	case key.Matches(k, m.Keys.Complete.Quit):
		return m, tea.Quit
	}
	return m, nil
}

// View renders the current step
func (m AppModel) View() string {
	var content string
	var keys help.KeyMap

	switch m.snap.Step {
	case provision.StepWifi:
		content, keys = m.viewWifi(), m.wifiKeys()
	case provision.StepChannel:
		content, keys = m.viewChannel(), m.channelKeys()
	default:
		content, keys = m.viewComplete(), m.Keys.Complete
	}
	if m.busy {
		keys = m.Keys.Busy
	}

	width, height := m.Width, m.Height
	if width == 0 {
		width = MinTerminalWidth
	}
	if height == 0 {
		height = 24
	}
	return RenderApplicationContainer(content, m.Help.View(keys), width, height)
}

// viewStatus renders the spinner or the last notice
func (m AppModel) viewStatus() string {
	switch {
	case m.busy:
		return SpinnerStyle.Render(fmt.Sprintf("%s %s...", m.spinner.View(), m.running))
	case m.notice == "":
		return ""
	case m.failed:
		return RenderError(m.notice)
	default:
		return RenderSuccess(m.notice)
	}
}

func (m AppModel) viewComplete() string {
	var b strings.Builder

	b.WriteString(RenderTitle("✓ Provisioning complete"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  WiFi network: %s\n", m.snap.SelectedSSID))
	if c := m.snap.SelectedCandidate; c != nil {
		b.WriteString(fmt.Sprintf("  Channel:      %s (%s)\n", c.Title, c.ID))
	} else {
		b.WriteString(fmt.Sprintf("  Channel:      %s\n", m.snap.SubmissionID))
	}
	b.WriteString(fmt.Sprintf("  Device:       %s\n", m.snap.Address))
	b.WriteString("\n")
	b.WriteString(RenderSubtitle("The device is online and tracking the channel."))
	b.WriteString("\n")
	return b.String()
}

// Run starts the wizard on the terminal and blocks until it exits. In-flight
// operations are cancelled when it returns.
func Run(ctx context.Context, session *provision.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewAppModel(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("wizard: %w", err)
	}

	if m, ok := final.(AppModel); ok {
		logging.Info("Wizard exited",
			zap.String("session_id", m.snap.SessionID),
			zap.Stringer("step", m.snap.Step),
		)
	}
	return nil
}
