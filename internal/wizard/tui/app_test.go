package tui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/devicesim"
	"github.com/muurk/espcfg/internal/poll"
	"github.com/muurk/espcfg/internal/provision"
)

func newTestModel(t *testing.T) (AppModel, *devicesim.Device) {
	t.Helper()
	sim := devicesim.New(devicesim.DefaultConfig())
	ap := httptest.NewServer(sim.AccessPointHandler())
	station := httptest.NewServer(sim.StationHandler())
	t.Cleanup(ap.Close)
	t.Cleanup(station.Close)

	session, err := provision.NewSession(provision.Options{
		Device:             device.NewClient(2 * time.Second),
		AccessPointAddress: device.Address(ap.URL),
		StationAddress:     device.Address(station.URL),
		Verification:       poll.Options{Attempts: 3, Delay: time.Millisecond, Timeout: 2 * time.Second},
	})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	m := NewAppModel(context.Background(), session)
	// A blinking cursor schedules timers the tests would have to wait for
	m.secret.Cursor.SetMode(cursor.CursorStatic)
	m.hidden.Cursor.SetMode(cursor.CursorStatic)
	m.query.Cursor.SetMode(cursor.CursorStatic)

	return settle(t, m, m.Init()), sim
}

// settle runs cmd and feeds operation outcomes back into the model until no
// work is left. Other messages are dropped.
func settle(t *testing.T, m AppModel, cmd tea.Cmd) AppModel {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = settle(t, m, c)
		}
	case opDoneMsg:
		next, c := m.Update(msg)
		m = settle(t, next.(AppModel), c)
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(t *testing.T, m AppModel, keys ...string) AppModel {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(keyMsg(k))
		m = settle(t, next.(AppModel), cmd)
	}
	return m
}

func TestAppModel_InitialScan(t *testing.T) {
	m, _ := newTestModel(t)

	if m.busy {
		t.Fatal("model still busy after the scan finished")
	}
	if got := len(m.snap.Networks); got != 3 {
		t.Fatalf("networks = %d, want 3", got)
	}

	view := m.View()
	for _, want := range []string{"Home WiFi", "Guest Network", "Step 1 of 2"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if strings.Contains(view, "5G") {
		t.Error("View() lists a network outside the supported band")
	}
}

func TestAppModel_FullFlow(t *testing.T) {
	m, sim := newTestModel(t)

	m = press(t, m, "enter")
	if m.mode != wifiSecret {
		t.Fatalf("mode = %v, want secret prompt", m.mode)
	}

	m = press(t, m, "pass1234", "enter")
	if m.snap.WifiVerified != provision.True || m.mode != wifiList {
		t.Fatalf("after submit: verified = %v, mode = %v, notice = %q", m.snap.WifiVerified, m.mode, m.notice)
	}
	if !strings.Contains(m.View(), "Press n to continue") {
		t.Error("View() does not offer to continue")
	}

	m = press(t, m, "n")
	if m.snap.Step != provision.StepChannel || !m.query.Focused() {
		t.Fatalf("step = %v, query focused = %v", m.snap.Step, m.query.Focused())
	}

	m = press(t, m, "mkbhd", "enter")
	if m.snap.SearchPhase != provision.SearchResolved {
		t.Fatalf("search phase = %v, notice = %q", m.snap.SearchPhase, m.notice)
	}
	if !strings.Contains(m.View(), "Marques Brownlee") {
		t.Error("View() does not show the candidate")
	}

	m = press(t, m, "s", "enter")
	if m.snap.ChannelVerified != provision.True {
		t.Fatalf("channel verified = %v, notice = %q", m.snap.ChannelVerified, m.notice)
	}

	m = press(t, m, "n")
	if m.snap.Step != provision.StepComplete {
		t.Fatalf("step = %v, want complete", m.snap.Step)
	}
	if view := m.View(); !strings.Contains(view, "Provisioning complete") || !strings.Contains(view, "UCBJycsmduvYEL83R_U4JriQ") {
		t.Errorf("complete view = %q", view)
	}
	if got := sim.ChannelID(); got != "UCBJycsmduvYEL83R_U4JriQ" {
		t.Errorf("device channel = %q", got)
	}

	m = press(t, m, "r")
	if m.snap.Step != provision.StepWifi || m.busy {
		t.Errorf("after restart: step = %v, busy = %v", m.snap.Step, m.busy)
	}
}

func TestAppModel_WrongPasswordKeepsPrompt(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "enter", "nope12345", "enter")

	if m.snap.WifiVerified != provision.False {
		t.Errorf("verified = %v, want false", m.snap.WifiVerified)
	}
	if m.mode != wifiSecret || !m.failed || m.notice == "" {
		t.Errorf("mode = %v, failed = %v, notice = %q", m.mode, m.failed, m.notice)
	}
	if !strings.Contains(m.View(), "Password for Home WiFi") {
		t.Error("View() closed the password prompt")
	}
}

func TestAppModel_OpenNetworkSubmitsDirectly(t *testing.T) {
	m, sim := newTestModel(t)

	m = press(t, m, "down", "enter")

	if m.snap.SelectedSSID != "Guest Network" {
		t.Fatalf("selected = %q", m.snap.SelectedSSID)
	}
	if m.snap.WifiVerified != provision.True || m.mode != wifiList {
		t.Errorf("verified = %v, mode = %v, notice = %q", m.snap.WifiVerified, m.mode, m.notice)
	}
	if !sim.Associated() {
		t.Error("device did not join the open network")
	}
}

func TestAppModel_AdvanceBeforeVerification(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "n")

	if m.snap.Step != provision.StepWifi {
		t.Errorf("step = %v, want wifi", m.snap.Step)
	}
	if !m.failed || m.notice == "" {
		t.Errorf("failed = %v, notice = %q", m.failed, m.notice)
	}
}

func TestAppModel_HiddenNetwork(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "m", "Attic", "enter")

	if m.snap.SelectedSSID != "Attic" || !m.snap.SelectedHidden {
		t.Fatalf("selected = %q, hidden = %v", m.snap.SelectedSSID, m.snap.SelectedHidden)
	}
	if m.mode != wifiSecret {
		t.Errorf("mode = %v, want secret prompt", m.mode)
	}
	if !strings.Contains(m.View(), "Not seen in the last scan") {
		t.Error("View() does not flag the out-of-range network")
	}
}

func TestAppModel_BackReturnsToWifi(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "enter", "pass1234", "enter", "n")

	// The first esc leaves the search field, the second goes back
	m = press(t, m, "esc", "esc")

	if m.snap.Step != provision.StepWifi {
		t.Fatalf("step = %v, want wifi", m.snap.Step)
	}
	if m.snap.SelectedSSID != "" || m.mode != wifiList {
		t.Errorf("selected = %q, mode = %v", m.snap.SelectedSSID, m.mode)
	}
}

func TestAppModel_CtrlCQuits(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := m.Update(keyMsg("ctrl+c"))
	if cmd == nil {
		t.Fatal("ctrl+c returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
}
