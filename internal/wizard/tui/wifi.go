package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/provision"
)

// networkItem wraps an access point for use with bubbles/list
type networkItem struct {
	ap       device.AccessPoint
	selected bool
}

// FilterValue implements list.Item
func (n networkItem) FilterValue() string { return n.ap.SSID }

// Title returns the network name, marked when selected
func (n networkItem) Title() string {
	if n.selected {
		return "● " + n.ap.SSID
	}
	return n.ap.SSID
}

// Description returns signal, channel and security for list display
func (n networkItem) Description() string {
	security := n.ap.Security
	switch {
	case n.ap.Open():
		security = "open"
	case security == "":
		security = "secured"
	}
	return fmt.Sprintf("%s %3d%%  •  channel %d  •  %s",
		device.SignalBars(n.ap.Strength), n.ap.Strength, n.ap.Channel, security)
}

func (m AppModel) updateWifi(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case wifiSecret:
		return m.updateSecret(msg)
	case wifiHidden:
		return m.updateHidden(msg)
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.busy {
		return m, nil
	}

	keys := m.Keys.Networks
	switch {
	case key.Matches(k, keys.Select):
		item, ok := m.networks.SelectedItem().(networkItem)
		if !ok {
			return m, nil
		}
		return m.chooseNetwork(item.ap.SSID)

	case key.Matches(k, keys.Manual):
		m.mode = wifiHidden
		m.hidden.Reset()
		return m, m.hidden.Focus()

	case key.Matches(k, keys.Rescan):
		return m.start(opScan)

	case key.Matches(k, keys.Next):
		if err := m.session.Advance(); err != nil {
			m.reject(err)
			return m, nil
		}
		m.notice, m.failed = "", false
		m.refresh()
		m.query.SetValue(m.snap.Query)
		return m, m.query.Focus()

	case key.Matches(k, keys.Quit):
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.networks, cmd = m.networks.Update(msg)
	return m, cmd
}

// chooseNetwork selects ssid and asks for its secret. Choosing the selected
// network again reopens the secret prompt until it is verified, after which
// it deselects the network.
func (m AppModel) chooseNetwork(ssid string) (tea.Model, tea.Cmd) {
	if ssid != m.snap.SelectedSSID || m.snap.WifiPhase == provision.WifiVerified {
		if err := m.session.SelectNetwork(ssid); err != nil {
			m.reject(err)
			return m, nil
		}
		m.notice, m.failed = "", false
		m.refresh()
	}
	return m.promptSecret()
}

// promptSecret submits open networks directly and asks for the secret of
// secured ones.
func (m AppModel) promptSecret() (tea.Model, tea.Cmd) {
	switch {
	case m.snap.SelectedSSID == "":
		return m, nil
	case m.snap.SelectedOpen:
		return m.start(opWifi)
	default:
		m.mode = wifiSecret
		m.secret.Reset()
		return m, m.secret.Focus()
	}
}

func (m AppModel) updateSecret(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(k, m.Keys.Input.Cancel):
			m.mode = wifiList
			m.secret.Blur()
			return m, nil

		case key.Matches(k, m.Keys.Input.Confirm):
			if err := m.session.SetSecret(m.secret.Value()); err != nil {
				m.reject(err)
				return m, nil
			}
			m.secret.Blur()
			return m.start(opWifi)
		}
	}

	var cmd tea.Cmd
	m.secret, cmd = m.secret.Update(msg)
	return m, cmd
}

func (m AppModel) updateHidden(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, m.Keys.Input.Cancel):
			m.mode = wifiList
			m.hidden.Blur()
			return m, nil

		case key.Matches(k, m.Keys.Input.Confirm):
			if err := m.session.EnterNetwork(m.hidden.Value()); err != nil {
				m.reject(err)
				return m, nil
			}
			m.hidden.Blur()
			m.notice, m.failed = "", false
			m.refresh()
			return m.promptSecret()
		}
	}

	var cmd tea.Cmd
	m.hidden, cmd = m.hidden.Update(msg)
	return m, cmd
}

func (m AppModel) wifiKeys() help.KeyMap {
	if m.mode == wifiList {
		return m.Keys.Networks
	}
	return m.Keys.Input
}

func (m AppModel) viewWifi() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Step 1 of 2 · Connect the device to WiFi"))
	b.WriteString("\n")

	switch m.mode {
	case wifiHidden:
		b.WriteString(RenderSubtitle("Enter the name of a hidden network"))
		b.WriteString("\n\n  Network: ")
		b.WriteString(m.hidden.View())
		b.WriteString("\n")

	case wifiSecret:
		b.WriteString(RenderSubtitle(fmt.Sprintf("Password for %s", m.snap.SelectedSSID)))
		if m.snap.SelectedHidden && !m.snap.SelectedInRange {
			b.WriteString("\n")
			b.WriteString(RenderSubtitle("Not seen in the last scan; the device will try to join it anyway."))
		}
		b.WriteString("\n\n  Password: ")
		b.WriteString(m.secret.View())
		b.WriteString("\n")

	default:
		if len(m.snap.Networks) == 0 && !m.busy {
			b.WriteString("\n  ")
			b.WriteString(WarningTextStyle.Render("⚠ No 2.4 GHz networks found"))
			b.WriteString("\n\n  Press r to rescan or m to enter a hidden network.\n")
		} else {
			b.WriteString(m.networks.View())
			b.WriteString("\n")
		}
	}

	if m.snap.CanAdvance() && m.mode == wifiList {
		b.WriteString("\n")
		b.WriteString(SuccessBoxStyle.Render(fmt.Sprintf("  ✓ Connected to %s. Press n to continue.", m.snap.SelectedSSID)))
		b.WriteString("\n")
	}

	if status := m.viewStatus(); status != "" {
		b.WriteString("\n")
		b.WriteString(status)
		b.WriteString("\n")
	}
	return b.String()
}
