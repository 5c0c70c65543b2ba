package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/espcfg/internal/provision"
)

func (m AppModel) updateChannel(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, isKey := msg.(tea.KeyMsg)
	if isKey && m.busy {
		return m, nil
	}

	if m.query.Focused() {
		if isKey {
			switch {
			case key.Matches(k, m.Keys.Input.Confirm):
				if err := m.session.SetQuery(m.query.Value()); err != nil {
					m.reject(err)
					return m, nil
				}
				m.query.Blur()
				return m.start(opSearch)

			case key.Matches(k, m.Keys.Input.Cancel):
				m.query.Blur()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.query, cmd = m.query.Update(msg)
		return m, cmd
	}

	if !isKey {
		return m, nil
	}

	keys := m.Keys.Channel
	switch {
	case key.Matches(k, keys.Edit):
		return m, m.query.Focus()

	case key.Matches(k, keys.Select):
		if err := m.session.SelectCandidate(); err != nil {
			m.reject(err)
			return m, nil
		}
		m.notice, m.failed = "", false
		m.refresh()

	case key.Matches(k, keys.Submit):
		return m.start(opChannel)

	case key.Matches(k, keys.Next):
		if err := m.session.Advance(); err != nil {
			m.reject(err)
			return m, nil
		}
		m.notice, m.failed = "", false
		m.refresh()

	case key.Matches(k, keys.Back):
		if err := m.session.Back(); err != nil {
			m.reject(err)
			return m, nil
		}
		m.notice, m.failed = "", false
		m.mode = wifiList
		m.refresh()

	case key.Matches(k, keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m AppModel) channelKeys() help.KeyMap {
	if m.query.Focused() {
		return m.Keys.Input
	}
	return m.Keys.Channel
}

func (m AppModel) viewChannel() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Step 2 of 2 · Choose the channel to track"))
	b.WriteString("\n")
	b.WriteString(RenderSubtitle(fmt.Sprintf("Device online at %s via %s", m.snap.Address, m.snap.SelectedSSID)))
	b.WriteString("\n\n  Search: ")
	b.WriteString(m.query.View())
	b.WriteString("\n\n")

	switch m.snap.SearchPhase {
	case provision.SearchResolved:
		if len(m.snap.Candidates) > 0 {
			b.WriteString(m.renderCandidate())
			b.WriteString("\n")
		}
	case provision.SearchNotFound:
		b.WriteString("  ")
		b.WriteString(WarningTextStyle.Render(fmt.Sprintf("⚠ No channel matches %q", m.snap.Query)))
		b.WriteString("\n")
	}

	if m.snap.SubmissionID != "" {
		b.WriteString(fmt.Sprintf("\n  Channel ID: %s (%s)\n", m.snap.SubmissionID, submitLabel(m.snap)))
	}

	if m.snap.CanAdvance() {
		b.WriteString("\n")
		b.WriteString(SuccessBoxStyle.Render("  ✓ The device is tracking the channel. Press n to finish."))
		b.WriteString("\n")
	}

	if status := m.viewStatus(); status != "" {
		b.WriteString("\n")
		b.WriteString(status)
		b.WriteString("\n")
	}
	return b.String()
}

// renderCandidate renders the resolved channel as a card
func (m AppModel) renderCandidate() string {
	c := m.snap.Candidates[0]
	selected := m.snap.SelectedCandidate != nil

	var content strings.Builder
	if selected {
		content.WriteString(SelectedMenuItemStyle.Render("→ " + c.Title))
	} else {
		content.WriteString("  " + c.Title)
	}
	content.WriteString("\n\n")
	content.WriteString(fmt.Sprintf("  ID:     %s\n", c.ID))
	content.WriteString(fmt.Sprintf("  Avatar: %s", c.Thumbnail))

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(1, 2).
		MarginLeft(2)
	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}
	return cardStyle.Render(content.String())
}

func submitLabel(snap provision.Snapshot) string {
	switch snap.SubmitPhase {
	case provision.ChannelVerified:
		return "verified"
	case provision.ChannelFailed:
		return "not confirmed"
	case provision.ChannelSubmitting, provision.ChannelVerifying:
		return "sending"
	default:
		return "not sent"
	}
}
