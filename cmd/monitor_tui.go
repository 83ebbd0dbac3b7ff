// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/sextant/pkg/gnss"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	valGetTimeoutSeconds = 3 // A read is reported lost after N seconds
	monitorLogEntries    = 100
)

// Focus states
const (
	focusTypeList = iota
	focusKeyInput
	focusButton
)

// Layers a configuration read can target, in button order
var monitorLayers = []ubx.GetLayer{ubx.GetRAM, ubx.GetBBR, ubx.GetFlash, ubx.GetDefault}

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// msgType is one message type seen on the link
type msgType struct {
	name     string
	protocol gnss.Protocol
	count    uint64
	bad      uint64
	last     *gnss.Frame
}

// Implement list.Item interface
func (t msgType) Title() string { return t.name }
func (t msgType) Description() string {
	if t.bad > 0 {
		return fmt.Sprintf("%s  %d frames, %d bad", t.protocol, t.count, t.bad)
	}
	return fmt.Sprintf("%s  %d frames", t.protocol, t.count)
}
func (t msgType) FilterValue() string { return t.name }

// pendingRead is a configuration read awaiting its response
type pendingRead struct {
	key   ubx.KeyID
	layer ubx.GetLayer
	sent  time.Time
}

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	// Link manager (for sending requests and reconnection)
	links *linkManager
	info  string

	// Message types
	types    map[string]*msgType
	typeList list.Model

	// Monitoring (reused from tui.go patterns)
	stats    *gnss.Statistics
	eventLog []errorLogEntry

	// Configuration reads
	keyInput  textinput.Model
	layerIdx  int
	pending   *pendingRead
	lastValue string

	focusedField int

	// UI state
	width        int
	height       int
	synchronized bool
	quitting     bool
	linkLost     bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type monitorTickMsg time.Time

type frameBatchMsg struct {
	frames    []*gnss.Frame
	sync      *syncMsg
	dropped   uint64
	discarded uint64
}

type linkLostMsg struct {
	err error
}

type reconnectedMsg struct {
	info string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(links *linkManager, info string) monitorModel {
	// Initialize text input for the configuration key
	ti := textinput.New()
	ti.Placeholder = "CFG-UART1-BAUDRATE"
	ti.CharLimit = 40
	ti.Width = 28

	// Initialize type list with empty items
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	typeList := list.New([]list.Item{}, delegate, 30, 10)
	typeList.Title = "Messages"
	typeList.SetShowStatusBar(false)
	typeList.SetShowHelp(false)
	typeList.SetFilteringEnabled(false)

	return monitorModel{
		links:        links,
		info:         info,
		types:        make(map[string]*msgType),
		typeList:     typeList,
		stats:        gnss.NewStatistics(),
		keyInput:     ti,
		focusedField: focusTypeList,
		width:        80,
		height:       24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return monitorTickCmd()
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.typeList, _ = m.typeList.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case monitorTickMsg:
		m.stats.CalculateRates()
		if m.pending != nil && time.Since(m.pending.sent) > valGetTimeoutSeconds*time.Second {
			m.addLogEntry(fmt.Sprintf("No response reading %v", m.pending.key), true)
			m.pending = nil
		}
		return m, monitorTickCmd()

	case frameBatchMsg:
		if msg.sync != nil {
			m.synchronized = true
			if msg.sync.skipped > 0 {
				m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d bytes", msg.sync.skipped), false)
			} else {
				m.addLogEntry("Synchronized", false)
			}
		}
		for _, f := range msg.frames {
			m.processFrame(f)
		}
		m.stats.DroppedBytes = msg.dropped
		m.stats.DiscardedBytes = msg.discarded
		m.updateTypeList()

	case linkLostMsg:
		m.linkLost = true
		m.pending = nil
		m.addLogEntry(fmt.Sprintf("Connection lost (%v) - reconnecting...", msg.err), true)

	case reconnectedMsg:
		m.linkLost = false
		m.synchronized = false
		m.info = msg.info
		m.addLogEntry("Reconnected", false)
	}

	// Update child components
	var cmd tea.Cmd
	if m.focusedField == focusKeyInput {
		m.keyInput, cmd = m.keyInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.focusedField == focusTypeList {
		m.typeList, cmd = m.typeList.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m monitorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "q":
		if m.focusedField != focusKeyInput {
			m.quitting = true
			return m, tea.Quit
		}

	case "tab":
		return m.cycleFocus(1), nil

	case "shift+tab":
		return m.cycleFocus(-1), nil

	case "enter":
		if m.focusedField != focusTypeList {
			return m.sendValGet(), nil
		}

	case "left", "right":
		if m.focusedField == focusButton {
			delta := 1
			if msg.String() == "left" {
				delta = -1
			}
			n := len(monitorLayers)
			m.layerIdx = (m.layerIdx + delta + n) % n
			return m, nil
		}
	}

	// Pass through to focused component
	var cmd tea.Cmd
	switch m.focusedField {
	case focusKeyInput:
		m.keyInput, cmd = m.keyInput.Update(msg)
	case focusTypeList:
		m.typeList, cmd = m.typeList.Update(msg)
	}
	return m, cmd
}

func (m monitorModel) cycleFocus(delta int) monitorModel {
	m.focusedField = (m.focusedField + delta + focusButton + 1) % (focusButton + 1)

	if m.focusedField == focusKeyInput {
		m.keyInput.Focus()
	} else {
		m.keyInput.Blur()
	}
	return m
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	// Header
	s.WriteString(titleStyle.Render("SEXTANT MONITOR"))
	s.WriteString(" ")
	connStatus := m.info
	if m.linkLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=switch", connStatus)))
	s.WriteString("\n\n")

	if !m.synchronized && len(m.types) == 0 {
		s.WriteString(warningStyle.Render("Waiting for data..."))
		s.WriteString("\n\n")
	}

	// Layout: left panel (message types) | right panel (details)
	leftWidth := 30
	rightWidth := m.width - leftWidth - 6

	listStyle := monitorBoxStyle.Width(leftWidth)
	if m.focusedField == focusTypeList {
		listStyle = monitorFocusedBoxStyle.Width(leftWidth)
	}
	typePanel := listStyle.Render(m.typeList.View())

	detailPanel := monitorBoxStyle.Width(rightWidth).Render(m.renderDetailPanel())

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, typePanel, " ", detailPanel))
	s.WriteString("\n\n")

	s.WriteString(m.renderStatisticsBar())
	s.WriteString("\n\n")

	s.WriteString(m.renderEventLog())

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

var (
	monitorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	monitorFocusedBoxStyle = monitorBoxStyle.
				BorderForeground(lipgloss.Color("12"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("12")).
			Padding(0, 2)

	focusedButtonStyle = buttonStyle.
				Background(lipgloss.Color("10"))
)

func (m monitorModel) renderDetailPanel() string {
	var s strings.Builder

	// Latest frame of the selected type
	if t := m.selectedType(); t != nil && t.last != nil {
		s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Latest:"), t.name))
		s.WriteString(strings.TrimRight(gnss.FormatFrame(t.last), "\n"))
	} else {
		s.WriteString(headerStyle.Render("No message selected"))
	}
	s.WriteString("\n\n")

	// Configuration read
	s.WriteString(statsLabelStyle.Render("Key: "))
	if m.focusedField == focusKeyInput {
		s.WriteString(m.keyInput.View())
	} else {
		val := m.keyInput.Value()
		if val == "" {
			val = m.keyInput.Placeholder
		}
		s.WriteString(fmt.Sprintf("[%s]", val))
	}
	s.WriteString("\n\n")

	btnText := fmt.Sprintf("[ Read %v ]", monitorLayers[m.layerIdx])
	if m.focusedField == focusButton {
		s.WriteString(focusedButtonStyle.Render(btnText))
		s.WriteString(headerStyle.Render("  ←/→ layer"))
	} else {
		s.WriteString(buttonStyle.Render(btnText))
	}

	switch {
	case m.pending != nil:
		s.WriteString("\n")
		s.WriteString(warningStyle.Render(fmt.Sprintf("Reading %v...", m.pending.key)))
	case m.lastValue != "":
		s.WriteString("\n")
		s.WriteString(statsValueStyle.Render(m.lastValue))
	}

	return s.String()
}

func (m monitorModel) renderStatisticsBar() string {
	var validPercent, errorPercent float64
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(m.stats.Errors()) * 100.0 / float64(m.stats.TotalFrames)
	}

	errText := statsValueStyle.Render("0.0%")
	if errorPercent > 0 {
		errText = errorStyle.Render(fmt.Sprintf("%.1f%%", errorPercent))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%.1f%%", validPercent)),
		statsLabelStyle.Render("Errors:"), errText,
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f fr/s", m.stats.FrameRate)),
		statsLabelStyle.Render("Dropped:"), statsValueStyle.Render(fmt.Sprintf("%d B", m.stats.DroppedBytes)),
	)

	return monitorBoxStyle.Width(m.width - 4).Render(content)
}

func (m monitorModel) renderEventLog() string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := 8
	if len(m.eventLog) < logHeight {
		logHeight = len(m.eventLog)
	}
	startIdx := len(m.eventLog) - logHeight

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for _, entry := range m.eventLog[startIdx:] {
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
		}
	}

	return monitorBoxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *monitorModel) processFrame(f *gnss.Frame) {
	verrs := gnss.ValidateFrame(f)
	m.stats.Update(f, verrs)

	t := m.types[f.Name()]
	if t == nil {
		t = &msgType{name: f.Name(), protocol: f.Protocol}
		m.types[f.Name()] = t
	}
	t.count++
	t.last = f

	if f.Bad() {
		t.bad++
		if m.synchronized {
			m.addLogEntry(fmt.Sprintf("BAD FRAME %s: %v", f.Name(), f.Err()), true)
		}
		return
	}

	for _, verr := range verrs {
		m.addLogEntry(fmt.Sprintf("%s: %s", f.Name(), verr.Message), true)
	}

	switch v := f.Message.(type) {
	case *ubx.ValGetResponse:
		if m.pending == nil {
			return
		}
		m.lastValue = describeResponse(v)
		m.addLogEntry(fmt.Sprintf("VALGET %s", m.lastValue), false)
		m.pending = nil

	case *ubx.Nak:
		if v.Rejected == ubx.CfgValGet && m.pending != nil {
			m.addLogEntry(fmt.Sprintf("Receiver rejected read of %v from %v", m.pending.key, m.pending.layer), true)
			m.lastValue = ""
			m.pending = nil
			return
		}
		m.addLogEntry(fmt.Sprintf("Receiver rejected %v", v.Rejected), true)
	}
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func (m monitorModel) sendValGet() monitorModel {
	if m.linkLost {
		m.addLogEntry("Cannot send request: connection lost", true)
		return m
	}

	name := strings.TrimSpace(m.keyInput.Value())
	if name == "" {
		name = m.keyInput.Placeholder
	}
	key, ok := ubx.LookupKey(name)
	if !ok {
		m.addLogEntry(fmt.Sprintf("Unknown key: %s", name), true)
		return m
	}

	layer := monitorLayers[m.layerIdx]
	get := ubx.NewValGet(layer)
	if err := get.Add(key); err != nil {
		m.addLogEntry(fmt.Sprintf("Invalid request: %v", err), true)
		return m
	}
	if err := m.links.send(get.Bytes()); err != nil {
		m.addLogEntry(fmt.Sprintf("Failed to send request: %v", err), true)
		return m
	}

	m.pending = &pendingRead{key: key, layer: layer, sent: time.Now()}
	m.addLogEntry(fmt.Sprintf("Reading %v from %v", key, layer), false)
	return m
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	if len(m.eventLog) > monitorLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-monitorLogEntries:]
	}
}

func (m monitorModel) selectedType() *msgType {
	item, ok := m.typeList.SelectedItem().(msgType)
	if !ok {
		return nil
	}
	return m.types[item.name]
}

// updateTypeList refreshes the list items, sorted by name.
func (m *monitorModel) updateTypeList() {
	names := make([]string, 0, len(m.types))
	for name := range m.types {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]list.Item, len(names))
	for i, name := range names {
		items[i] = *m.types[name]
	}
	m.typeList.SetItems(items)
}

func (m *monitorModel) updateListSize() {
	// Adjust list size based on terminal size
	listHeight := m.height / 3
	if listHeight < 5 {
		listHeight = 5
	}
	m.typeList.SetSize(28, listHeight)
}
