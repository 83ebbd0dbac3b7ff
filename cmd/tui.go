// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/sextant/pkg/gnss"
	"github.com/Thermoquad/sextant/pkg/nmea"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for warnings
}

// Latest navigation solution
type fixData struct {
	received    time.Time
	fixTime     time.Time
	hasPosition bool
	lat, lon    float64
	altitude    float64
	hasAltitude bool
	posMode     byte
	numSV       int
	navMode     int
	pdop        float64
	hdop        float64
	vdop        float64
	hasDOP      bool
}

// TUI model
type model struct {
	session       *session
	statsInterval int
	showAll       bool
	stats         *gnss.Statistics
	errorLog      []errorLogEntry
	maxLogEntries int
	logView       viewport.Model
	synchronized  bool
	skippedBytes  uint64
	width         int
	height        int
	quitting      bool
	lastFix       *fixData
}

// Messages
type tickMsg time.Time
type syncMsg struct {
	skipped uint64
}
type linkErrMsg struct {
	err error
}

// formatUptime formats a duration in milliseconds to human-friendly string
func formatUptime(ms uint64) string {
	if ms == 0 {
		return "0 seconds"
	}

	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n uint64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialModel(s *session, statsInterval int, showAll bool) model {
	return model{
		session:       s,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         gnss.NewStatistics(),
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 500,
		logView:       viewport.New(76, 8),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLog()

	case tickMsg:
		// Update statistics rates
		m.stats.UpdateDevice(m.session.dev)
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.skippedBytes = msg.skipped
		if msg.skipped > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d bytes", msg.skipped), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case linkErrMsg:
		m.addLogEntry(fmt.Sprintf("LINK FAILED: %v", msg.err), true)

	case frameMsg:
		f := msg.frame
		m.stats.Update(f, msg.validationErrors)

		switch {
		case f.Bad():
			m.addLogEntry(fmt.Sprintf("%s %s: %v", f.Protocol, f.Name(), f.Err()), true)
		case len(msg.validationErrors) > 0:
			for _, err := range msg.validationErrors {
				m.addLogEntry(fmt.Sprintf("%s: %s", f.Name(), err.Message), true)
			}
		default:
			m.parseFix(f)
			if nak, ok := f.Message.(*ubx.Nak); ok {
				m.addLogEntry(fmt.Sprintf("ACK-NAK for %v", nak.Rejected), true)
			} else if m.showAll {
				m.addLogEntry(fmt.Sprintf("%s (valid)", f.Name()), false)
			}
		}
	}

	// Scroll keys go to the event log
	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	// Keep only last N entries
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}

	follow := m.logView.AtBottom()
	m.logView.SetContent(m.renderLog())
	if follow {
		m.logView.GotoBottom()
	}
}

func (m *model) resizeLog() {
	m.logView.Width = m.width - 8
	h := m.height - 19 // Reserve space for header, stats and fix
	if h < 5 {
		h = 5
	}
	m.logView.Height = h
	m.logView.SetContent(m.renderLog())
}

// parseFix folds position, DOP and time sentences into the latest solution
func (m *model) parseFix(f *gnss.Frame) {
	if f.Sentence == nil {
		return
	}
	if m.lastFix == nil {
		m.lastFix = &fixData{}
	}
	fix := m.lastFix
	fix.received = f.Received()
	if t := f.FixTime(); !t.IsZero() {
		fix.fixTime = t
	}

	switch s := f.Sentence.(type) {
	case *nmea.GLL:
		fix.hasPosition = s.HasPosition
		fix.lat, fix.lon = s.Lat, s.Lon
		fix.posMode = s.PosMode
	case *nmea.GNS:
		fix.hasPosition = s.HasPosition
		fix.lat, fix.lon = s.Lat, s.Lon
		fix.altitude, fix.hasAltitude = s.Altitude, s.HasPosition
		fix.numSV = s.NumSV
		fix.hdop = s.HDOP
	case *nmea.GSA:
		fix.navMode = s.NavMode
		fix.pdop, fix.hdop, fix.vdop = s.PDOP, s.HDOP, s.VDOP
		fix.hasDOP = true
	}
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))
)

func (m model) renderLog() string {
	if len(m.errorLog) == 0 {
		return headerStyle.Render("  (no events yet)")
	}

	var b strings.Builder
	for _, entry := range m.errorLog {
		timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
		if entry.isError {
			b.WriteString(fmt.Sprintf("%s %s\n",
				headerStyle.Render(timestamp),
				errorStyle.Render("✗ "+entry.message),
			))
		} else {
			b.WriteString(fmt.Sprintf("%s %s\n",
				headerStyle.Render(timestamp),
				warningStyle.Render("ℹ "+entry.message),
			))
		}
	}
	return b.String()
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	boxStyle := monitorBoxStyle

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("SEXTANT - ERROR DETECTION"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | ↑/↓ scroll | Press 'q' to quit",
		m.session.info, func() string {
			if m.showAll {
				return "All frames"
			}
			return "Errors only"
		}())))
	s.WriteString("\n\n")

	// Sync status
	if !m.synchronized {
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
		s.WriteString("\n\n")
	} else {
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.skippedBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d bytes)", m.skippedBytes)))
		}
		s.WriteString("\n\n")
	}

	// Statistics
	var validPercent, errorPercent float64
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(m.stats.Errors()) * 100.0 / float64(m.stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d (NMEA %d, UBX %d)", m.stats.TotalFrames, m.stats.NMEAFrames, m.stats.UBXFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidFrames, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.Errors(), errorPercent)),
	))

	if m.stats.ChecksumErrors > 0 || m.stats.DecodeErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Checksum Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.ChecksumErrors)),
			statsLabelStyle.Render("Decode Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.DecodeErrors)),
		))
	}

	if m.stats.AnomalousValues > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d, %s: %d)\n",
			statsLabelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.AnomalousValues)),
			headerStyle.Render("position"), m.stats.InvalidPosition,
			headerStyle.Render("fix"), m.stats.InvalidFix,
			headerStyle.Render("DOP"), m.stats.InvalidDOP,
			headerStyle.Render("date"), m.stats.InvalidDate,
		))
	}

	if m.stats.DroppedBytes > 0 || m.stats.RxResets > 0 || m.stats.Naks > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Dropped:"), warningStyle.Render(fmt.Sprintf("%d bytes", m.stats.DroppedBytes)),
			statsLabelStyle.Render("Resets:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.RxResets)),
			statsLabelStyle.Render("NAKs:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.Naks)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
		statsLabelStyle.Render("Running:"), statsValueStyle.Render(formatUptime(uint64(time.Since(m.stats.StartTime).Milliseconds()))),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Fix section (only shown once a position or DOP sentence arrived)
	if m.lastFix != nil {
		s.WriteString(statsLabelStyle.Render("Latest Fix:"))
		s.WriteString("\n")

		fix := m.lastFix
		fixContent := strings.Builder{}

		if fix.hasPosition {
			fixContent.WriteString(fmt.Sprintf("%s %s",
				statsLabelStyle.Render("Position:"), statsValueStyle.Render(formatLatLon(fix.lat, fix.lon))))
			if fix.hasAltitude {
				fixContent.WriteString(fmt.Sprintf("   %s %s",
					statsLabelStyle.Render("Alt:"), statsValueStyle.Render(fmt.Sprintf("%.1f m", fix.altitude))))
			}
			fixContent.WriteString("\n")
		} else {
			fixContent.WriteString(warningStyle.Render("No position") + "\n")
		}

		if fix.hasDOP {
			fixContent.WriteString(fmt.Sprintf("%s %s   %s %.2f / %.2f / %.2f   %s %d\n",
				statsLabelStyle.Render("Fix:"), statsValueStyle.Render(navModeName(fix.navMode)),
				statsLabelStyle.Render("PDOP/HDOP/VDOP:"), fix.pdop, fix.hdop, fix.vdop,
				statsLabelStyle.Render("Satellites:"), fix.numSV,
			))
		}

		if !fix.fixTime.IsZero() {
			fixContent.WriteString(fmt.Sprintf("%s %s   %s %s",
				statsLabelStyle.Render("UTC:"), statsValueStyle.Render(fix.fixTime.Format("2006-01-02 15:04:05.000")),
				statsLabelStyle.Render("Age:"), headerStyle.Render(time.Since(fix.received).Round(100*time.Millisecond).String()),
			))
		} else {
			fixContent.WriteString(headerStyle.Render("UTC: waiting for ZDA"))
		}

		s.WriteString(boxStyle.Render(fixContent.String()))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(m.width - 4).Render(m.logView.View()))

	return s.String()
}

func formatLatLon(lat, lon float64) string {
	ns, ew := 'N', 'E'
	if lat < 0 {
		ns, lat = 'S', -lat
	}
	if lon < 0 {
		ew, lon = 'W', -lon
	}
	return fmt.Sprintf("%.6f°%c %.6f°%c", lat, ns, lon, ew)
}

func navModeName(mode int) string {
	switch mode {
	case 1:
		return "NO FIX"
	case 2:
		return "2D"
	case 3:
		return "3D"
	}
	return fmt.Sprintf("UNKNOWN(%d)", mode)
}
