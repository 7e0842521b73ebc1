// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/julianpas/poark.rosserial/pkg/rosserial"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI with live link statistics",
	Long: `Monitor a rosserial link in an interactive terminal UI.

Shows live statistics (frame rate, error counters), a per-topic activity
table, and a scrolling event log of decoded system frames. 'q' quits,
arrow keys scroll the event log.

Supports serial, TCP, and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// Styles
var (
	monitorTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	monitorPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")).
				Padding(0, 1)

	monitorErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196"))

	monitorOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))
)

// topicActivity tracks per-topic frame counts for the table.
type topicActivity struct {
	count    uint64
	lastSize int
	lastSeen time.Time
}

type monitorModel struct {
	connInfo string
	stats    *rosserial.Statistics
	topics   map[uint16]*topicActivity
	events   []string
	viewport viewport.Model
	width    int
	height   int
	ready    bool
	quitting bool
}

// Messages
type monitorTickMsg time.Time
type monitorBatchMsg struct {
	frames []*rosserial.Frame
}
type monitorClosedMsg struct{}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func initialMonitorModel(connInfo string, stats *rosserial.Statistics) monitorModel {
	return monitorModel{
		connInfo: connInfo,
		stats:    stats,
		topics:   make(map[uint16]*topicActivity),
		width:    80,
		height:   24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(monitorTickCmd(), tea.EnterAltScreen)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logHeight := m.height - 14
		if logHeight < 3 {
			logHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(m.width-4, logHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width - 4
			m.viewport.Height = logHeight
		}
		m.refreshLog()

	case monitorTickMsg:
		m.stats.CalculateRates()
		return m, monitorTickCmd()

	case monitorBatchMsg:
		for _, frame := range msg.frames {
			act := m.topics[frame.TopicID()]
			if act == nil {
				act = &topicActivity{}
				m.topics[frame.TopicID()] = act
			}
			act.count++
			act.lastSize = len(frame.Payload())
			act.lastSeen = frame.Timestamp()

			if frame.IsReserved() {
				m.addEvent(strings.TrimRight(rosserial.FormatFrame(frame), "\n"))
			}
			for _, verr := range rosserial.ValidateFrame(frame) {
				m.addEvent(monitorErrorStyle.Render("!! " + verr.Message))
			}
		}

	case monitorClosedMsg:
		m.addEvent(monitorErrorStyle.Render("connection closed"))
	}

	return m, nil
}

func (m *monitorModel) addEvent(line string) {
	m.events = append(m.events, line)
	if len(m.events) > 200 {
		m.events = m.events[len(m.events)-200:]
	}
	m.refreshLog()
}

func (m *monitorModel) refreshLog() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.events, "\n"))
	m.viewport.GotoBottom()
}

func (m monitorModel) View() string {
	if m.quitting {
		return ""
	}

	title := monitorTitleStyle.Render("rosserial monitor — " + m.connInfo)

	stats := fmt.Sprintf(
		"Frames %d  Bytes %d  Rate %.1f/s\nState %d  Size %d  Checksum %d  Malformed %d  Unknown %d",
		m.stats.ValidFrames, m.stats.BytesConsumed, m.stats.FrameRate,
		m.stats.StateErrors, m.stats.InvalidSizeErrors, m.stats.ChecksumErrors,
		m.stats.MalformedMessageErrors, m.stats.UnknownTopicErrors,
	)
	if m.stats.ErrorCount() == 0 {
		stats += "  " + monitorOKStyle.Render("clean")
	} else {
		stats += "  " + monitorErrorStyle.Render(fmt.Sprintf("%d errors", m.stats.ErrorCount()))
	}

	var ids []uint16
	for id := range m.topics {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var topicLines []string
	for _, id := range ids {
		act := m.topics[id]
		topicLines = append(topicLines, fmt.Sprintf("%-16s id=%-5d frames=%-8d last=%db @ %s",
			rosserial.FormatTopicID(id), id, act.count, act.lastSize,
			act.lastSeen.Format("15:04:05")))
	}
	if len(topicLines) == 0 {
		topicLines = []string{"(no frames yet)"}
	}

	sections := []string{
		title,
		monitorPanelStyle.Render(stats),
		monitorPanelStyle.Render(strings.Join(topicLines, "\n")),
	}
	if m.ready {
		sections = append(sections, monitorPanelStyle.Render(m.viewport.View()))
	}
	sections = append(sections, "q: quit  ↑/↓: scroll log")

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	stats := rosserial.NewStatistics()
	m := initialMonitorModel(connInfo, stats)
	p := tea.NewProgram(m, tea.WithAltScreen())

	done := make(chan struct{})

	// Reader goroutine decodes frames and batches updates to the TUI at a
	// fixed rate so a busy link doesn't flood the event loop.
	go func() {
		decoder := rosserial.NewDecoder(stats)
		buf := make([]byte, 512)
		batch := make(chan *rosserial.Frame, 256)

		go func() {
			ticker := time.NewTicker(50 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					var frames []*rosserial.Frame
				drain:
					for {
						select {
						case f := <-batch:
							frames = append(frames, f)
						default:
							break drain
						}
					}
					if len(frames) > 0 {
						p.Send(monitorBatchMsg{frames: frames})
					}
				}
			}
		}()

		for {
			n, err := conn.Read(buf)
			if err != nil {
				select {
				case <-done:
				default:
					p.Send(monitorClosedMsg{})
				}
				return
			}
			for i := 0; i < n; i++ {
				if frame := decoder.DecodeByte(buf[i]); frame != nil {
					select {
					case batch <- frame.Clone():
					default:
					}
				}
			}
		}
	}()

	_, err = p.Run()
	close(done)
	return err
}
