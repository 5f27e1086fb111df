package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"journeyagent/internal/runctl"
)

var watchAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live-view a running journeyctl serve instance's event feed",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", "localhost:8088", "host:port of a running journeyctl serve instance")
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	thoughtStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type watchModel struct {
	vp       viewport.Model
	lines    []string
	conn     *websocket.Conn
	renderer *glamour.TermRenderer
	status   string
	err      error
}

type eventMsg runctl.Event
type connErrMsg struct{ err error }

func runWatch(cmd *cobra.Command, args []string) error {
	u := url.URL{Scheme: "ws", Host: watchAddr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", u.String(), err)
	}
	defer conn.Close()

	renderer, _ := glamour.NewTermRenderer(glamour.WithAutoStyle())

	m := watchModel{
		vp:       viewport.New(100, 24),
		conn:     conn,
		renderer: renderer,
		status:   "idle",
	}

	p := tea.NewProgram(m)
	_, err = p.Run()
	return err
}

func (m watchModel) Init() tea.Cmd {
	return listenForEvent(m.conn)
}

func listenForEvent(conn *websocket.Conn) tea.Cmd {
	return func() tea.Msg {
		var ev runctl.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return connErrMsg{err: err}
		}
		return eventMsg(ev)
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vp.Width = msg.Width
		m.vp.Height = msg.Height - 3
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	case eventMsg:
		m.appendLine(runctl.Event(msg))
		return m, listenForEvent(m.conn)
	case connErrMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *watchModel) appendLine(ev runctl.Event) {
	var line string
	switch ev.Kind {
	case runctl.EventStatus:
		m.status = fmt.Sprintf("%v", ev.Payload["status"])
		line = statusStyle.Render(fmt.Sprintf("status: %v", ev.Payload["status"]))
	case runctl.EventThought:
		text := fmt.Sprintf("%v", ev.Payload["message"])
		if m.renderer != nil {
			if rendered, err := m.renderer.Render(text); err == nil {
				text = strings.TrimRight(rendered, "\n")
			}
		}
		line = thoughtStyle.Render("thought: " + text)
	case runctl.EventStep:
		line = fmt.Sprintf("step %v: %v target=%v success=%v", ev.Payload["id"], ev.Payload["action"], ev.Payload["targetId"], ev.Payload["success"])
	case runctl.EventError:
		line = errorStyle.Render(fmt.Sprintf("error: %v", ev.Payload["message"]))
	case runctl.EventTraceSaved, runctl.EventReportReady:
		data, _ := json.Marshal(ev.Payload)
		line = fmt.Sprintf("%s: %s", ev.Kind, string(data))
	default:
		return
	}
	m.lines = append(m.lines, line)
	m.vp.SetContent(strings.Join(m.lines, "\n"))
	m.vp.GotoBottom()
}

func (m watchModel) View() string {
	header := headerStyle.Render(fmt.Sprintf("journeyctl watch — %s", m.status))
	if m.err != nil {
		return fmt.Sprintf("%s\nconnection closed: %v\n", header, m.err)
	}
	return fmt.Sprintf("%s\n%s\n", header, m.vp.View())
}
