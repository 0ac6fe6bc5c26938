// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/truma-inetbox/inetbox-emu/internal/appio"
	"github.com/truma-inetbox/inetbox-emu/internal/config"
	"github.com/truma-inetbox/inetbox-emu/pkg/inetbox"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Live status TUI for the emulated iNet box",
	Long: `Status opens the configured bus connection, runs the protocol loop, and
renders decoded display/control status, the commit state machine, and the
CP Plus online state in a terminal UI.

Press 's' to queue a setting change (name=value), 'q' or Ctrl+C to quit.`,
	RunE: runStatusTUI,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type statusModel struct {
	requests chan<- appio.SetRequest

	display      map[string]interface{}
	control      map[string]interface{}
	updateStatus string
	cpPlusStatus string

	log           []statusLogEntry
	maxLogEntries int

	input   textinput.Model
	editing bool

	width, height int
	quitting      bool
}

type statusUpdateMsg appio.Update

func initialStatusModel(requests chan<- appio.SetRequest) statusModel {
	ti := textinput.New()
	ti.Placeholder = "target_temp_room=22"
	ti.CharLimit = 64
	return statusModel{
		requests:      requests,
		input:         ti,
		maxLogEntries: 50,
		width:         80,
		height:        24,
	}
}

func (m statusModel) Init() tea.Cmd {
	return tea.EnterAltScreen
}

func (m *statusModel) addLogEntry(message string, isError bool) {
	m.log = append(m.log, statusLogEntry{timestamp: time.Now(), message: message, isError: isError})
	if len(m.log) > m.maxLogEntries {
		m.log = m.log[len(m.log)-m.maxLogEntries:]
	}
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if m.editing {
			switch msg.String() {
			case "esc":
				m.editing = false
				m.input.SetValue("")
				m.input.Blur()
			case "enter":
				m.applyInput()
				m.editing = false
				m.input.SetValue("")
				m.input.Blur()
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "s":
			m.editing = true
			m.input.Focus()
			return m, textinput.Blink
		}

	case statusUpdateMsg:
		if msg.Err != nil {
			m.addLogEntry(msg.Err.Error(), true)
		}
		if msg.Display != nil {
			m.display = msg.Display
		}
		if msg.Control != nil {
			m.control = msg.Control
		}
		m.updateStatus = string(msg.UpdateStatus)
		m.cpPlusStatus = msg.CPPlusStatus.String()
	}

	return m, nil
}

// applyInput parses the "key=value" text in the input box and queues a
// setting change for the protocol loop to validate and debounce.
func (m *statusModel) applyInput() {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return
	}
	key, value, found := strings.Cut(text, "=")
	if !found {
		m.addLogEntry(fmt.Sprintf("malformed setting %q, want key=value", text), true)
		return
	}
	select {
	case m.requests <- appio.SetRequest{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)}:
		m.addLogEntry(fmt.Sprintf("queued %s = %s", key, value), false)
	default:
		m.addLogEntry("request queue full, dropped setting", true)
	}
}

func (m statusModel) View() string {
	if m.quitting {
		return "Bye.\n"
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Background(lipgloss.Color("235")).Padding(0, 1)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)

	var b strings.Builder
	b.WriteString(titleStyle.Render("iNet box emulator - status") + "\n\n")

	b.WriteString(boxStyle.Render(renderView("display_status", m.display, labelStyle, valueStyle)) + "\n")
	b.WriteString(boxStyle.Render(renderView("control_status", m.control, labelStyle, valueStyle)) + "\n")

	stateStyle := valueStyle
	if m.updateStatus == "waiting_for_cp_plus" {
		stateStyle = errorStyle
	}
	b.WriteString(fmt.Sprintf("%s %s   %s %s\n\n",
		labelStyle.Render("update_status:"), stateStyle.Render(m.updateStatus),
		labelStyle.Render("cp_plus_status:"), valueStyle.Render(m.cpPlusStatus)))

	if m.editing {
		b.WriteString("set " + m.input.View() + "\n")
	} else {
		b.WriteString(labelStyle.Render("press 's' to set a value, 'q' to quit") + "\n")
	}

	b.WriteString("\n" + renderLog(m.log, errorStyle, labelStyle))
	return b.String()
}

func renderView(title string, view map[string]interface{}, labelStyle, valueStyle lipgloss.Style) string {
	if view == nil {
		return labelStyle.Render(title+": ") + "(no data yet)"
	}
	keys := make([]string, 0, len(view))
	for k := range view {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(labelStyle.Render(title) + "\n")
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("  %s %v\n", labelStyle.Render(k+":"), valueStyle.Render(fmt.Sprintf("%v", view[k]))))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderLog(entries []statusLogEntry, errorStyle, labelStyle lipgloss.Style) string {
	var b strings.Builder
	start := 0
	if len(entries) > 10 {
		start = len(entries) - 10
	}
	for _, e := range entries[start:] {
		line := fmt.Sprintf("[%s] %s\n", e.timestamp.Format("15:04:05"), e.message)
		if e.isError {
			b.WriteString(errorStyle.Render(line))
		} else {
			b.WriteString(labelStyle.Render(line))
		}
	}
	return b.String()
}

func runStatusTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, logLevel)
	if err != nil {
		return err
	}

	conn, _, err := openBusConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	requests := make(chan appio.SetRequest, 8)
	updates := make(chan appio.Update, 16)

	loop := appio.New(conn, appio.Config{
		NAD:                cfg.NAD,
		Identity:           inetbox.Identity{SupplierID: cfg.SupplierID, FunctionID: cfg.FunctionID},
		Debounce:           cfg.UpdatesBufferTime,
		DefaultElPower:     cfg.DefaultElPower,
		DefaultHeatingMode: cfg.DefaultHeatingMode,
	}, requests, updates, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := initialStatusModel(requests)
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		if err := loop.Run(ctx); err != nil {
			p.Send(statusUpdateMsg(appio.Update{Err: fmt.Errorf("protocol loop stopped: %w", err)}))
		}
	}()

	go func() {
		for u := range updates {
			p.Send(statusUpdateMsg(u))
		}
	}()

	_, runErr := p.Run()
	cancel()
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}
