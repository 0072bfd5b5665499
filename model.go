package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Configuration constants
const (
	// RefreshInterval is how often the port status auto-refreshes
	RefreshInterval = 2 * time.Second

	// StatusDisplayDuration is how long status messages are shown
	StatusDisplayDuration = 5 * time.Second

	// DefaultCommandWidth is the minimum width for the command column
	DefaultCommandWidth = 50

	// MinTerminalWidth is the threshold for adjusting command width
	MinTerminalWidth = 60

	// ColumnWidthOffset accounts for the other columns
	ColumnWidthOffset = 50
)

// confirmAction is the pending destructive action awaiting a y/n.
type confirmAction int

const (
	confirmNone confirmAction = iota
	confirmRestart
	confirmKill
)

// Model represents the TUI state
type Model struct {
	cfg      Config
	launcher *Launcher
	norm     *Normalizer

	processes []Process // listeners on the target port
	cursor    int
	lastError error

	busy    bool // a restart/kill/format sequence is running
	phase   string
	spinner spinner.Model

	confirming confirmAction

	statusMessage string
	statusIsError bool
	statusTime    time.Time

	width  int
	height int
}

// NewModel creates the TUI model. The TUI renders its own status, so the
// workers get a no-op logger.
func NewModel(cfg Config) Model {
	log := zap.NewNop()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		cfg:      cfg,
		launcher: NewLauncher(cfg, log),
		norm:     NewNormalizer(cfg.AppDir, cfg.Formatter, log),
		spinner:  sp,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refreshPorts(),
		m.tickCmd(),
		m.spinner.Tick,
	)
}

// tickCmd schedules the next periodic rescan
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// delayedRescan refreshes shortly after a kill/restart so lsof reflects
// reality again
func (m Model) delayedRescan() tea.Cmd {
	return tea.Tick(rescanDelay, func(time.Time) tea.Msg {
		return rescanMsg{}
	})
}

// refreshPorts fetches the listeners currently on the target port
func (m Model) refreshPorts() tea.Cmd {
	scanner := m.launcher.scanner
	port := m.cfg.Port
	return func() tea.Msg {
		processes, err := scanner.ListeningOn(port)
		return refreshMsg{processes: processes, err: err}
	}
}

// restartApp runs the full restart sequence off the UI goroutine
func (m Model) restartApp() tea.Cmd {
	launcher := m.launcher
	return func() tea.Msg {
		report, err := launcher.Restart(context.Background())
		return restartDoneMsg{report: report, err: err}
	}
}

// killListeners terminates the current listeners without relaunching
func (m Model) killListeners() tea.Cmd {
	launcher := m.launcher
	return func() tea.Msg {
		return killDoneMsg{outcomes: launcher.KillOnly()}
	}
}

// formatSources runs the per-file formatter pass
func (m Model) formatSources(mode FormatMode) tea.Cmd {
	norm := m.norm
	return func() tea.Msg {
		ctx := context.Background()
		tool := norm.EnsureTool(ctx)
		results, err := norm.FormatAll(ctx, mode)
		return formatDoneMsg{tool: tool, results: results, err: err}
	}
}

func (m *Model) setStatus(msg string, isError bool) {
	m.statusMessage = msg
	m.statusIsError = isError
	m.statusTime = time.Now()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Confirmation prompt takes over the keyboard
		if m.confirming != confirmNone {
			switch {
			case key.Matches(msg, keys.Confirm):
				action := m.confirming
				m.confirming = confirmNone
				m.busy = true
				if action == confirmRestart {
					m.phase = "restarting"
					return m, m.restartApp()
				}
				m.phase = "killing"
				return m, m.killListeners()
			case key.Matches(msg, keys.Cancel):
				m.confirming = confirmNone
				m.setStatus("Cancelled", false)
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.processes)-1 {
				m.cursor++
			}

		case key.Matches(msg, keys.Restart):
			if m.busy {
				return m, nil
			}
			m.confirming = confirmRestart

		case key.Matches(msg, keys.Kill):
			if m.busy || len(m.processes) == 0 {
				return m, nil
			}
			m.confirming = confirmKill

		case key.Matches(msg, keys.Format):
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.phase = "formatting"
			return m, m.formatSources(ModeStaged)

		case key.Matches(msg, keys.Check):
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.phase = "checking"
			return m, m.formatSources(ModeCheck)

		case key.Matches(msg, keys.Refresh):
			m.setStatus("Refreshing...", false)
			return m, m.refreshPorts()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		// Hold the rescan while a prompt is up or a sequence runs
		if m.confirming != confirmNone || m.busy {
			return m, m.tickCmd()
		}
		return m, tea.Batch(m.refreshPorts(), m.tickCmd())

	case rescanMsg:
		return m, m.refreshPorts()

	case refreshMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.setStatus("Error scanning port", true)
			return m, nil
		}
		m.lastError = nil
		m.processes = msg.processes
		if m.cursor >= len(m.processes) {
			m.cursor = max(0, len(m.processes)-1)
		}

	case restartDoneMsg:
		m.busy = false
		m.phase = ""
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Launch failed: %v", msg.err), true)
			return m, m.delayedRescan()
		}
		r := msg.report
		status := fmt.Sprintf("Relaunched (pid %d)", r.AppPID)
		if len(r.Kills) > 0 {
			status += ", " + summarizeKills(r.Kills)
		}
		if r.WaitErr != nil {
			status += ", port never freed"
		}
		m.setStatus(status, false)
		return m, m.delayedRescan()

	case killDoneMsg:
		m.busy = false
		m.phase = ""
		m.setStatus(capitalize(summarizeKills(msg.outcomes)), false)
		return m, m.delayedRescan()

	case formatDoneMsg:
		m.busy = false
		m.phase = ""
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Format failed: %v", msg.err), true)
			return m, nil
		}
		status := summarizeResults(msg.results)
		if msg.tool == ToolInstalled {
			status = "installed " + m.cfg.Formatter.Tool + "; " + status
		} else if msg.tool == ToolMissing {
			status = m.cfg.Formatter.Tool + " missing; " + status
		}
		m.setStatus(capitalize(status), msg.tool == ToolMissing)
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("devloop :%d", m.cfg.Port)))
	sb.WriteByte('\n')

	// Port status line
	if len(m.processes) == 0 {
		sb.WriteString(portFreeStyle.Render(fmt.Sprintf("port %d is free", m.cfg.Port)))
	} else {
		sb.WriteString(portBusyStyle.Render(fmt.Sprintf("port %d is in use", m.cfg.Port)))
	}
	sb.WriteString("\n\n")

	if len(m.processes) == 0 {
		sb.WriteString(emptyStyle.Render("No process is listening; 'r' launches the app"))
		sb.WriteByte('\n')
	} else {
		header := fmt.Sprintf("%-10s %-8s %-15s %-12s %s",
			"PORT", "PID", "PROCESS", "USER", "COMMAND")
		sb.WriteString(headerStyle.Render(header))
		sb.WriteByte('\n')

		for i, p := range m.processes {
			cmd := formatCommand(p.Command)
			maxCmdLen := DefaultCommandWidth
			if m.width > MinTerminalWidth {
				maxCmdLen = m.width - ColumnWidthOffset
			}
			if len(cmd) > maxCmdLen {
				cmd = cmd[:maxCmdLen-3] + "..."
			}

			line := fmt.Sprintf("%s %s %s %s %s",
				portStyle.Render(formatPorts(p.Ports, 10)),
				pidStyle.Render(fmt.Sprintf("%-8d", p.PID)),
				nameStyle.Render(truncate(p.Name, 15)),
				userStyle.Render(truncate(p.User, 12)),
				commandStyle.Render(cmd),
			)

			if i == m.cursor {
				sb.WriteString(selectedStyle.Render(line))
			} else {
				sb.WriteString(normalStyle.Render(line))
			}
			sb.WriteByte('\n')
		}
	}

	// Busy indicator
	if m.busy {
		sb.WriteString(busyStyle.Render(m.spinner.View() + " " + m.phase + "..."))
		sb.WriteByte('\n')
	}

	// Confirmation prompt
	switch m.confirming {
	case confirmRestart:
		if len(m.processes) == 0 {
			sb.WriteString(confirmStyle.Render(fmt.Sprintf("\nLaunch the app on port %d? (y/n)", m.cfg.Port)))
		} else {
			sb.WriteString(confirmStyle.Render(fmt.Sprintf("\nKill %d listener(s) and relaunch? (y/n)", len(m.processes))))
		}
	case confirmKill:
		sb.WriteString(confirmStyle.Render(fmt.Sprintf("\nKill %d listener(s) on port %d? (y/n)", len(m.processes), m.cfg.Port)))
	}

	// Status message
	if m.statusMessage != "" && time.Since(m.statusTime) < StatusDisplayDuration {
		sb.WriteByte('\n')
		if m.statusIsError {
			sb.WriteString(errorStyle.Render(m.statusMessage))
		} else {
			sb.WriteString(statusStyle.Render(m.statusMessage))
		}
	}
	if m.lastError != nil {
		sb.WriteByte('\n')
		sb.WriteString(errorStyle.Render("scan error: " + m.lastError.Error()))
	}

	help := "r restart • x kill • f format • c check • R refresh • q quit"
	sb.WriteByte('\n')
	sb.WriteString(helpStyle.Render(help))

	return sb.String()
}
