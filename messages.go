package main

import "time"

// TUI messages for the Elm architecture

// tickMsg triggers the periodic port rescan
type tickMsg time.Time

// rescanMsg asks for one extra refresh shortly after a kill or restart
type rescanMsg struct{}

// refreshMsg carries the listeners currently on the target port
type refreshMsg struct {
	processes []Process
	err       error
}

// restartDoneMsg reports a finished restart sequence
type restartDoneMsg struct {
	report *RestartReport
	err    error
}

// killDoneMsg reports a finished kill-only pass
type killDoneMsg struct {
	outcomes []KillOutcome
}

// formatDoneMsg reports a finished formatter pass
type formatDoneMsg struct {
	tool    ToolStatus
	results []FileResult
	err     error
}
