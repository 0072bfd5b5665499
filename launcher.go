package main

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// ProcessStarter launches the app process and returns its PID.
// The process is not waited on; once started it is on its own.
type ProcessStarter func(dir string, argv []string, stdout, stderr io.Writer) (int, error)

// startProcess is the real ProcessStarter.
func startProcess(dir string, argv []string, stdout, stderr io.Writer) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("empty app command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", argv[0], err)
	}

	pid := cmd.Process.Pid
	// Detach: the app outlives this tool.
	_ = cmd.Process.Release()
	return pid, nil
}

// RestartReport collects the tagged outcome of each restart step. Every step
// runs regardless of earlier failures; the report says what happened rather
// than suppressing it.
type RestartReport struct {
	Found    []Process     // listeners discovered on the port
	ScanErr  error         // discovery failure, if any
	Kills    []KillOutcome // one entry per discovered listener
	WaitErr  error         // poll-until-free timeout, if any
	AppPID   int           // PID of the launched process
	Launched bool
}

// Killed returns how many kill requests succeeded.
func (r *RestartReport) Killed() int {
	n := 0
	for _, k := range r.Kills {
		if k.Result == KillOK {
			n++
		}
	}
	return n
}

// Launcher implements the restart sequence: discover listeners on the port,
// terminate them, wait for the port to free up, relaunch the app.
type Launcher struct {
	cfg     Config
	scanner PortScanner
	killer  ProcessKiller
	start   ProcessStarter
	log     *zap.Logger

	// Stdout/Stderr of the launched app. Defaults to discarding.
	Stdout io.Writer
	Stderr io.Writer
}

// NewLauncher wires a Launcher with the real scanner, killer and starter.
func NewLauncher(cfg Config, log *zap.Logger) *Launcher {
	return &Launcher{
		cfg:     cfg,
		scanner: NewLsofScanner(),
		killer:  &GracefulKiller{Wait: cfg.KillWait()},
		start:   startProcess,
		log:     log,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
}

// Restart runs the full sequence. The launch step always runs; kill and wait
// failures are recorded in the report, not fatal. The returned error is
// non-nil only when the launch itself failed.
func (l *Launcher) Restart(ctx context.Context) (*RestartReport, error) {
	report := &RestartReport{}

	report.Found, report.ScanErr = l.scanner.ListeningOn(l.cfg.Port)
	if report.ScanErr != nil {
		l.log.Warn("port scan failed, launching anyway",
			zap.Int("port", l.cfg.Port), zap.Error(report.ScanErr))
	}

	for _, p := range report.Found {
		outcome := l.killer.Kill(p.PID)
		report.Kills = append(report.Kills, outcome)
		switch outcome.Result {
		case KillOK:
			l.log.Info("killed listener", zap.Int("pid", p.PID), zap.String("name", p.Name))
		case KillNotFound:
			l.log.Info("listener already gone", zap.Int("pid", p.PID))
		default:
			l.log.Warn("kill failed", zap.Int("pid", p.PID), zap.Error(outcome.Err))
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.PortWait())
	defer cancel()
	if err := waitPortFree(waitCtx, l.cfg.Port, l.cfg.PollInterval()); err != nil {
		// Launch anyway; the app will report the bind conflict itself.
		report.WaitErr = err
		l.log.Warn("port did not free up in time", zap.Int("port", l.cfg.Port), zap.Error(err))
	}

	pid, err := l.start(l.cfg.AppDir, l.cfg.AppCommand, l.Stdout, l.Stderr)
	if err != nil {
		return report, err
	}
	report.AppPID = pid
	report.Launched = true
	l.log.Info("app launched",
		zap.Int("pid", pid),
		zap.Strings("argv", l.cfg.AppCommand),
		zap.String("dir", l.cfg.AppDir))

	return report, nil
}

// KillOnly terminates the current listeners without relaunching.
func (l *Launcher) KillOnly() []KillOutcome {
	procs, err := l.scanner.ListeningOn(l.cfg.Port)
	if err != nil {
		l.log.Warn("port scan failed", zap.Int("port", l.cfg.Port), zap.Error(err))
		return nil
	}
	outcomes := make([]KillOutcome, 0, len(procs))
	for _, p := range procs {
		outcomes = append(outcomes, l.killer.Kill(p.PID))
	}
	return outcomes
}

// grace period between sequences in the TUI so lsof reflects reality again
const rescanDelay = 250 * time.Millisecond
