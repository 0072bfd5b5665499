package main

import (
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Process represents a process listening on one or more TCP ports.
type Process struct {
	PID     int
	Ports   []int
	Name    string
	User    string
	Command string
}

// LowestPort returns the lowest port this process listens on (ports are sorted).
func (p Process) LowestPort() int {
	if len(p.Ports) == 0 {
		return 0
	}
	return p.Ports[0]
}

// PortScanner discovers processes in LISTEN state on a TCP port.
type PortScanner interface {
	ListeningOn(port int) ([]Process, error)
}

// LsofScanner finds listeners via lsof. The command lookup is injectable so
// the parser can be tested without a live process table.
type LsofScanner struct {
	lookupCommand func(pid int) string
}

// NewLsofScanner returns a scanner backed by lsof.
func NewLsofScanner() *LsofScanner {
	return &LsofScanner{lookupCommand: fullCommand}
}

// ListeningOn returns the processes holding port open in LISTEN state.
// Zero results is a normal outcome, not an error.
func (s *LsofScanner) ListeningOn(port int) ([]Process, error) {
	// -iTCP:<port> restricts to the one port we manage
	// -sTCP:LISTEN restricts to server sockets
	// -n / -P skip hostname and port-name resolution
	cmd := exec.Command("lsof", "-iTCP:"+strconv.Itoa(port), "-sTCP:LISTEN", "-n", "-P")
	output, err := cmd.Output()
	if err != nil {
		// lsof exits 1 when nothing matches
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("lsof: %w", err)
	}

	procs, err := parseLsofOutput(string(output), s.lookupCommand)
	if err != nil {
		return nil, err
	}

	// lsof may report additional ports for a PID that also listens elsewhere;
	// keep only processes that actually hold the target port.
	matched := procs[:0]
	for _, p := range procs {
		for _, pp := range p.Ports {
			if pp == port {
				matched = append(matched, p)
				break
			}
		}
	}
	return matched, nil
}

// parseLsofOutput parses lsof output into Process values, grouping ports by
// PID. lookup resolves a PID to its full command line.
func parseLsofOutput(output string, lookup func(pid int) string) ([]Process, error) {
	lines := strings.Split(output, "\n")
	byPID := make(map[int]*Process)
	// Dedup repeated interface entries (IPv4/IPv6, *: vs addr:) per process.
	// Keyed by PID and port together: two processes can hold the same port on
	// different addresses, and each of them must be reported.
	seen := make(map[[2]int]bool)

	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue // header or blank
		}

		fields := strings.Fields(line)
		if len(fields) < 9 {
			continue
		}

		// lsof columns: COMMAND PID USER FD TYPE DEVICE SIZE/OFF NODE NAME
		name := fields[0]
		user := fields[2]
		nameField := fields[len(fields)-1]
		if nameField == "(LISTEN)" && len(fields) >= 10 {
			nameField = fields[len(fields)-2]
		}

		pid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}

		port := parsePort(nameField)
		if port == 0 || seen[[2]int{pid, port}] {
			continue
		}
		seen[[2]int{pid, port}] = true

		if proc, ok := byPID[pid]; ok {
			proc.Ports = append(proc.Ports, port)
			continue
		}
		byPID[pid] = &Process{
			PID:     pid,
			Ports:   []int{port},
			Name:    name,
			User:    user,
			Command: lookup(pid),
		}
	}

	procs := make([]Process, 0, len(byPID))
	for _, proc := range byPID {
		sort.Ints(proc.Ports)
		procs = append(procs, *proc)
	}
	sort.Slice(procs, func(i, j int) bool { return procs[i].PID < procs[j].PID })

	return procs, nil
}

// parsePort extracts the port from a lsof NAME field such as "*:8502",
// "127.0.0.1:8502" or "[::1]:8502".
func parsePort(nameField string) int {
	idx := strings.LastIndex(nameField, ":")
	if idx < 0 || idx == len(nameField)-1 {
		return 0
	}
	port, err := strconv.Atoi(nameField[idx+1:])
	if err != nil {
		return 0
	}
	return port
}

// fullCommand returns the full command line for a PID, empty when unavailable.
func fullCommand(pid int) string {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	cmdline, err := p.Cmdline()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cmdline)
}

// KillResult tags the outcome of one termination request.
type KillResult int

const (
	// KillOK: the process was terminated, or exited during the attempt.
	KillOK KillResult = iota
	// KillNotFound: no such process; treated as already stopped.
	KillNotFound
	// KillFailed: the process survived or the signal could not be delivered.
	KillFailed
)

// String returns the tag used in logs and the TUI.
func (r KillResult) String() string {
	switch r {
	case KillOK:
		return "killed"
	case KillNotFound:
		return "not-found"
	default:
		return "failed"
	}
}

// KillOutcome is the reported result of one kill request.
type KillOutcome struct {
	PID    int
	Result KillResult
	Err    error
}

// ProcessKiller terminates a process by PID.
type ProcessKiller interface {
	Kill(pid int) KillOutcome
}

// GracefulKiller sends TERM, waits up to the configured window for the
// process to exit, then escalates to KILL.
type GracefulKiller struct {
	Wait time.Duration
}

// Kill terminates pid. A PID that is already gone reports KillNotFound.
func (k *GracefulKiller) Kill(pid int) KillOutcome {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return KillOutcome{PID: pid, Result: KillNotFound, Err: err}
	}

	if err := p.Terminate(); err != nil {
		// TERM can fail because the process exited between lookup and signal.
		if running, _ := p.IsRunning(); !running {
			return KillOutcome{PID: pid, Result: KillNotFound, Err: err}
		}
		return KillOutcome{PID: pid, Result: KillFailed, Err: fmt.Errorf("terminate pid %d: %w", pid, err)}
	}

	deadline := time.Now().Add(k.Wait)
	for time.Now().Before(deadline) {
		if running, _ := p.IsRunning(); !running {
			return KillOutcome{PID: pid, Result: KillOK}
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := p.Kill(); err != nil {
		if running, _ := p.IsRunning(); !running {
			return KillOutcome{PID: pid, Result: KillOK}
		}
		return KillOutcome{PID: pid, Result: KillFailed, Err: fmt.Errorf("kill pid %d: %w", pid, err)}
	}
	return KillOutcome{PID: pid, Result: KillOK}
}
