package main

import (
	"context"
	"errors"
	"io"
	"net"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

type fakeScanner struct {
	procs []Process
	err   error
}

func (f *fakeScanner) ListeningOn(port int) ([]Process, error) {
	return f.procs, f.err
}

type fakeKiller struct {
	outcome KillResult
	killed  []int
}

func (f *fakeKiller) Kill(pid int) KillOutcome {
	f.killed = append(f.killed, pid)
	return KillOutcome{PID: pid, Result: f.outcome}
}

type fakeStarter struct {
	dir  string
	argv []string
	pid  int
	err  error
}

func (f *fakeStarter) start(dir string, argv []string, stdout, stderr io.Writer) (int, error) {
	f.dir = dir
	f.argv = argv
	return f.pid, f.err
}

// freePort grabs an ephemeral port that is free at the time of the call.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func testLauncher(t *testing.T, scanner PortScanner, killer ProcessKiller, starter *fakeStarter) *Launcher {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Port = freePort(t)
	cfg.AppDir = t.TempDir()
	cfg.PortWaitSecs = 1
	cfg.PollIntervalMS = 10
	cfg.finish()

	return &Launcher{
		cfg:     cfg,
		scanner: scanner,
		killer:  killer,
		start:   starter.start,
		log:     zap.NewNop(),
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
}

func TestRestartNoListener(t *testing.T) {
	killer := &fakeKiller{outcome: KillOK}
	starter := &fakeStarter{pid: 4242}
	l := testLauncher(t, &fakeScanner{}, killer, starter)

	report, err := l.Restart(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(killer.killed) != 0 {
		t.Errorf("expected zero kills, got %v", killer.killed)
	}
	if !report.Launched || report.AppPID != 4242 {
		t.Errorf("expected launch with pid 4242, got %+v", report)
	}
}

func TestRestartOneListener(t *testing.T) {
	scanner := &fakeScanner{procs: []Process{{PID: 123, Ports: []int{8502}, Name: "python3"}}}
	killer := &fakeKiller{outcome: KillOK}
	starter := &fakeStarter{pid: 4242}
	l := testLauncher(t, scanner, killer, starter)

	report, err := l.Restart(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(killer.killed, []int{123}) {
		t.Errorf("expected exactly one kill for pid 123, got %v", killer.killed)
	}
	if report.Killed() != 1 {
		t.Errorf("expected 1 successful kill in report, got %d", report.Killed())
	}
	if !report.Launched {
		t.Error("expected launch after kill")
	}
}

func TestRestartLaunchArgsPreserved(t *testing.T) {
	starter := &fakeStarter{pid: 1}
	l := testLauncher(t, &fakeScanner{}, &fakeKiller{}, starter)

	// Force the compatibility-critical default command
	l.cfg.AppCommand = defaultAppCommand("0.0.0.0", 8502)

	if _, err := l.Restart(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"streamlit", "run", "streamlit_app.py",
		"--server.address", "0.0.0.0",
		"--server.port", "8502",
	}
	if !reflect.DeepEqual(starter.argv, want) {
		t.Errorf("launch argv = %v, want %v", starter.argv, want)
	}
	if starter.dir != l.cfg.AppDir {
		t.Errorf("launch dir = %q, want %q", starter.dir, l.cfg.AppDir)
	}
}

func TestRestartKillFailureStillLaunches(t *testing.T) {
	scanner := &fakeScanner{procs: []Process{{PID: 123, Ports: []int{8502}}}}
	killer := &fakeKiller{outcome: KillFailed}
	starter := &fakeStarter{pid: 4242}
	l := testLauncher(t, scanner, killer, starter)

	report, err := l.Restart(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Launched {
		t.Error("launch must proceed despite kill failure")
	}
	if report.Killed() != 0 {
		t.Errorf("expected 0 successful kills, got %d", report.Killed())
	}
}

func TestRestartScanFailureStillLaunches(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("lsof exploded")}
	starter := &fakeStarter{pid: 4242}
	l := testLauncher(t, scanner, &fakeKiller{}, starter)

	report, err := l.Restart(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ScanErr == nil {
		t.Error("expected scan error in report")
	}
	if !report.Launched {
		t.Error("launch must proceed despite scan failure")
	}
}

func TestRestartLaunchFailure(t *testing.T) {
	starter := &fakeStarter{err: errors.New("no such binary")}
	l := testLauncher(t, &fakeScanner{}, &fakeKiller{}, starter)

	report, err := l.Restart(context.Background())
	if err == nil {
		t.Fatal("expected launch error")
	}
	if report.Launched {
		t.Error("report must not claim a launch that failed")
	}
}

func TestKillOnly(t *testing.T) {
	scanner := &fakeScanner{procs: []Process{{PID: 1}, {PID: 2}}}
	killer := &fakeKiller{outcome: KillOK}
	starter := &fakeStarter{}
	l := testLauncher(t, scanner, killer, starter)

	outcomes := l.KillOnly()
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if !reflect.DeepEqual(killer.killed, []int{1, 2}) {
		t.Errorf("killed = %v, want [1 2]", killer.killed)
	}
	if starter.argv != nil {
		t.Error("KillOnly must not launch anything")
	}
}
