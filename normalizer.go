package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"
)

// CommandRunner executes external commands. Injectable for tests.
type CommandRunner interface {
	// Run executes the command and discards its output.
	Run(ctx context.Context, name string, args ...string) error
	// Output executes the command and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ToolStatus tags the outcome of the formatter-presence check.
type ToolStatus int

const (
	// ToolPresent: already installed.
	ToolPresent ToolStatus = iota
	// ToolInstalled: was missing, install succeeded.
	ToolInstalled
	// ToolMissing: was missing and the install failed. Formatting still
	// proceeds; each invocation then fails on its own.
	ToolMissing
)

func (s ToolStatus) String() string {
	switch s {
	case ToolPresent:
		return "present"
	case ToolInstalled:
		return "installed"
	default:
		return "missing"
	}
}

// FormatMode selects how file rewrites happen.
type FormatMode int

const (
	// ModeInPlace hands --in-place to the tool: destructive, no backup.
	ModeInPlace FormatMode = iota
	// ModeStaged captures the formatted output and writes the file only when
	// the bytes changed. Idempotent and safe to retry.
	ModeStaged
	// ModeCheck reports which files would change without writing anything.
	ModeCheck
)

// FileOutcome tags the per-file result.
type FileOutcome int

const (
	// FileFormatted: the tool ran and (for staged mode) the file changed.
	FileFormatted FileOutcome = iota
	// FileUnchanged: staged/check mode found nothing to rewrite.
	FileUnchanged
	// FileFailed: the tool invocation errored.
	FileFailed
)

func (o FileOutcome) String() string {
	switch o {
	case FileFormatted:
		return "formatted"
	case FileUnchanged:
		return "unchanged"
	default:
		return "failed"
	}
}

// FileResult is the reported result for one source file.
type FileResult struct {
	Path    string
	Outcome FileOutcome
	Err     error
}

// dirSkipList holds directory names never included in discovery or watching.
var dirSkipList = map[string]bool{
	"__pycache__": true,
	".git":        true,
	"venv":        true,
	"env":         true,
}

// Normalizer runs the external auto-formatter over the app's source files.
type Normalizer struct {
	cfg FormatterConfig
	dir string
	run CommandRunner
	log *zap.Logger
}

// NewNormalizer returns a Normalizer rooted at dir.
func NewNormalizer(dir string, cfg FormatterConfig, log *zap.Logger) *Normalizer {
	return &Normalizer{cfg: cfg, dir: dir, run: execRunner{}, log: log}
}

// EnsureTool checks that the formatter package is installed and installs it
// when absent. Install failure is tagged, never fatal.
func (n *Normalizer) EnsureTool(ctx context.Context) ToolStatus {
	if _, err := n.run.Output(ctx, n.cfg.Pip, "show", n.cfg.Tool); err == nil {
		return ToolPresent
	}

	n.log.Info("formatter not installed, installing", zap.String("tool", n.cfg.Tool))
	if err := n.run.Run(ctx, n.cfg.Pip, "install", n.cfg.Tool); err != nil {
		n.log.Warn("formatter install failed", zap.String("tool", n.cfg.Tool), zap.Error(err))
		return ToolMissing
	}
	return ToolInstalled
}

// Discover returns the source files to format: the glob in the app directory
// followed by each configured subdirectory that exists. Missing subdirectories
// are skipped silently, as are skip-listed names.
func (n *Normalizer) Discover() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(n.dir, n.cfg.Glob))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", n.cfg.Glob, err)
	}

	for _, sub := range n.cfg.Subdirs {
		if dirSkipList[sub] {
			continue
		}
		subdir := filepath.Join(n.dir, sub)
		if info, err := os.Stat(subdir); err != nil || !info.IsDir() {
			continue
		}
		subFiles, err := filepath.Glob(filepath.Join(subdir, n.cfg.Glob))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", sub, err)
		}
		files = append(files, subFiles...)
	}

	return files, nil
}

// FormatBatch runs one aggregate tool invocation covering every discovered
// file. Always in-place.
func (n *Normalizer) FormatBatch(ctx context.Context) ([]string, error) {
	files, err := n.Discover()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	args := append(append([]string{}, n.cfg.Args...), files...)
	if err := n.run.Run(ctx, n.cfg.Tool, args...); err != nil {
		return files, fmt.Errorf("%s: %w", n.cfg.Tool, err)
	}
	return files, nil
}

// FormatAll runs the tool once per discovered file in discovery order,
// logging each file before processing it.
func (n *Normalizer) FormatAll(ctx context.Context, mode FormatMode) ([]FileResult, error) {
	files, err := n.Discover()
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		n.log.Info("formatting", zap.String("file", f))
		results = append(results, n.FormatFile(ctx, f, mode))
	}
	return results, nil
}

// FormatFile formats a single file according to mode.
func (n *Normalizer) FormatFile(ctx context.Context, path string, mode FormatMode) FileResult {
	if mode == ModeInPlace {
		args := append(append([]string{}, n.cfg.Args...), path)
		if err := n.run.Run(ctx, n.cfg.Tool, args...); err != nil {
			return FileResult{Path: path, Outcome: FileFailed, Err: fmt.Errorf("%s %s: %w", n.cfg.Tool, path, err)}
		}
		return FileResult{Path: path, Outcome: FileFormatted}
	}
	return n.formatStaged(ctx, path, mode == ModeCheck)
}

// formatStaged runs the tool without --in-place, compares its output against
// the file, and (unless checkOnly) writes only when the bytes differ.
func (n *Normalizer) formatStaged(ctx context.Context, path string, checkOnly bool) FileResult {
	original, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Outcome: FileFailed, Err: err}
	}

	args := append(stripInPlace(n.cfg.Args), path)
	formatted, err := n.run.Output(ctx, n.cfg.Tool, args...)
	if err != nil {
		return FileResult{Path: path, Outcome: FileFailed, Err: fmt.Errorf("%s %s: %w", n.cfg.Tool, path, err)}
	}

	if bytes.Equal(original, formatted) {
		return FileResult{Path: path, Outcome: FileUnchanged}
	}
	if checkOnly {
		return FileResult{Path: path, Outcome: FileFormatted}
	}

	info, err := os.Stat(path)
	if err != nil {
		return FileResult{Path: path, Outcome: FileFailed, Err: err}
	}
	if err := os.WriteFile(path, formatted, info.Mode().Perm()); err != nil {
		return FileResult{Path: path, Outcome: FileFailed, Err: err}
	}
	return FileResult{Path: path, Outcome: FileFormatted}
}

// stripInPlace removes the --in-place flag; staged mode reads the formatted
// source from stdout instead.
func stripInPlace(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--in-place" || a == "-i" {
			continue
		}
		out = append(out, a)
	}
	return out
}
