// Package main implements devloop, a small workflow tool for a Streamlit-style
// web app checkout.
//
// devloop replaces a pair of throwaway shell scripts with a maintained tool:
//
//   - Restart the app: find the process listening on the app port, terminate
//     it, wait until the port can actually be bound again, then relaunch the
//     app with its exact original arguments.
//   - Normalize sources: run autopep8 (installed on demand via pip) over the
//     checkout's *.py files, including the pages/ subdirectory when present.
//
// Running devloop without arguments opens an interactive dashboard built on
// the Bubbletea framework with the Elm architecture pattern. The restart,
// format and watch subcommands do the same work headlessly.
//
// # Architecture
//
//   - main.go: cobra command tree and logger setup
//   - config.go: devloop.yaml loading with script-compatible defaults
//   - ports.go: listener discovery on the app port (PortScanner) and
//     termination with tagged outcomes (ProcessKiller)
//   - launcher.go: the kill / wait-until-free / relaunch sequence
//   - waitport.go: bounded poll replacing the original fixed sleep
//   - normalizer.go: formatter discovery, on-demand install, per-file and
//     aggregate invocation, staged write-if-changed mode
//   - watch.go: fsnotify-driven re-formatting on file change
//   - model.go, messages.go, keys.go, styles.go: the TUI
//   - formatter.go: condensed command display (CommandFormatter interface)
//
// # Extensibility
//
// Custom command display formatters can be registered with RegisterFormatter:
//
//	RegisterFormatter(&MyCustomFormatter{})
//
// The PortScanner, ProcessKiller and CommandRunner interfaces allow custom
// implementations and easier testing through dependency injection.
package main
