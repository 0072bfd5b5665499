package main

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	venvBinRegex  = regexp.MustCompile(`/(?:\.?venv|env)/bin/([^/\s]+)`)
	condaEnvRegex = regexp.MustCompile(`/(?:miniconda3|anaconda3|conda)/envs/([^/]+)/`)
)

// CommandFormatter condenses a raw command line into something readable for
// the TUI's process column. Implement it to handle additional launchers.
type CommandFormatter interface {
	// Name identifies the formatter in debug output.
	Name() string

	// CanFormat reports whether this formatter applies to the command.
	CanFormat(cmd string) bool

	// Format returns the condensed command string, empty when it cannot help.
	Format(cmd string) string
}

// formatCommand tries each registered formatter in priority order and falls
// back to the bare executable name.
func formatCommand(cmd string) string {
	if cmd == "" {
		return ""
	}
	for _, f := range registeredFormatters {
		if f.CanFormat(cmd) {
			if result := f.Format(cmd); result != "" {
				return result
			}
		}
	}
	return fallbackFormat(cmd)
}

// registeredFormatters is ordered; earlier entries win.
var registeredFormatters = []CommandFormatter{
	&StreamlitFormatter{},
	&PythonModuleFormatter{},
	&VenvFormatter{},
	&CondaFormatter{},
	&ProjectFormatter{},
	&SystemBinaryFormatter{},
}

// RegisterFormatter prepends a custom formatter, giving it highest priority.
func RegisterFormatter(f CommandFormatter) {
	registeredFormatters = append([]CommandFormatter{f}, registeredFormatters...)
}

// StreamlitFormatter condenses streamlit launch commands to the app script.
// Example: "/usr/bin/python /usr/local/bin/streamlit run streamlit_app.py
// --server.port 8502" -> "streamlit (streamlit_app)".
type StreamlitFormatter struct{}

func (f *StreamlitFormatter) Name() string { return "streamlit" }

func (f *StreamlitFormatter) CanFormat(cmd string) bool {
	return strings.Contains(cmd, "streamlit")
}

func (f *StreamlitFormatter) Format(cmd string) string {
	parts := strings.Fields(cmd)
	for i, part := range parts {
		if filepath.Base(part) != "streamlit" || i+1 >= len(parts) {
			continue
		}
		if parts[i+1] != "run" || i+2 >= len(parts) {
			return "streamlit"
		}
		script := strings.TrimSuffix(filepath.Base(parts[i+2]), ".py")
		if script == "" {
			return "streamlit"
		}
		return "streamlit (" + script + ")"
	}
	return ""
}

// PythonModuleFormatter handles "python -m <module> ..." invocations.
type PythonModuleFormatter struct{}

func (f *PythonModuleFormatter) Name() string { return "python-module" }

func (f *PythonModuleFormatter) CanFormat(cmd string) bool {
	return strings.Contains(cmd, " -m ")
}

func (f *PythonModuleFormatter) Format(cmd string) string {
	parts := strings.Fields(cmd)
	for i, part := range parts {
		if part != "-m" || i+1 >= len(parts) {
			continue
		}
		module := parts[i+1]
		if module == "" || strings.HasPrefix(module, "-") {
			return ""
		}
		if project := extractProjectName(cmd); project != "" {
			return module + " (" + project + ")"
		}
		return module
	}
	return ""
}

// VenvFormatter handles executables running out of a virtualenv bin dir.
type VenvFormatter struct{}

func (f *VenvFormatter) Name() string { return "venv" }

func (f *VenvFormatter) CanFormat(cmd string) bool {
	return venvBinRegex.MatchString(cmd)
}

func (f *VenvFormatter) Format(cmd string) string {
	matches := venvBinRegex.FindStringSubmatch(cmd)
	if len(matches) < 2 {
		return ""
	}
	binName := matches[1]
	if project := extractProjectName(cmd); project != "" {
		return binName + " (" + project + ")"
	}
	return binName
}

// CondaFormatter handles executables from a conda environment.
// Example: /home/x/miniconda3/envs/web/bin/python -> python (web).
type CondaFormatter struct{}

func (f *CondaFormatter) Name() string { return "conda" }

func (f *CondaFormatter) CanFormat(cmd string) bool {
	return condaEnvRegex.MatchString(cmd)
}

func (f *CondaFormatter) Format(cmd string) string {
	matches := condaEnvRegex.FindStringSubmatch(cmd)
	if len(matches) < 2 {
		return ""
	}
	executable := extractExecutable(cmd)
	if executable == "" {
		return ""
	}
	return executable + " (" + matches[1] + ")"
}

// ProjectFormatter handles commands running from common project directories.
type ProjectFormatter struct{}

func (f *ProjectFormatter) Name() string { return "project" }

// projectDirs are directory markers used to extract a project name from a path.
var projectDirs = []string{
	"/Code/",
	"/Projects/",
	"/Developer/",
	"/src/",
	"/repos/",
	"/git/",
	"/workspace/",
	"/apps/",
}

func (f *ProjectFormatter) CanFormat(cmd string) bool {
	for _, dir := range projectDirs {
		if strings.Contains(cmd, dir) {
			return true
		}
	}
	return false
}

func (f *ProjectFormatter) Format(cmd string) string {
	executable := extractExecutable(cmd)
	project := extractProjectName(cmd)
	if project != "" && executable != "" {
		return executable + " (" + project + ")"
	}
	return ""
}

// SystemBinaryFormatter reduces system binaries to their base name.
type SystemBinaryFormatter struct{}

func (f *SystemBinaryFormatter) Name() string { return "system" }

var systemPaths = []string{
	"/usr/bin/",
	"/usr/sbin/",
	"/usr/local/bin/",
	"/bin/",
	"/sbin/",
}

func (f *SystemBinaryFormatter) CanFormat(cmd string) bool {
	for _, path := range systemPaths {
		if strings.HasPrefix(cmd, path) {
			return true
		}
	}
	return false
}

func (f *SystemBinaryFormatter) Format(cmd string) string {
	return extractExecutable(cmd)
}

// extractExecutable returns the base name of the command's executable.
func extractExecutable(cmd string) string {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return ""
	}
	return filepath.Base(parts[0])
}

// extractProjectName finds a project name from common directory patterns.
func extractProjectName(path string) string {
	for _, dir := range projectDirs {
		if idx := strings.Index(path, dir); idx != -1 {
			remaining := path[idx+len(dir):]
			if name, _, _ := strings.Cut(remaining, "/"); name != "" {
				return name
			}
		}
	}
	return ""
}

// fallbackFormat is used when no formatter matches. For script runners it
// appends the script being run.
func fallbackFormat(cmd string) string {
	executable := extractExecutable(cmd)
	if executable == "" {
		if len(cmd) > 30 {
			return cmd[:27] + "..."
		}
		return cmd
	}

	parts := strings.Fields(cmd)
	if len(parts) > 1 && scriptRunners[executable] {
		arg := parts[1]
		if !strings.HasPrefix(arg, "-") {
			argBase := filepath.Base(arg)
			argBase = strings.TrimSuffix(argBase, ".py")
			argBase = strings.TrimSuffix(argBase, ".js")
			if argBase != "" && argBase != executable {
				return executable + " (" + argBase + ")"
			}
		}
	}

	return executable
}

// scriptRunners are executables whose first argument is usually a script.
var scriptRunners = map[string]bool{
	"python":  true,
	"python3": true,
	"node":    true,
	"ruby":    true,
	"sh":      true,
	"bash":    true,
}
