package main

import "testing"

func TestFormatCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// streamlit launches
		{
			name:     "streamlit run",
			input:    "/usr/bin/python3 /usr/local/bin/streamlit run streamlit_app.py --server.address 0.0.0.0 --server.port 8502",
			expected: "streamlit (streamlit_app)",
		},
		{
			name:     "streamlit run from venv",
			input:    "/home/dev/apps/dashboard/.venv/bin/streamlit run pages_app.py",
			expected: "streamlit (pages_app)",
		},
		{
			name:     "bare streamlit without run",
			input:    "/usr/local/bin/streamlit hello",
			expected: "streamlit",
		},

		// python -m
		{
			name:     "python module",
			input:    "/usr/bin/python3 -m http.server 8000",
			expected: "http.server",
		},
		{
			name:     "python module with project dir",
			input:    "/usr/bin/python3 -m flask --app /home/dev/src/shop/app.py run",
			expected: "flask (shop)",
		},

		// virtualenv binaries
		{
			name:     "venv binary",
			input:    "/home/dev/src/shop/venv/bin/gunicorn app:server",
			expected: "gunicorn (shop)",
		},
		{
			name:     "dot venv binary without project",
			input:    "/opt/.venv/bin/uvicorn main:app",
			expected: "uvicorn",
		},

		// conda environments
		{
			name:     "conda env python",
			input:    "/home/dev/miniconda3/envs/web/bin/python app.py",
			expected: "python (web)",
		},

		// project directories
		{
			name:     "project dir binary",
			input:    "/home/dev/Code/my-api/bin/server --port 3000",
			expected: "server (my-api)",
		},

		// system binaries
		{
			name:     "system binary",
			input:    "/usr/sbin/nginx -g daemon off;",
			expected: "nginx",
		},

		// fallback: script runners show the script
		{
			name:     "python script fallback",
			input:    "python3 manage.py runserver",
			expected: "python3 (manage)",
		},
		{
			name:     "plain executable fallback",
			input:    "redis-server *:6379",
			expected: "redis-server",
		},
		{
			name:     "empty command",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatCommand(tt.input); got != tt.expected {
				t.Errorf("formatCommand(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRegisterFormatter(t *testing.T) {
	original := registeredFormatters
	defer func() { registeredFormatters = original }()

	RegisterFormatter(&testFormatter{})

	if got := formatCommand("anything at all"); got != "custom" {
		t.Errorf("custom formatter not applied, got %q", got)
	}
}

type testFormatter struct{}

func (f *testFormatter) Name() string              { return "test" }
func (f *testFormatter) CanFormat(cmd string) bool { return true }
func (f *testFormatter) Format(cmd string) string  { return "custom" }

func TestExtractProjectName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/home/dev/src/shop/venv/bin/python", "shop"},
		{"/home/dev/Code/my-api/server", "my-api"},
		{"/usr/bin/python3", ""},
	}

	for _, tt := range tests {
		if got := extractProjectName(tt.input); got != tt.expected {
			t.Errorf("extractProjectName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
