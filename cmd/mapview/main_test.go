package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:gochecknoglobals // test binary path is set in TestMain
var testBinaryPath string

// TestMain builds the CLI binary once for the entire package and reuses it.
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "mapview-test-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1) //nolint:gocritic // Mkdir failed, nothing to cleanup
	}
	defer os.RemoveAll(dir)

	bin := filepath.Join(dir, "mapview-test")
	cmd := exec.Command("go", "build", "-o", bin, ".")
	if out, err := cmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build test binary: %v\nOutput: %s\n", err, string(out))
		os.Exit(1) //nolint:gocritic // Binary failed, nothing to cleanup
	}
	testBinaryPath = bin

	code := m.Run()
	os.Exit(code)
}

// newCmd runs the binary with HOME pointed at a scratch directory and no MAPVIEW_ overrides.
func newCmd(t *testing.T, home string, args ...string) *exec.Cmd {
	t.Helper()
	if testBinaryPath == "" {
		t.Fatalf("test binary not built")
	}
	cmd := exec.Command(testBinaryPath, args...)
	cmd.Dir = home
	env := []string{"HOME=" + home}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "MAPVIEW_") || strings.HasPrefix(kv, "HOME=") {
			continue
		}
		env = append(env, kv)
	}
	cmd.Env = env
	return cmd
}

func run(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	cmd := newCmd(t, home, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

func TestCLI_HelpOutput(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "root help",
			args:     []string{"--help"},
			contains: []string{"mapview", "view", "places", "navigate", "--config", "--verbose", "--log-format"},
		},
		{
			name:     "places help",
			args:     []string{"places", "--help"},
			contains: []string{"add", "remove", "reset", "list"},
		},
		{
			name:     "navigate help",
			args:     []string{"navigate", "--help"},
			contains: []string{"--lat", "--lng", "NATS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := run(t, t.TempDir(), tt.args...)
			require.NoError(t, err, output)
			for _, expected := range tt.contains {
				assert.Contains(t, output, expected)
			}
		})
	}
}

func TestCLI_Version(t *testing.T) {
	output, err := run(t, t.TempDir(), "--version")
	require.NoError(t, err, output)
	assert.Contains(t, output, "mapview dev")
	assert.Contains(t, output, "commit: none")
}

func TestCLI_PlacesLifecycle(t *testing.T) {
	home := t.TempDir()

	output, err := run(t, home, "places", "list")
	require.NoError(t, err, output)
	assert.Contains(t, output, "London")

	output, err = run(t, home, "places", "add", "Paris", "48.8566", "2.3522", "--note", "not in bounds")
	require.NoError(t, err, output)
	assert.Contains(t, output, "Saved Paris")

	stored := filepath.Join(home, ".config", "mapview", "places.yaml")
	_, err = os.Stat(stored)
	require.NoError(t, err)

	output, err = run(t, home, "places")
	require.NoError(t, err, output)
	assert.Contains(t, output, "Paris")
	assert.Contains(t, output, "not in bounds")

	output, err = run(t, home, "places", "remove", "paris")
	require.NoError(t, err, output)

	output, err = run(t, home, "places", "remove", "Atlantis")
	require.Error(t, err)
	assert.Contains(t, output, "place not found")

	output, err = run(t, home, "places", "reset")
	require.NoError(t, err, output)
	assert.Contains(t, output, "Places reset to defaults")
}

func TestCLI_PlacesAddRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unparseable latitude", args: []string{"places", "add", "X", "north", "0"}, want: "Invalid latitude"},
		{name: "latitude out of range", args: []string{"places", "add", "X", "95", "0"}, want: "invalid place"},
		{name: "missing args", args: []string{"places", "add", "X"}, want: "accepts 3 arg(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := run(t, t.TempDir(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, output, tt.want)
		})
	}
}

func TestCLI_Navigate(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "invalid latitude", args: []string{"navigate", "--lat", "95", "--lng", "0"}, want: "invalid navigation request"},
		{name: "no bus configured", args: []string{"navigate", "--lat", "48.85", "--lng", "2.35"}, want: "navigation.nats_url is not configured"},
		{name: "missing flag", args: []string{"navigate", "--lat", "48.85"}, want: `"lng" not set`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := run(t, t.TempDir(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, output, tt.want)
		})
	}
}

func TestCLI_ConfigErrors(t *testing.T) {
	home := t.TempDir()

	output, err := run(t, home, "--config", filepath.Join(home, "absent.yaml"), "places", "list")
	require.Error(t, err)
	assert.Contains(t, output, "read config")

	bad := filepath.Join(home, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("geolocation:\n  provider: gps\n"), 0o600))
	output, err = run(t, home, "--config", bad, "places", "list")
	require.Error(t, err)
	assert.Contains(t, output, "config validation failed")
}

func TestCLI_JSONLogs(t *testing.T) {
	home := t.TempDir()
	logPath := filepath.Join(home, "mapview.log")

	output, err := run(t, home, "--verbose", "--log-format", "json", "--log-file", logPath, "places", "list")
	require.NoError(t, err, output)

	raw, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry), lines[0])
	assert.Equal(t, "debug", entry["level"])
}
