// Package integration runs the ssoconfig binary end to end.
package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var (
	// ssoconfigBin is the path to the built ssoconfig binary.
	ssoconfigBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot walks up from the working directory to the directory
// holding go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// cleanEnv returns os.Environ() without SSOCONFIG_* and XDG_* variables.
func cleanEnv() []string {
	var env []string
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "SSOCONFIG_") || strings.HasPrefix(e, "XDG_") {
			continue
		}
		env = append(env, e)
	}
	return env
}

// TestEnv is an isolated config and data directory pair.
type TestEnv struct {
	t       *testing.T
	TempDir string
	Config  string
	DataDir string
	// Env holds extra KEY=value pairs for the subprocess.
	Env []string
}

// NewTestEnv creates a new isolated test environment.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build ssoconfig: %v", buildErr)
	}
	if ssoconfigBin == "" {
		t.Fatal("ssoconfig binary not built")
	}

	tempDir := t.TempDir()
	return &TestEnv{
		t:       t,
		TempDir: tempDir,
		Config:  filepath.Join(tempDir, "config"),
		DataDir: filepath.Join(tempDir, "data"),
	}
}

// CmdResult holds the result of one ssoconfig invocation.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes ssoconfig with the environment's directories prepended.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()
	return e.RunRaw(append([]string{"--config-dir", e.Config, "--data-dir", e.DataDir}, args...)...)
}

// RunRaw executes ssoconfig with args unchanged.
func (e *TestEnv) RunRaw(args ...string) CmdResult {
	e.t.Helper()

	cmd := exec.Command(ssoconfigBin, args...)
	cmd.Env = append(cleanEnv(), e.Env...)
	cmd.Dir = e.TempDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			e.t.Fatalf("failed to run ssoconfig: %v", err)
		}
	}
	return CmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
}

// MustRun executes ssoconfig and fails the test on a non-zero exit.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	result := e.Run(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("ssoconfig %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, jsonStr string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", jsonStr, err)
	}
	return result
}

// Application is the JSON shape printed by "ssoconfig --json get".
type Application struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	ContactInfo  string            `json:"contact_info"`
	UserAccount  string            `json:"user_account"`
	AdminAccount string            `json:"admin_account"`
	Flags        uint32            `json:"flags"`
	FieldCount   int               `json:"field_count"`
	Properties   map[string]string `json:"properties"`
}
