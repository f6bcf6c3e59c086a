package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattjoyce/opgate/internal/config"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)

	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

func writeTestConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `service:
  name: opgate-test
  listen: "127.0.0.1:0"
  log_level: ERROR
storage:
  db_path: ` + filepath.Join(t.TempDir(), "test.db") + `
ops:
  sets: [sys]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRunCLIUnknownCommand(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runCLI([]string{"bogus"})
	})
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Unknown command") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunCLIVersion(t *testing.T) {
	code, stdout, _ := captureOutputWithExitCode(t, func() int {
		return runCLI([]string{"version"})
	})
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout, "opgate version") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunCLIHelpTokens(t *testing.T) {
	for _, args := range [][]string{
		{"help"},
		{"system", "help"},
		{"config", "--help"},
		{"op", "-h"},
	} {
		code, stdout, _ := captureOutputWithExitCode(t, func() int {
			return runCLI(args)
		})
		if code != 0 {
			t.Errorf("runCLI(%v) = %d, want 0", args, code)
		}
		if !strings.Contains(stdout, "Usage") {
			t.Errorf("runCLI(%v) stdout = %q", args, stdout)
		}
	}
}

func TestConfigLockAndCheck(t *testing.T) {
	cfgPath := writeTestConfig(t)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigLock([]string{"--config", cfgPath})
	})
	if code != 0 {
		t.Fatalf("config lock failed: %s", stderr)
	}
	if !strings.Contains(stdout, "blake3:") {
		t.Errorf("lock output = %q", stdout)
	}

	code, stdout, _ = captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", cfgPath})
	})
	if code != 0 || !strings.Contains(stdout, "PASSED") {
		t.Errorf("config check: code=%d stdout=%q", code, stdout)
	}

	// Tamper with the locked file: check must fail.
	if err := os.WriteFile(cfgPath, []byte("service:\n  listen: \"127.0.0.1:1\"\nstorage:\n  db_path: x.db\n"), 0o644); err != nil {
		t.Fatalf("tamper config: %v", err)
	}
	code, _, stderr = captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", cfgPath})
	})
	if code != 1 || !strings.Contains(stderr, "Integrity check FAILED") {
		t.Errorf("tampered check: code=%d stderr=%q", code, stderr)
	}
}

func TestConfigLockRejectsBrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("service: [not a map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigLock([]string{"--config", path})
	})
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Config load error") {
		t.Errorf("stderr = %q", stderr)
	}
	if _, err := os.Stat(config.ChecksumPath(path)); !os.IsNotExist(err) {
		t.Error("checksum written for a broken config")
	}
}

func TestConfigShow(t *testing.T) {
	cfgPath := writeTestConfig(t)

	code, stdout, _ := captureOutputWithExitCode(t, func() int {
		return runConfigShow([]string{"--config", cfgPath})
	})
	if code != 0 {
		t.Fatalf("config show failed, code %d", code)
	}
	if !strings.Contains(stdout, "opgate-test") {
		t.Errorf("show output = %q", stdout)
	}

	code, stdout, _ = captureOutputWithExitCode(t, func() int {
		return runConfigShow([]string{"--config", cfgPath, "--json"})
	})
	if code != 0 || !strings.Contains(stdout, `"Name": "opgate-test"`) {
		t.Errorf("json show: code=%d stdout=%q", code, stdout)
	}
}

func TestOpCallRejectsBadOpcode(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runOpCall([]string{"zzzz"})
	})
	if code != 1 || !strings.Contains(stderr, "Invalid opcode") {
		t.Errorf("code=%d stderr=%q", code, stderr)
	}
}

func TestOpCallRejectsConflictingArgFlags(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runOpCall([]string{"00000101", "--args", "hi", "--args-hex", "6869"})
	})
	if code != 1 || !strings.Contains(stderr, "only one of") {
		t.Errorf("code=%d stderr=%q", code, stderr)
	}
}
