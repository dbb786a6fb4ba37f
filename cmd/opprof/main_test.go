package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/chazu/opprof/bytecode"
)

const program = `.method helper
  LOADL R1 "hello"
  SEND R0 :puts 1
  RETURN R1
.end

.method main
  LOADSELF R1
  SEND R1 :helper 0
  SEND R1 :helper 0
  RETURN R1
.end
`

// setup writes the program and a configuration into a fresh directory.
func setup(t *testing.T, conf string) (dir, prog string) {
	t.Helper()
	dir = t.TempDir()
	prog = filepath.Join(dir, "prog.oasm")
	if err := os.WriteFile(prog, []byte(program), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "opprof.toml"), []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, prog
}

func TestRunLineReport(t *testing.T) {
	dir, prog := setup(t, "[report]\nhighlight = false\n")

	var stdout, stderr bytes.Buffer
	if status := run([]string{"-config", dir, prog}, &stdout, &stderr); status != 0 {
		t.Fatalf("status %d, stderr: %s", status, stderr.String())
	}

	out := stdout.String()
	if !strings.HasPrefix(out, "hello\nhello\n") {
		t.Errorf("program output missing:\n%s", out)
	}
	if !regexp.MustCompile(`(?m)^0002 [0-9.]+   LOADL R1 "hello"$`).MatchString(out) {
		t.Errorf("source line missing:\n%s", out)
	}
	if !regexp.MustCompile(`(?m)^ +2 [0-9.]+ +LOADL\tR1\tL\(0\)\t; "hello"$`).MatchString(out) {
		t.Errorf("instruction row missing:\n%s", out)
	}
	if strings.Contains(out, "\x1b[1m") {
		t.Error("highlight should be off")
	}
}

func TestRunCallgrindToFile(t *testing.T) {
	dir, prog := setup(t, "[report]\nformat = \"lines\"\n")
	dest := filepath.Join(dir, "out", "callgrind.out")

	var stdout, stderr bytes.Buffer
	if status := run([]string{"-config", dir, "-k", "-o", dest, prog}, &stdout, &stderr); status != 0 {
		t.Fatalf("status %d, stderr: %s", status, stderr.String())
	}
	if stdout.String() != "hello\nhello\n" {
		t.Errorf("stdout = %q", stdout.String())
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"events: Ticks", "fn=(0) Object#main", "cfn=(1) Object#helper", "calls=2 "} {
		if !strings.Contains(string(data), want) {
			t.Errorf("callgrind output missing %q:\n%s", want, data)
		}
	}
}

func TestRunDumpAndDisasm(t *testing.T) {
	dir, prog := setup(t, "")
	image := filepath.Join(dir, "prog.opbc")

	var stdout, stderr bytes.Buffer
	if status := run([]string{"-config", dir, "-dump", image, prog}, &stdout, &stderr); status != 0 {
		t.Fatalf("dump status %d, stderr: %s", status, stderr.String())
	}
	if _, err := bytecode.LoadFile(image); err != nil {
		t.Fatalf("dumped image does not load: %v", err)
	}

	stdout.Reset()
	if status := run([]string{"-config", dir, "-disasm", image}, &stdout, &stderr); status != 0 {
		t.Fatalf("disasm status %d, stderr: %s", status, stderr.String())
	}
	if !strings.Contains(stdout.String(), "; === Object#helper ===") {
		t.Errorf("listing missing helper:\n%s", stdout.String())
	}
}

func TestRunEntryWithoutProfile(t *testing.T) {
	dir, prog := setup(t, "")

	var stdout, stderr bytes.Buffer
	if status := run([]string{"-config", dir, "-no-profile", "-m", "helper", prog}, &stdout, &stderr); status != 0 {
		t.Fatalf("status %d, stderr: %s", status, stderr.String())
	}
	if stdout.String() != "hello\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunErrors(t *testing.T) {
	dir, prog := setup(t, "")

	tests := []struct {
		name   string
		args   []string
		status int
		stderr string
	}{
		{"no program", []string{"-config", dir}, 2, "Usage: opprof"},
		{"missing file", []string{"-config", dir, filepath.Join(dir, "none.oasm")}, 1, "Error: load"},
		{"bad config", []string{"-config", t.TempDir(), prog}, 1, "cannot read"},
		{"unknown method", []string{"-config", dir, "-m", "nope", prog}, 1, "undefined method"},
		{"bad flag", []string{"-bogus"}, 2, "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if status := run(tt.args, &stdout, &stderr); status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if !strings.Contains(stderr.String(), tt.stderr) {
				t.Errorf("stderr missing %q:\n%s", tt.stderr, stderr.String())
			}
		})
	}
}
