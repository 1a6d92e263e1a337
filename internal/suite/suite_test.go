package suite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const hiveSuite = `
name: hive-cli
command: hive
require: [which, hive]
trailing: [--hiveconf, a=b]
timeout: 30s
dir: work
cases:
  - name: help
    steps:
      - args: [-H]
        expect: {exit_code: 2}
      - args: [--help]
        expect: {exit_code: 0}
  - name: sql-from-files
    fixtures:
      hive-f1.sql: "SHOW DATABASES;\n"
    steps:
      - args: [-f, "{{fixtures}}/hive-f1.sql"]
        expect:
          exit_code: 0
          stdout_contains: [default]
      - command: sh
        args: [-c, "true"]
        when: {stdout_lacks: odpi}
teardown:
  - args: [-e, DROP DATABASE odpi_runtime_hive]
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(hiveSuite), "/suites")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Name != "hive-cli" || s.Command != "hive" {
		t.Errorf("Name/Command = %q/%q", s.Name, s.Command)
	}
	if got := s.CaseNames(); strings.Join(got, ",") != "help,sql-from-files" {
		t.Errorf("CaseNames = %q", got)
	}
	if s.Timeout() != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", s.Timeout())
	}
	if s.WorkDir() != filepath.Join("/suites", "work") {
		t.Errorf("WorkDir = %q", s.WorkDir())
	}
	if code := s.Cases[0].Steps[0].Expect.ExitCode; code == nil || *code != 2 {
		t.Errorf("help exit_code = %v, want 2", code)
	}
	if s.Cases[1].Steps[1].When.StdoutLacks != "odpi" {
		t.Errorf("when = %+v", s.Cases[1].Steps[1].When)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name, yaml, want string
	}{
		{"unknown field", "name: x\ncommand: c\ncases: [{name: a, steps: [{args: [x]}]}]\nbogus: 1\n", "bogus"},
		{"no name", "command: c\ncases: [{name: a, steps: [{}]}]\n", "no name"},
		{"no cases", "name: x\ncommand: c\n", "no cases"},
		{"no command", "name: x\ncases: [{name: a, steps: [{args: [x]}]}]\n", "no command"},
		{"duplicate case", "name: x\ncommand: c\ncases: [{name: a, steps: [{}]}, {name: a, steps: [{}]}]\n", "duplicate case"},
		{"no steps", "name: x\ncommand: c\ncases: [{name: a}]\n", "no steps"},
		{"bad timeout", "name: x\ncommand: c\ntimeout: soon\ncases: [{name: a, steps: [{}]}]\n", "timeout"},
		{"conditional first step", "name: x\ncommand: c\ncases: [{name: a, steps: [{when: {stdout_contains: y}}]}]\n", "first step"},
		{"empty condition", "name: x\ncommand: c\ncases: [{name: a, steps: [{}, {when: {}}]}]\n", "exactly one"},
		{"fixtures placeholder without fixtures", "name: x\ncommand: c\ncases: [{name: a, steps: [{args: [\"{{fixtures}}/a\"]}]}]\n", "without fixtures"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml), "/")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hive.yaml")
	if err := os.WriteFile(path, []byte(hiveSuite), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Path != path {
		t.Errorf("Path = %q, want %q", s.Path, path)
	}
	if s.WorkDir() != filepath.Join(dir, "work") {
		t.Errorf("WorkDir = %q", s.WorkDir())
	}
}

func TestSelect(t *testing.T) {
	s, err := Parse([]byte(hiveSuite), "/")
	if err != nil {
		t.Fatal(err)
	}
	cases, err := s.Select([]string{"sql-from-files"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(cases) != 1 || cases[0].Name != "sql-from-files" {
		t.Errorf("Select = %+v", cases)
	}
	if _, err := s.Select([]string{"nope"}); err == nil {
		t.Error("Select(nope): expected error")
	}
}

func TestCommand_TemplateAndOverride(t *testing.T) {
	s, err := Parse([]byte(hiveSuite), "/suites")
	if err != nil {
		t.Fatal(err)
	}

	c := s.command(s.Cases[0].Steps[0], nil)
	if got := strings.Join(c.Argv(), " "); got != "hive -H --hiveconf a=b" {
		t.Errorf("argv = %q", got)
	}
	if c.Dir != filepath.Join("/suites", "work") {
		t.Errorf("Dir = %q", c.Dir)
	}

	c = s.command(s.Cases[1].Steps[1], nil)
	if got := strings.Join(c.Argv(), " "); got != "sh -c true" {
		t.Errorf("override argv = %q", got)
	}
}
