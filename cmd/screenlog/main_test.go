package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/GriffinCanCode/screenlog/internal/config"
	"github.com/GriffinCanCode/screenlog/internal/screen"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "displays", "config", "ocr-serve", "version"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "screenlog dev\n" {
		t.Errorf("version output = %q", out)
	}
}

func TestConfigDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenlog.yaml")
	if err := os.WriteFile(path, []byte("diff_threshold: 2500\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "config", "dump", "--config", path)
	if err != nil {
		t.Fatal(err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("dump is not YAML: %v\n%s", err, out)
	}
	if cfg.DiffThreshold != 2500 {
		t.Errorf("DiffThreshold = %d, want 2500", cfg.DiffThreshold)
	}
	if cfg.OCR.TesseractArgs != "--psm 3" {
		t.Errorf("TesseractArgs = %q", cfg.OCR.TesseractArgs)
	}
}

func TestConfigDumpRejectsInvalid(t *testing.T) {
	t.Setenv("SCREENLOG_OCR_BACKEND", "vision")
	if _, err := execute(t, "config", "dump"); err == nil {
		t.Error("expected an error for an unknown OCR backend")
	}
}

func TestPrintDisplays(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	monitors := []screen.Monitor{
		{Index: 0, Width: 1440, Height: 900},
		{Index: 1, Left: 1440, Top: -180, Width: 2560, Height: 1440},
	}
	if err := printDisplays(cmd, monitors, []float64{2}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "D0 1440x900@(0,0) scale=2" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "D1 2560x1440@(1440,-180) scale=1" {
		t.Errorf("line 1 = %q", lines[1])
	}
}
