package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kevinlinxc/radonAnalysis/src/report"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	root.SetArgs(args)
	var out bytes.Buffer
	root.SetOut(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func synthDir(t *testing.T, count int) string {
	t.Helper()
	dir := t.TempDir()
	_, err := writeSynthRuns(context.Background(), synthOptions{
		dir: dir, ext: ".db", count: count, start: "2020-02-14", every: 24 * time.Hour,
		runtime: time.Hour, events: 3000, background: 200, mean: 1950, sigma: 15, seed: 7,
	})
	if err != nil {
		t.Fatalf("synth: %v", err)
	}
	return dir
}

// TestAnalyzeSynthRuns runs the whole pipeline over generated runs and checks chart, export and summary.
func TestAnalyzeSynthRuns(t *testing.T) {
	dir := synthDir(t, 3)
	out := filepath.Join(t.TempDir(), "c.svg")
	exp := filepath.Join(t.TempDir(), "series.json")
	stdout, err := execute(t, "--dir", dir, "--out", out, "--export", exp, "--echo=false")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout, "files=3 plotted=3") {
		t.Fatalf("unexpected summary: %q", stdout)
	}
	svg, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("chart not written: %v", err)
	}
	for _, d := range []string{"2020-02-14", "2020-02-15", "2020-02-16"} {
		if !bytes.Contains(svg, []byte(d)) {
			t.Fatalf("chart lacks label %s", d)
		}
	}

	b, err := os.ReadFile(exp)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(b, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	points, ok := parsed["points"].([]interface{})
	if !ok || len(points) != 3 {
		t.Fatalf("expected 3 points: %v", parsed["points"])
	}
	if parsed["key_kind"] != "lexical" {
		t.Fatalf("key kind %v", parsed["key_kind"])
	}
}

func TestAnalyzeNumericKeys(t *testing.T) {
	dir := synthDir(t, 2)
	out := filepath.Join(t.TempDir(), "c.png")
	exp := filepath.Join(t.TempDir(), "series.json.zst")
	if _, err := execute(t, "--dir", dir, "--out", out, "--date-key", "numeric", "--export", exp); err != nil {
		t.Fatalf("run: %v", err)
	}
	rep, err := report.Read(exp)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(rep.Points) != 2 || rep.Points[0].Label != "14/02/20" || rep.Points[1].Label != "15/02/20" {
		t.Fatalf("numeric points %+v", rep.Points)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("chart not written: %v", err)
	}
}

// TestConfigLayering: YAML overrides defaults and explicit flags override YAML.
func TestConfigLayering(t *testing.T) {
	dir := t.TempDir()
	exp := filepath.Join(dir, "series.json")
	cfgPath := filepath.Join(dir, "radon.yaml")
	yml := "source_dir: " + dir + "\nfit_min: 1900\noutput: " + filepath.Join(dir, "a.svg") + "\nexport: " + exp + "\n"
	if err := os.WriteFile(cfgPath, []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	stdout, err := execute(t, "--config", cfgPath, "--out", filepath.Join(dir, "b.png"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// empty directory: nothing plotted, nothing drawn, still a clean exit
	if !strings.Contains(stdout, "files=0 plotted=0") || !strings.Contains(stdout, "chart=-") {
		t.Fatalf("unexpected summary: %q", stdout)
	}
	rep, err := report.Read(exp)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if rep.Config.Window.Lo != 1900 || rep.Config.Window.Hi != 2050 {
		t.Fatalf("yaml window not applied: %+v", rep.Config.Window)
	}
	if filepath.Base(rep.Config.Output) != "b.png" {
		t.Fatalf("flag should override yaml output, got %s", rep.Config.Output)
	}
}

func TestFatalConditions(t *testing.T) {
	if _, err := execute(t, "--dir", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("unreadable source directory must fail")
	}
	if _, err := execute(t, "--date-key", "guess"); err == nil {
		t.Fatalf("invalid configuration must fail")
	}
	if _, err := execute(t, "--out", "c.pdf"); err == nil {
		t.Fatalf("unsupported chart format must fail")
	}
}

func TestSynthCommandNaming(t *testing.T) {
	dir := t.TempDir()
	stdout, err := execute(t, "synth", "--dir", dir, "--count", "2", "--events", "50", "--background", "0")
	if err != nil {
		t.Fatalf("synth: %v", err)
	}
	for _, name := range []string{"UofA_RnRun_2020-02-14.db", "UofA_RnRun_2020-02-15.db"} {
		if !strings.Contains(stdout, name) {
			t.Fatalf("missing %s in %q", name, stdout)
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("file %s not written: %v", name, err)
		}
	}
	if _, err := execute(t, "synth", "--dir", dir, "--count", "0"); err == nil {
		t.Fatalf("count 0 must fail")
	}
}
