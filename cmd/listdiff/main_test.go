package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/listdiff/internal/config"
	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/server"
)

const (
	oldDoc = `{"sections":[
		{"id":"A","elements":[{"id":"x"},{"id":"y"}]},
		{"id":"B","elements":[{"id":"z"}]}
	]}`
	newDoc = `{"sections":[
		{"id":"B","elements":[{"id":"z"},{"id":"y"}]},
		{"id":"A","elements":[{"id":"x","data":{"label":"changed"}}]}
	]}`
)

// fixture writes the old and new documents into a temp dir.
func fixture(t *testing.T) (dir, oldPath, newPath string) {
	t.Helper()
	dir = t.TempDir()
	oldPath = filepath.Join(dir, "old.json")
	newPath = filepath.Join(dir, "new.json")
	if err := os.WriteFile(oldPath, []byte(oldDoc), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newPath, []byte(newDoc), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, oldPath, newPath
}

// run executes the root command and returns its stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", dir, "--color", "never"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDiffText(t *testing.T) {
	dir, oldPath, newPath := fixture(t)

	out, err := run(t, dir, "diff", oldPath, newPath)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	for _, want := range []string{"operations in", "MoveSection", "MoveElement", "UpdateElement", "B/y"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDiffEquivalent(t *testing.T) {
	dir, oldPath, _ := fixture(t)

	out, err := run(t, dir, "diff", oldPath, oldPath)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	if !strings.Contains(out, "equivalent") {
		t.Errorf("output = %q, want equivalent", out)
	}
}

func TestDiffJSON(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantMoves int
	}{
		{"cross section moves", nil, 1},
		{"delete and insert", []string{"--no-cross-moves"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, oldPath, newPath := fixture(t)

			args := append([]string{"diff", "--output", "json"}, tt.args...)
			out, err := run(t, dir, append(args, oldPath, newPath)...)
			if err != nil {
				t.Fatalf("diff failed: %v", err)
			}

			var resp server.DiffResponse
			if err := json.Unmarshal([]byte(out), &resp); err != nil {
				t.Fatalf("decode: %v\n%s", err, out)
			}
			if got := resp.Counts["MoveElement"]; got != tt.wantMoves {
				t.Errorf("MoveElement = %d, want %d", got, tt.wantMoves)
			}
			if tt.wantMoves == 0 && (resp.Counts["DeleteElement"] == 0 || resp.Counts["InsertElement"] == 0) {
				t.Errorf("counts = %v, want delete and insert", resp.Counts)
			}

			last := resp.Stages[len(resp.Stages)-1].Result
			if len(last.Sections) != 2 || last.Sections[0].ID != "B" || last.Sections[1].ID != "A" {
				t.Errorf("last result = %+v", last.Sections)
			}
		})
	}
}

func TestDiffYAML(t *testing.T) {
	dir, oldPath, newPath := fixture(t)

	out, err := run(t, dir, "diff", "-o", "yaml", oldPath, newPath)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if _, ok := doc["stages"]; !ok {
		t.Errorf("yaml output has no stages:\n%s", out)
	}
}

func TestCommandErrors(t *testing.T) {
	dir, oldPath, newPath := fixture(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing file", []string{"diff", filepath.Join(dir, "nope.json"), newPath}, "E141"},
		{"unknown scheme", []string{"diff", "ftp://host/old.json", newPath}, "E140"},
		{"bad output", []string{"diff", "-o", "xml", oldPath, newPath}, "E160"},
		{"bad color", []string{"--color", "sometimes", "kinds"}, "E160"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, dir, tt.args...)
			if !errors.HasCode(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestApplyLocal(t *testing.T) {
	dir, oldPath, newPath := fixture(t)

	out, err := run(t, dir, "apply", oldPath, newPath)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !strings.Contains(out, "stage 1:") || !strings.Contains(out, "Applied") {
		t.Errorf("output = %s", out)
	}
}

func TestApplyInterrupt(t *testing.T) {
	dir, oldPath, newPath := fixture(t)

	out, err := run(t, dir, "apply", "--interrupt-after", "1", oldPath, newPath)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !strings.Contains(out, "Interrupted after 1 of") {
		t.Errorf("output = %s", out)
	}
	if strings.Contains(out, "stage 2:") {
		t.Errorf("stage 2 applied after interrupt:\n%s", out)
	}
}

func TestApplyRemote(t *testing.T) {
	dir, oldPath, newPath := fixture(t)

	cfg := server.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(server.New(cfg).Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/apply"

	out, err := run(t, dir, "apply", "--remote", url, oldPath, newPath)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !strings.Contains(out, "Applied") {
		t.Errorf("output = %s", out)
	}
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	if _, err := run(t, dir, "init"); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != config.DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Server.Addr, config.DefaultAddr)
	}

	if _, err := run(t, dir, "init"); !errors.HasCode(err, "E160") {
		t.Errorf("second init err = %v, want E160", err)
	}
	if _, err := run(t, dir, "init", "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}
}

func TestKinds(t *testing.T) {
	out, err := run(t, t.TempDir(), "kinds")
	if err != nil {
		t.Fatalf("kinds failed: %v", err)
	}
	for _, want := range []string{"item", "group", "text"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestVersionShort(t *testing.T) {
	out, err := run(t, t.TempDir(), "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if out != version+"\n" {
		t.Errorf("output = %q, want %q", out, version+"\n")
	}
}
