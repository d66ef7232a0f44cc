package ops

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/binder/internal/config"
	"github.com/hpungsan/binder/internal/errors"
)

func exportConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}
	return cfg
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestExport_HappyPath(t *testing.T) {
	tmpDir := t.TempDir()
	env := newTestEnv(t)
	seedSaved(t, env)

	exportPath := filepath.Join(tmpDir, "cards.json")
	output, err := Export(context.Background(), env.mgr, exportConfig(tmpDir), ExportInput{Path: exportPath})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if output.Path != exportPath {
		t.Errorf("Path = %q, want %q", output.Path, exportPath)
	}
	if output.Count != 4 {
		t.Errorf("Count = %d, want 4", output.Count)
	}
	if _, err := ulid.ParseStrict(output.ExportID); err != nil {
		t.Errorf("ExportID %q is not a ULID: %v", output.ExportID, err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var doc ExportFile
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if !doc.BinderExport {
		t.Error("_binder_export should be true")
	}
	if doc.ExportID != output.ExportID {
		t.Errorf("ExportID = %q, want %q", doc.ExportID, output.ExportID)
	}
	if len(doc.Cards) != 4 {
		t.Fatalf("len(Cards) = %d, want 4", len(doc.Cards))
	}
	if doc.Cards[0].ID != "base1-4" || doc.Cards[3].ID != "base1-91" {
		t.Errorf("cards out of saved order: %s .. %s", doc.Cards[0].ID, doc.Cards[3].ID)
	}
	if doc.Cards[0].Rarity() != "Rare Holo" {
		t.Errorf("attributes lost in export: rarity = %q", doc.Cards[0].Rarity())
	}
}

func TestExport_EmptyCollection(t *testing.T) {
	tmpDir := t.TempDir()
	env := newTestEnv(t)

	exportPath := filepath.Join(tmpDir, "empty.json")
	output, err := Export(context.Background(), env.mgr, exportConfig(tmpDir), ExportInput{Path: exportPath})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if output.Count != 0 {
		t.Errorf("Count = %d, want 0", output.Count)
	}

	data, _ := os.ReadFile(exportPath)
	if !strings.Contains(string(data), `"cards": []`) {
		t.Errorf("expected empty cards array, got:\n%s", data)
	}
}

func TestExport_DoesNotModifyCollection(t *testing.T) {
	tmpDir := t.TempDir()
	env := newTestEnv(t)
	seedSaved(t, env)
	before := env.mgr.Cards().IDs()

	_, err := Export(context.Background(), env.mgr, exportConfig(tmpDir), ExportInput{Path: filepath.Join(tmpDir, "a.json")})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	after := env.mgr.Cards().IDs()
	if strings.Join(before, ",") != strings.Join(after, ",") {
		t.Errorf("collection changed: %v -> %v", before, after)
	}
}

func TestExport_OverwritesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	env := newTestEnv(t)
	seedSaved(t, env)

	exportPath := filepath.Join(tmpDir, "cards.json")
	if err := os.WriteFile(exportPath, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Export(context.Background(), env.mgr, exportConfig(tmpDir), ExportInput{Path: exportPath}); err != nil {
		if filepath.Separator == '\\' {
			t.Skip("overwrite unsupported on Windows")
		}
		t.Fatalf("Export failed: %v", err)
	}

	data, _ := os.ReadFile(exportPath)
	if string(data) == "old" {
		t.Error("existing file was not replaced")
	}

	// No temp files left behind
	entries, _ := os.ReadDir(tmpDir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestExport_RejectsDisallowedPath(t *testing.T) {
	env := newTestEnv(t)

	_, err := Export(context.Background(), env.mgr, config.DefaultConfig(), ExportInput{Path: filepath.Join(t.TempDir(), "cards.json")})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestExport_RejectsSymlinkDestination(t *testing.T) {
	tmpDir := t.TempDir()
	env := newTestEnv(t)

	target := filepath.Join(t.TempDir(), "target.json")
	if err := os.WriteFile(target, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(tmpDir, "link.json")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	_, err := Export(context.Background(), env.mgr, exportConfig(tmpDir), ExportInput{Path: link})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "{}" {
		t.Error("symlink target was modified")
	}
}

func TestDefaultExportName(t *testing.T) {
	name := defaultExportName(mustTime(t, "2026-03-14T09:26:53Z"))
	if name != "binder-2026-03-14T092653.json" {
		t.Errorf("unexpected file name %q", name)
	}
}

func TestExport_DefaultsToExportDir(t *testing.T) {
	tmpDir := t.TempDir()
	env := newTestEnv(t)
	seedSaved(t, env)

	cfg := config.DefaultConfig()
	cfg.ExportDir = tmpDir

	output, err := Export(context.Background(), env.mgr, cfg, ExportInput{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if filepath.Dir(output.Path) != tmpDir {
		t.Errorf("export written to %q, want a file in %q", output.Path, tmpDir)
	}
	if !strings.HasPrefix(filepath.Base(output.Path), "binder-") {
		t.Errorf("unexpected file name %q", filepath.Base(output.Path))
	}
	if _, err := os.Stat(output.Path); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}
