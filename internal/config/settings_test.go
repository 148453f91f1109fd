package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSettings(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func testPaths(t *testing.T) ConfigPaths {
	t.Helper()
	dir := t.TempDir()
	return ConfigPaths{
		User:    filepath.Join(dir, "user", "settings.yaml"),
		Project: filepath.Join(dir, "project", "settings.yaml"),
		Local:   filepath.Join(dir, "project", "settings.local.yaml"),
	}
}

func TestSettingsLayers_OrderAndLabels(t *testing.T) {
	t.Parallel()

	paths := testPaths(t)
	writeSettings(t, paths.User, "profile: base\n")
	writeSettings(t, paths.Project, "profile: dev\n")
	writeSettings(t, paths.Local, "profile: experiment\n")

	layers := SettingsLayers(paths)
	if len(layers) != 3 {
		t.Fatalf("got %d layers, want 3", len(layers))
	}

	wantNames := []string{"user", "project", "local"}
	for i, name := range wantNames {
		if layers[i].Name != name {
			t.Errorf("layer %d name = %q, want %q", i, layers[i].Name, name)
		}
	}
}

func TestSettingsLayers_MissingFilesSkipped(t *testing.T) {
	t.Parallel()

	paths := testPaths(t)
	writeSettings(t, paths.Project, "profile: dev\n")

	layers := SettingsLayers(paths)
	if len(layers) != 1 || layers[0].Name != "project" {
		t.Fatalf("layers = %v, want only project", layers)
	}
}

func TestLoadSettings_LocalWins(t *testing.T) {
	t.Parallel()

	paths := testPaths(t)
	writeSettings(t, paths.User, "profile: base\neditor: vim\n")
	writeSettings(t, paths.Project, "profile: dev\n")
	writeSettings(t, paths.Local, "profile: experiment\n")

	settings := LoadSettings(paths)

	if got := ActiveProfile(settings); got != "experiment" {
		t.Errorf("ActiveProfile() = %q, want local override", got)
	}
	if settings["editor"] != "vim" {
		t.Errorf("user-only key lost in merge: %#v", settings)
	}
}

func TestActiveProfile_Unset(t *testing.T) {
	t.Parallel()

	if got := ActiveProfile(map[string]any{}); got != "" {
		t.Errorf("ActiveProfile(empty) = %q, want empty", got)
	}
}
