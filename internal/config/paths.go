package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigPaths names the three settings layers, lowest precedence first.
type ConfigPaths struct {
	User    string // ~/.amplifier/settings.yaml
	Project string // .amplifier/settings.yaml
	Local   string // .amplifier/settings.local.yaml
}

// DefaultConfigPaths returns the CLI's settings layer locations.
func DefaultConfigPaths() ConfigPaths {
	home, _ := os.UserHomeDir()
	return ConfigPaths{
		User:    filepath.Join(home, ".amplifier", "settings.yaml"),
		Project: filepath.Join(".amplifier", "settings.yaml"),
		Local:   filepath.Join(".amplifier", "settings.local.yaml"),
	}
}

// ProjectSlug converts a project path into the directory key used under
// ~/.amplifier/projects/. Path separators and drive colons are flattened so
// the slug is a single path component.
func ProjectSlug(path string) string {
	slug := strings.ReplaceAll(path, "/", "-")
	slug = strings.ReplaceAll(slug, "\\", "-")
	slug = strings.ReplaceAll(slug, ":", "")
	if !strings.HasPrefix(slug, "-") {
		slug = "-" + slug
	}
	return slug
}

// DefaultSessionsDir returns the per-project session storage root,
// ~/.amplifier/projects/<project-slug>/sessions, keyed by the working
// directory.
func DefaultSessionsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".amplifier", "projects", ProjectSlug(cwd), "sessions"), nil
}

// ProjectsRoot returns ~/.amplifier/projects, the parent of every
// per-project session directory.
func ProjectsRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".amplifier", "projects"), nil
}

// ProfileSearchPaths returns the profile lookup locations, highest
// precedence first: project profiles, then user profiles.
func ProfileSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(".amplifier", "profiles"),
		filepath.Join(home, ".amplifier", "profiles"),
	}
}
