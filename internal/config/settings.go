package config

import (
	"os"

	"github.com/spf13/viper"
)

// SettingsLayers reads the user/project/local settings files that exist and
// returns them as a chain ordered root-first, ready for MergeProfiles or
// BuildEffectiveConfig. Missing files are skipped; unreadable ones are
// logged and skipped so a broken local override never blocks the CLI.
func SettingsLayers(paths ConfigPaths) []Layer {
	candidates := []struct {
		label string
		path  string
	}{
		{"user", paths.User},
		{"project", paths.Project},
		{"local", paths.Local},
	}

	var layers []Layer
	for _, c := range candidates {
		if c.path == "" {
			continue
		}
		if _, err := os.Stat(c.path); err != nil {
			continue
		}

		v := viper.New()
		v.SetConfigFile(c.path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("Skipping unreadable settings layer %s: %v", c.path, err)
			continue
		}

		layers = append(layers, Layer{Name: c.label, Config: v.AllSettings()})
	}

	return layers
}

// LoadSettings merges the settings layers into one effective settings tree.
func LoadSettings(paths ConfigPaths) map[string]any {
	merged := map[string]any{}
	for _, layer := range SettingsLayers(paths) {
		merged = MergeProfiles(merged, layer.Config)
	}
	return merged
}

// ActiveProfile returns the profile selected by the merged settings, or ""
// when none is set.
func ActiveProfile(settings map[string]any) string {
	name, _ := settings["profile"].(string)
	return name
}
