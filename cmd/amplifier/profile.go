package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"amplifier/internal/config"
	errs "amplifier/internal/errors"
	"amplifier/internal/profile"
)

// newProfileCommand creates the profile subcommand tree
func newProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect profiles and their effective configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show [name]",
		Short: "Show a profile's effective configuration with provenance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detailed, _ := cmd.Flags().GetBool("detailed")

			name := ""
			if len(args) > 0 {
				name = args[0]
			} else {
				name = config.ActiveProfile(config.LoadSettings(config.DefaultConfigPaths()))
			}
			if name == "" {
				return fmt.Errorf("no profile named and no active profile set")
			}

			return runProfileShow(name, detailed)
		},
	}
	showCmd.Flags().BoolP("detailed", "d", false, "Show per-field configuration provenance")
	cmd.AddCommand(showCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "current",
		Short: "Show the currently active profile and where it was set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileCurrent()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List profiles available on the search paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileList()
		},
	})

	return cmd
}

func runProfileShow(name string, detailed bool) error {
	loader := profile.NewLoader()

	chain, err := loader.Chain(name)
	if err != nil {
		if errs.IsNotFound(err) {
			return fmt.Errorf("profile %q not found", name)
		}
		return err
	}

	// Settings layers stack on top of the profile chain so local and
	// project overrides show up in the provenance.
	chain = append(chain, config.SettingsLayers(config.DefaultConfigPaths())...)

	effective, sources := config.BuildEffectiveConfig(chain)

	fmt.Printf("%s %s\n", bold("Profile:"), name)
	names := make([]string, len(chain))
	for i, layer := range chain {
		names[i] = layer.Name
	}
	fmt.Printf("%s %s\n", bold("Layers:"), strings.Join(names, " > "))
	fmt.Printf("\n%s\n\n", bold("Effective Configuration:"))

	renderEffective(effective, sources, detailed)
	return nil
}

// formatSource renders a provenance annotation: cyan "[layer]" for a plain
// attribution, yellow "[layer, overrides previous]" when the value replaced
// an earlier layer's, empty when nothing contributed the value.
func formatSource(src config.Source) string {
	switch {
	case src.Overridden():
		return " " + yellow(fmt.Sprintf("[%s, overrides %s]", src.Current, src.Previous))
	case src.Current != "":
		return " " + cyan(fmt.Sprintf("[%s]", src.Current))
	default:
		return ""
	}
}

func truncateSource(source string) string {
	if len(source) > 60 {
		return source[:57] + "..."
	}
	return source
}

func renderEffective(cfg *config.EffectiveConfig, sources *config.Sources, detailed bool) {
	renderSession(cfg, sources, detailed)
	renderModuleSection("Providers:", cfg.Providers, "providers", sources, detailed)
	renderModuleSection("Tools:", cfg.Tools, "tools", sources, detailed)
	renderModuleSection("Hooks:", cfg.Hooks, "hooks", sources, detailed)
	renderAgents(cfg, sources, detailed)
}

func renderSession(cfg *config.EffectiveConfig, sources *config.Sources, detailed bool) {
	if len(cfg.Session) == 0 {
		return
	}
	fmt.Println(bold("Session:"))

	// orchestrator and context are module-valued and lead the listing.
	leads := []string{"orchestrator", "context"}
	for _, field := range leads {
		value, ok := cfg.Session[field]
		if !ok {
			continue
		}
		src := formatSource(sources.Session[field])

		if entry, isModule := value.(map[string]any); isModule {
			if id, _ := entry["module"].(string); id != "" {
				if !detailed {
					fmt.Printf("  %s: %s%s\n", field, id, src)
					continue
				}
				fmt.Printf("  %s:%s\n", field, src)
				fmt.Printf("    module: %s\n", id)
				if source, _ := entry["source"].(string); source != "" {
					fmt.Printf("    source: %s\n", truncateSource(source))
				}
				if entryCfg, _ := entry["config"].(map[string]any); len(entryCfg) > 0 {
					fmt.Println("    config:")
					for _, key := range sortedKeys(entryCfg) {
						fmt.Printf("      %s: %v\n", key, entryCfg[key])
					}
				}
				continue
			}
		}
		fmt.Printf("  %s: %v%s\n", field, value, src)
	}

	if detailed {
		for _, field := range sortedKeys(cfg.Session) {
			if field == "orchestrator" || field == "context" {
				continue
			}
			fmt.Printf("  %s: %v%s\n", field, cfg.Session[field], formatSource(sources.Session[field]))
		}
	}
	fmt.Println()
}

func renderModuleSection(title string, modules map[string]map[string]any, section string, sources *config.Sources, detailed bool) {
	if len(modules) == 0 {
		return
	}
	fmt.Println(bold(title))

	for _, id := range sortedKeys(modules) {
		key := config.ModuleKey{Section: section, Module: id}
		fmt.Printf("  %s%s\n", id, formatSource(sources.Modules[key]))

		if !detailed {
			continue
		}
		entry := modules[id]
		if source, _ := entry["source"].(string); source != "" {
			line := fmt.Sprintf("    source: %s", truncateSource(source))
			if by := sources.ConfigModifiedBy[key]; by != "" {
				line += " " + gray(fmt.Sprintf("(config modified by %s)", by))
			}
			fmt.Println(line)
		}
		if entryCfg, _ := entry["config"].(map[string]any); len(entryCfg) > 0 {
			fmt.Println("    config:")
			fieldSources := sources.ConfigFields[key]
			for _, field := range sortedKeys(entryCfg) {
				fmt.Printf("      %s: %v%s\n", field, entryCfg[field], formatSource(fieldSources[field]))
			}
		}
	}
	fmt.Println()
}

func renderAgents(cfg *config.EffectiveConfig, sources *config.Sources, detailed bool) {
	if len(cfg.Agents) == 0 && len(cfg.AgentDirs) == 0 {
		return
	}
	src := formatSource(sources.Agents)
	fmt.Println(bold("Agents:") + src)

	if len(cfg.AgentDirs) > 0 {
		fmt.Printf("  dirs: %s\n", strings.Join(cfg.AgentDirs, ", "))
	}
	if len(cfg.Agents) > 0 {
		fmt.Printf("  items: %d agent(s)\n", len(cfg.Agents))
		if detailed {
			for _, name := range sortedKeys(cfg.Agents) {
				fmt.Printf("    - %s\n", name)
			}
		}
	}
}

func runProfileCurrent() error {
	paths := config.DefaultConfigPaths()

	// Precedence mirrors the settings merge: local beats project beats user.
	scopes := []struct {
		label string
		path  string
	}{
		{"local settings", paths.Local},
		{"project settings", paths.Project},
		{"user settings", paths.User},
	}

	layers := config.SettingsLayers(paths)
	byName := map[string]config.Layer{}
	for _, layer := range layers {
		byName[layer.Name] = layer
	}

	for _, scope := range scopes {
		key := strings.Fields(scope.label)[0]
		layer, ok := byName[key]
		if !ok {
			continue
		}
		if name := config.ActiveProfile(layer.Config); name != "" {
			fmt.Printf("%s %s %s\n", bold("Active profile:"), name, gray("(from "+scope.label+")"))
			fmt.Printf("Source: %s\n", cyan(scope.path))
			return nil
		}
	}

	fmt.Println(yellow("No active profile set"))
	fmt.Printf("\n%s\n", bold("To set a profile:"))
	fmt.Printf("  add %s to %s\n", cyan("profile: <name>"), cyan(paths.Project))
	return nil
}

func runProfileList() error {
	seen := map[string]string{}
	var names []string

	for _, dir := range config.ProfileSearchPaths() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := filepath.Ext(entry.Name())
			if ext != ".yaml" && ext != ".yml" && ext != ".md" {
				continue
			}
			name := strings.TrimSuffix(entry.Name(), ext)
			if _, ok := seen[name]; !ok {
				seen[name] = dir
				names = append(names, name)
			}
		}
	}

	if len(names) == 0 {
		fmt.Println(yellow("No profiles found"))
		return nil
	}

	sort.Strings(names)
	fmt.Println(bold("Available profiles:"))
	for _, name := range names {
		fmt.Printf("  %s %s\n", name, gray("("+seen[name]+")"))
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
