// Package profile loads profile documents from the project and user profile
// directories and resolves their inheritance chains into configuration
// layers ready for merging.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"

	"amplifier/internal/config"
	errs "amplifier/internal/errors"
	"amplifier/internal/utils"
)

// extensions tried in order when resolving a profile name to a file.
// Markdown profiles carry their configuration as YAML frontmatter.
var extensions = []string{".yaml", ".yml", ".md"}

const cacheSize = 32

// Loader resolves profile names to parsed documents. Parsed files are kept
// in a small LRU cache keyed by path, so repeated chain walks (profile show,
// session startup) do not re-read the same parents.
type Loader struct {
	searchPaths []string
	cache       *lru.Cache[string, map[string]any]
	logger      *utils.Logger
}

// NewLoader creates a Loader over the given search paths, highest precedence
// first. With no paths it uses the default project-then-user locations.
func NewLoader(searchPaths ...string) *Loader {
	if len(searchPaths) == 0 {
		searchPaths = config.ProfileSearchPaths()
	}
	cache, _ := lru.New[string, map[string]any](cacheSize)
	return &Loader{
		searchPaths: searchPaths,
		cache:       cache,
		logger:      utils.NewComponentLogger("Profile"),
	}
}

// Find returns the path of the named profile, or a NotFoundError.
func (l *Loader) Find(name string) (string, error) {
	for _, dir := range l.searchPaths {
		for _, ext := range extensions {
			path := filepath.Join(dir, name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", errs.NewNotFound("profile", name)
}

// Load parses the named profile document. The result is shared with the
// cache; callers get their own deep copy.
func (l *Loader) Load(name string) (map[string]any, error) {
	path, err := l.Find(name)
	if err != nil {
		return nil, err
	}
	doc, err := l.loadFile(path)
	if err != nil {
		return nil, err
	}
	return config.CloneMap(doc), nil
}

func (l *Loader) loadFile(path string) (map[string]any, error) {
	if doc, ok := l.cache.Get(path); ok {
		return doc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".md") {
		data = frontmatter(data)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	l.cache.Add(path, doc)
	l.logger.Debug("Loaded profile %s", path)
	return doc, nil
}

// Chain resolves the named profile and its extends ancestry into layers,
// root (most distant ancestor) first. The extends key is chain metadata and
// is stripped from the returned layer configs. A cycle is a validation
// error naming the repeated profile.
func (l *Loader) Chain(name string) ([]config.Layer, error) {
	var layers []config.Layer
	visited := map[string]bool{}

	for current := name; current != ""; {
		if visited[current] {
			return nil, errs.NewValidation("profile", "inheritance cycle at %q", current)
		}
		visited[current] = true

		doc, err := l.Load(current)
		if err != nil {
			return nil, err
		}

		parent, _ := doc["extends"].(string)
		delete(doc, "extends")
		layers = append(layers, config.Layer{Name: current, Config: doc})
		current = parent
	}

	// Reverse so the root ancestor merges first.
	for i, j := 0, len(layers)-1; i < j; i, j = i+1, j-1 {
		layers[i], layers[j] = layers[j], layers[i]
	}
	return layers, nil
}

// Resolve loads the named profile, walks its extends chain, and merges the
// layers root-first into a single effective profile document. Profile
// documents merge generically; the agents access filter only applies when
// merging agent overlays onto resolved mount plans, not here.
func (l *Loader) Resolve(name string) (map[string]any, error) {
	layers, err := l.Chain(name)
	if err != nil {
		return nil, err
	}
	merged := map[string]any{}
	for _, layer := range layers {
		merged = config.MergeProfiles(merged, layer.Config)
	}
	return merged, nil
}

// frontmatter extracts the YAML block delimited by --- lines at the top of
// a markdown profile. A document without frontmatter yields an empty config.
func frontmatter(data []byte) []byte {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return nil
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil
	}
	return []byte(rest[:end])
}
