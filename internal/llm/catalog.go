package llm

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"actionbot/internal/types"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type ProviderInfo struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	RequiresAPIKey bool     `yaml:"requires_api_key"`
	Models         []string `yaml:"models"`
}

// Catalog lists the providers the factory can build.
type Catalog struct {
	Providers []ProviderInfo `yaml:"providers"`
}

// LoadCatalog reads the catalog at path, or the embedded one when path is
// empty.
func LoadCatalog(path string) (*Catalog, error) {
	b := defaultCatalog
	if path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read provider catalog: %w", err)
		}
	}
	return ParseCatalog(b)
}

func ParseCatalog(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse provider catalog: %w", err)
	}
	seen := map[string]bool{}
	for i, p := range c.Providers {
		id := strings.ToLower(strings.TrimSpace(p.ID))
		if id == "" {
			return nil, fmt.Errorf("provider catalog: entry %d has no id", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("provider catalog: duplicate id %q", id)
		}
		seen[id] = true
		c.Providers[i].ID = id
	}
	return &c, nil
}

// DefaultCatalog is the embedded catalog. It panics only if the embedded
// file is broken.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Lookup(id string) (ProviderInfo, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderInfo{}, false
}

// KeyedProviders returns the ids that accept a global API key.
func (c *Catalog) KeyedProviders() []string {
	var out []string
	for _, p := range c.Providers {
		if p.RequiresAPIKey {
			out = append(out, p.ID)
		}
	}
	return out
}

// View renders the catalog for the providers endpoint.
func (c *Catalog) View() map[string]types.Provider {
	out := make(map[string]types.Provider, len(c.Providers))
	for _, p := range c.Providers {
		out[p.ID] = types.Provider{
			Name:           p.Name,
			Models:         append([]string{}, p.Models...),
			RequiresAPIKey: p.RequiresAPIKey,
		}
	}
	return out
}
