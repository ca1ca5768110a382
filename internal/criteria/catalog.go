// Package criteria holds the evaluation criteria catalog and the per-request
// snapshot of reviewer weights derived from stored preferences.
package criteria

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const CatalogPathEnv = "CRITERIA_CATALOG_YAML"

//go:embed catalog.yaml
var catalogFS embed.FS

type Criterion struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Best        string `yaml:"best" json:"best"`
	Worst       string `yaml:"worst" json:"worst"`
}

type Catalog struct {
	Version  int         `yaml:"version" json:"version"`
	Criteria []Criterion `yaml:"criteria" json:"criteria"`
}

func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.Criteria))
	for _, cr := range c.Criteria {
		out = append(out, cr.Name)
	}
	return out
}

func (c *Catalog) Has(name string) bool {
	for _, cr := range c.Criteria {
		if cr.Name == name {
			return true
		}
	}
	return false
}

// LoadCatalog reads the catalog from CRITERIA_CATALOG_YAML when set, otherwise
// from the embedded default.
func LoadCatalog() (*Catalog, error) {
	var (
		data []byte
		err  error
	)
	if path := strings.TrimSpace(os.Getenv(CatalogPathEnv)); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = catalogFS.ReadFile("catalog.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read criteria catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse criteria catalog: %w", err)
	}
	if err := validateCatalog(&cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func validateCatalog(cat *Catalog) error {
	if len(cat.Criteria) == 0 {
		return errors.New("criteria catalog: no criteria")
	}
	seen := make(map[string]bool, len(cat.Criteria))
	for i, cr := range cat.Criteria {
		name := strings.TrimSpace(cr.Name)
		if name == "" {
			return fmt.Errorf("criteria catalog: entry %d has no name", i)
		}
		if seen[name] {
			return fmt.Errorf("criteria catalog: duplicate criterion %q", name)
		}
		seen[name] = true
		cat.Criteria[i].Name = name
	}
	return nil
}
