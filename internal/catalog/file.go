package catalog

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk YAML shape consumed by the CLI.
type catalogFile struct {
	Items []struct {
		Code string            `yaml:"code"`
		Name string            `yaml:"name"`
		Spec map[string]string `yaml:"spec"`
	} `yaml:"items"`
	BOMs map[string][]struct {
		Component string `yaml:"component"`
		Quantity  int    `yaml:"quantity"`
		Effective string `yaml:"effective"`
		Expiry    string `yaml:"expiry"`
	} `yaml:"boms"`
}

// LoadFile parses a YAML catalog file into an in-memory Source.
// Dates use 2006-01-02; missing dates mean always active.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	m := NewMemory()
	for _, it := range f.Items {
		if it.Code == "" {
			return nil, fmt.Errorf("catalog %s: item with empty code", path)
		}
		m.AddItem(Item{Code: it.Code, Name: it.Name, Spec: it.Spec})
	}
	for master, lines := range f.BOMs {
		for i, ln := range lines {
			eff, err := parseDate(ln.Effective)
			if err != nil {
				return nil, fmt.Errorf("catalog %s: bom %s line %d: %w", path, master, i, err)
			}
			exp, err := parseDate(ln.Expiry)
			if err != nil {
				return nil, fmt.Errorf("catalog %s: bom %s line %d: %w", path, master, i, err)
			}
			qty := ln.Quantity
			if qty <= 0 {
				qty = 1
			}
			m.AddLine(master, Line{
				ComponentCode: ln.Component,
				Quantity:      qty,
				Effective:     eff,
				Expiry:        exp,
			})
		}
	}
	return m, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return t, nil
}
