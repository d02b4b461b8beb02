package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ruleFile is the YAML surface of a rule set.
type ruleFile struct {
	Rules []ruleDef `yaml:"rules"`
}

type ruleDef struct {
	Name     string   `yaml:"name"`
	Priority int      `yaml:"priority"`
	Enabled  *bool    `yaml:"enabled"` // nil means enabled
	When     []string `yaml:"when"`
	Then     []string `yaml:"then"`
}

// Parse compiles raw YAML rule text. Each malformed rule is skipped
// and reported in errs; well-formed rules still load. Only a broken
// document as a whole aborts.
func Parse(data []byte) (rs []Rule, errs []error, err error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("rule file: %w", err)
	}
	for _, def := range f.Rules {
		r, err := compileRule(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rs = append(rs, r)
	}
	SortRules(rs)
	return rs, errs, nil
}

func compileRule(def ruleDef) (Rule, error) {
	r := Rule{
		Name:     def.Name,
		Priority: def.Priority,
		Enabled:  def.Enabled == nil || *def.Enabled,
	}
	for _, raw := range def.When {
		pat, gd, err := compileWhen(def.Name, raw)
		if err != nil {
			return Rule{}, err
		}
		if pat != nil {
			r.Patterns = append(r.Patterns, *pat)
		} else {
			r.Guards = append(r.Guards, *gd)
		}
	}
	for _, raw := range def.Then {
		act, err := compileThen(def.Name, raw)
		if err != nil {
			return Rule{}, err
		}
		r.Actions = append(r.Actions, *act)
	}
	if err := r.Validate(); err != nil {
		return Rule{}, &ParseError{Rule: def.Name, Err: err}
	}
	return r, nil
}

// LoadFile parses one rule file from disk.
func LoadFile(path string) ([]Rule, []error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return Parse(data)
}

// LoadDir loads every *.yaml / *.yml rule file in dir, in name order.
// Per-rule errors are logged and skipped; a missing directory loads
// zero rules.
func LoadDir(dir string, logger *zap.Logger) ([]Rule, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var all []Rule
	for _, name := range names {
		path := filepath.Join(dir, name)
		rs, errs, err := LoadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable rule file",
				zap.String("path", path), zap.Error(err))
			continue
		}
		for _, perr := range errs {
			logger.Warn("skipping malformed rule",
				zap.String("path", path), zap.Error(perr))
		}
		all = append(all, rs...)
	}
	SortRules(all)
	return all, nil
}
