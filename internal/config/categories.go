package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
)

// CategoriesFile is the YAML layout of CATEGORIES_FILE:
//
//	expense: [Rent, Groceries, Other]
//	income: [Salary]
//	subscription: [Streaming]
type CategoriesFile struct {
	Expense      []string `yaml:"expense"`
	Income       []string `yaml:"income"`
	Subscription []string `yaml:"subscription"`
	Debt         []string `yaml:"debt"`
}

// LoadCategories reads the categories seeded for new owners. Blank and
// duplicate names are dropped.
func LoadCategories(path string) (map[core.CategoryKind][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}

	var file CategoriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	out := make(map[core.CategoryKind][]string)
	add := func(kind core.CategoryKind, names []string) {
		seen := make(map[string]bool)
		for _, n := range names {
			n = strings.TrimSpace(n)
			key := strings.ToLower(n)
			if n == "" || seen[key] {
				continue
			}
			seen[key] = true
			out[kind] = append(out[kind], n)
		}
	}
	add(core.CategoryKind(core.Expense), file.Expense)
	add(core.CategoryKind(core.Income), file.Income)
	add(core.CategoryKind(core.Subscription), file.Subscription)
	add(core.DebtCategory, file.Debt)

	if len(out) == 0 {
		return nil, fmt.Errorf("categories file %s defines no categories", path)
	}
	return out, nil
}
