package classify

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var builtinTables embed.FS

// Built-in table names.
const (
	TablePrimary   = "primary"
	TableHousehold = "household"
)

type tableFile struct {
	Rules []Rule `yaml:"rules"`
}

// ParseTable decodes a YAML keyword table. Rules are returned in file order.
func ParseTable(data []byte) ([]Rule, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse keyword table: %w", err)
	}
	for i, r := range tf.Rules {
		if strings.TrimSpace(r.Keyword) == "" || strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("keyword table rule %d: keyword and category are required", i+1)
		}
	}
	return tf.Rules, nil
}

// BuiltinTables lists the names of the embedded keyword tables.
func BuiltinTables() []string {
	entries, err := builtinTables.ReadDir("tables")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// LoadTable resolves ref to a rule list. ref is either the name of a
// built-in table or a path to a YAML file with the same layout.
func LoadTable(ref string) ([]Rule, error) {
	if ref == "" {
		ref = TablePrimary
	}

	if data, err := builtinTables.ReadFile("tables/" + ref + ".yaml"); err == nil {
		return ParseTable(data)
	}

	data, err := os.ReadFile(ref) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("keyword table %q is neither built in nor readable: %w", ref, err)
	}
	return ParseTable(data)
}

// Load builds a classifier from a table reference.
func Load(ref string) (*Classifier, error) {
	rules, err := LoadTable(ref)
	if err != nil {
		return nil, err
	}
	return New(rules), nil
}
