package rewriter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"go.yaml.in/yaml/v2"
)

// DefaultSection is the key the rewrite table is nested under in application
// config files, e.g. {"ProxyOptions": {"/api/old": "/api/new"}}.
const DefaultSection = "ProxyOptions"

// Load reads a rewrite table from a JSON or YAML file, picked by extension.
// An empty section means the document itself is the table.
func Load(path string, section string) (Rewriters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rewrites from %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data, section)
	default:
		return ParseJSON(data, section)
	}
}

// ParseJSON parses an object of pattern to target prefix pairs, keeping
// document order.
func ParseJSON(data []byte, section string) (Rewriters, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid rewrites json")
	}

	table := gjson.ParseBytes(data)
	if section != "" {
		table = table.Get(gjson.Escape(section))
		if !table.Exists() {
			return nil, fmt.Errorf("rewrites section %q not found", section)
		}
	}
	if !table.IsObject() {
		return nil, fmt.Errorf("rewrites must be an object, got %s", table.Type)
	}

	rewriters := Rewriters{}
	var err error
	table.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			err = fmt.Errorf("rewrite target for %q must be a string, got %s", key.String(), value.Type)
			return false
		}

		rewriters = append(rewriters, Rewriter{From: key.String(), To: value.String()})
		return true
	})
	if err != nil {
		return nil, err
	}

	return rewriters, nil
}

// ParseYAML is ParseJSON for YAML mappings.
func ParseYAML(data []byte, section string) (Rewriters, error) {
	var doc yaml.MapSlice
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid rewrites yaml: %w", err)
	}

	table := doc
	if section != "" {
		found := false
		for _, item := range doc {
			if key, ok := item.Key.(string); ok && key == section {
				nested, ok := item.Value.(yaml.MapSlice)
				if !ok {
					return nil, fmt.Errorf("rewrites section %q must be a mapping", section)
				}

				table, found = nested, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("rewrites section %q not found", section)
		}
	}

	rewriters := Rewriters{}
	for _, item := range table {
		from, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("rewrite pattern %v must be a string", item.Key)
		}
		to, ok := item.Value.(string)
		if !ok {
			return nil, fmt.Errorf("rewrite target for %q must be a string", from)
		}

		rewriters = append(rewriters, Rewriter{From: from, To: to})
	}

	return rewriters, nil
}
