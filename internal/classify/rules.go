package classify

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed embedded_rules.yaml
var defaultRulesYAML []byte

// LoadDefaultRules loads the embedded rule table. Order in the file is the
// evaluation order.
func LoadDefaultRules() ([]*Rule, error) {
	var rules []*Rule
	if err := yaml.Unmarshal(defaultRulesYAML, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse embedded rules: %w", err)
	}
	return rules, nil
}

// LoadRulesFromFile loads a rule table from a YAML file so operators can
// extend the vocabulary without a rebuild.
func LoadRulesFromFile(filename string) ([]*Rule, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("empty rule file path")
	}

	ext := strings.ToLower(filepath.Ext(filepath.Clean(filename)))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("rule files must have .yaml or .yml extension")
	}

	// #nosec G304 - extension is validated above
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	var rules []*Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	return rules, nil
}
