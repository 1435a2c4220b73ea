package validate

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// probeJSON strictly parses content as JSON.
func probeJSON(content string) error {
	var v interface{}
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return fmt.Errorf("json syntax error: %w", err)
	}
	return nil
}

// probeYAML strictly parses content as YAML.
func probeYAML(content string) error {
	var v interface{}
	if err := yaml.Unmarshal([]byte(content), &v); err != nil {
		return fmt.Errorf("yaml syntax error: %w", err)
	}
	return nil
}
