package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// printYAML writes v as YAML. The value goes through JSON first so that the keys are the
// ones the backend uses.
func printYAML(out io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	err = json.Unmarshal(raw, &generic)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	err = enc.Encode(generic)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return enc.Close()
}
