package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zoobzio/arbor"
	"gopkg.in/yaml.v3"
)

// writeSnapshot encodes snap to w as YAML or JSON.
func writeSnapshot(w io.Writer, snap arbor.SessionSnapshot, asYAML bool) error {
	if asYAML {
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(snap); err != nil {
			return err
		}
		return encoder.Close()
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snap)
}

// exportSnapshot writes snap to path. The format follows the extension:
// .yaml and .yml produce YAML, anything else JSON.
func exportSnapshot(path string, snap arbor.SessionSnapshot) error {
	ext := strings.ToLower(filepath.Ext(path))
	asYAML := ext == ".yaml" || ext == ".yml"

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := writeSnapshot(f, snap, asYAML); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	return f.Close()
}
