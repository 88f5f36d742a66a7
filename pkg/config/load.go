package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load parses a YAML document, applies defaults and validates it. Unknown
// top-level and section fields are rejected.
func Load(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	doc.ApplyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadBytes parses a YAML document held in memory.
func LoadBytes(b []byte) (*Document, error) {
	return Load(bytes.NewReader(b))
}

// LoadFile parses the YAML document at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening configuration: %w", err)
	}
	defer f.Close()
	doc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ApplyDefaults fills the document-level fallbacks: schema version, model
// temperature, state reducer and memory keys. Load calls it before
// validation; programmatic builders call it on hand-assembled documents.
func (d *Document) ApplyDefaults() {
	if d.Meta.SchemaVersion == 0 {
		d.Meta.SchemaVersion = 1
	}
	if d.Meta.Defaults.Temp == 0 {
		d.Meta.Defaults.Temp = 0.3
	}
	if d.State.Reducer == "" {
		d.State.Reducer = "deepmerge"
	}
	if d.Memory != nil {
		if d.Memory.Kind == "" {
			d.Memory.Kind = "inmemory"
		}
		if d.Memory.SessionKey == "" {
			d.Memory.SessionKey = "session_id"
		}
	}
}
