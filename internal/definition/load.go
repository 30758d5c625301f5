package definition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load rewrites legacy aliases, validates, and normalizes raw input.
// The definition is nil whenever the report has violations.
func Load(raw map[string]any) (*TaskDefinition, *Report) {
	m, rewrites := applyAliases(raw)
	report := &Report{
		Violations: check(m),
		Rewrites:   rewrites,
		Notices:    []string{},
	}
	if report.Violations == nil {
		report.Violations = []Violation{}
	}
	if report.Rewrites == nil {
		report.Rewrites = []Rewrite{}
	}

	def := &TaskDefinition{}
	for _, field := range ScalarFields {
		v, ok := m[field]
		if !ok {
			continue
		}
		if !isScalar(v) {
			if !slices.Contains(RequiredFields, field) {
				report.Notices = append(report.Notices, fmt.Sprintf("%s: expected text, got %s; ignored", field, describe(v)))
			}
			continue
		}
		def.setScalar(field, strings.TrimSpace(stringify(v)))
	}
	for _, field := range SequenceFields {
		v := m[field]
		switch v.(type) {
		case map[string]any, map[any]any:
			if field != FieldSteps {
				report.Notices = append(report.Notices, fmt.Sprintf("%s: expected list, got mapping; replaced with empty list", field))
			}
		}
		def.setSequence(field, normalizeSequence(v))
	}

	pairs, ok := normalizeTroubleshooting(m[FieldTroubleshooting])
	if !ok {
		report.Notices = append(report.Notices, fmt.Sprintf("troubleshooting: expected mapping, got %s; replaced with empty mapping", describe(m[FieldTroubleshooting])))
	}
	def.Troubleshooting = pairs

	if !report.Valid() {
		return nil, report
	}
	return def, report
}

// Format names an input encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// FormatForFile picks the decoder from a filename extension; YAML is the default.
func FormatForFile(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".xlsx", ".xlsm":
		return FormatXLSX
	}
	return FormatYAML
}

// Decode reads one raw definition mapping.
func Decode(r io.Reader, format Format) (map[string]any, error) {
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return raw, nil
	case FormatXLSX:
		return DecodeXLSX(r)
	default:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read definition: %w", err)
		}
		var raw map[string]any
		if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
			if err == io.EOF {
				return map[string]any{}, nil
			}
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return raw, nil
	}
}

// ReadFile decodes a definition file using its extension.
func ReadFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open definition: %w", err)
	}
	defer f.Close()
	return Decode(f, FormatForFile(path))
}

// LoadFile reads, validates and normalizes a definition file. A non-nil
// error is either an I/O or decode failure, or a *ValidationError.
func LoadFile(path string) (*TaskDefinition, *Report, error) {
	raw, err := ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	def, report := Load(raw)
	return def, report, report.Err()
}
