package format

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type DataFormat string

var _ pflag.Value = (*DataFormat)(nil)

const (
	FORMAT_LIST DataFormat = "list"
	FORMAT_CSV  DataFormat = "csv"
	FORMAT_JSON DataFormat = "json"
	FORMAT_YAML DataFormat = "yaml"
)

func (df DataFormat) String() string {
	return string(df)
}

func (df *DataFormat) Set(v string) error {
	switch DataFormat(strings.ToLower(v)) {
	case FORMAT_LIST, FORMAT_CSV, FORMAT_JSON, FORMAT_YAML:
		*df = DataFormat(strings.ToLower(v))
		return nil
	default:
		return fmt.Errorf("must be one of %v", []DataFormat{
			FORMAT_LIST, FORMAT_CSV, FORMAT_JSON, FORMAT_YAML,
		})
	}
}

func (df DataFormat) Type() string {
	return "DataFormat"
}

// Marshal marshals arbitrary data into a byte slice formatted as outFormat.
// Tabular formats (list, csv) are written by their callers and return an
// error here.
func Marshal(data interface{}, outFormat DataFormat) ([]byte, error) {
	switch outFormat {
	case FORMAT_JSON:
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data into JSON: %w", err)
		}
		return b, nil
	case FORMAT_YAML:
		b, err := yaml.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data into YAML: %w", err)
		}
		return b, nil
	case FORMAT_LIST, FORMAT_CSV:
		return nil, fmt.Errorf("data format %s cannot be marshaled", outFormat)
	default:
		return nil, fmt.Errorf("unknown data format: %s", outFormat)
	}
}

// Unmarshal unmarshals a byte slice formatted as inFormat into v.
func Unmarshal(data []byte, v interface{}, inFormat DataFormat) error {
	switch inFormat {
	case FORMAT_JSON:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to unmarshal data from JSON: %w", err)
		}
	case FORMAT_YAML:
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to unmarshal data from YAML: %w", err)
		}
	case FORMAT_LIST, FORMAT_CSV:
		return fmt.Errorf("data format %s cannot be unmarshaled", inFormat)
	default:
		return fmt.Errorf("unknown data format: %s", inFormat)
	}
	return nil
}

// DataFormatFromFileExt picks the format of a file from its extension,
// falling back to defaultFmt for anything it does not recognize.
func DataFormatFromFileExt(path string, defaultFmt DataFormat) DataFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FORMAT_CSV
	case ".json":
		return FORMAT_JSON
	case ".yaml", ".yml":
		return FORMAT_YAML
	}
	return defaultFmt
}
