package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by WriteDocument.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCBOR = "cbor"
)

func EnsureDir(dirPath string) error {
	return os.MkdirAll(dirPath, 0o755)
}

func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

func WritePrettyJSON(path string, value any) error {
	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json for %q: %w", path, err)
	}
	return WriteFile(path, pretty)
}

func WriteYAML(path string, value any) error {
	encoded, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode yaml for %q: %w", path, err)
	}
	return WriteFile(path, encoded)
}

func WriteCBOR(path string, value any) error {
	encoded, err := cbor.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cbor for %q: %w", path, err)
	}
	return WriteFile(path, encoded)
}

// ValidateFormat returns the normalized format name or an error naming the accepted ones.
func ValidateFormat(format string) (string, error) {
	normalized := ToLowerTrim(format)
	switch normalized {
	case "":
		return FormatJSON, nil
	case "yml":
		return FormatYAML, nil
	case FormatJSON, FormatYAML, FormatCBOR:
		return normalized, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want %s, %s or %s)", format, FormatJSON, FormatYAML, FormatCBOR)
	}
}

// WriteDocument writes value to path in the given format, which must already be validated.
func WriteDocument(path, format string, value any) error {
	switch format {
	case FormatYAML:
		return WriteYAML(path, value)
	case FormatCBOR:
		return WriteCBOR(path, value)
	default:
		return WritePrettyJSON(path, value)
	}
}

func PrintLine(line string) {
	fmt.Println(line)
}
