package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// validateOutputFormat rejects an unknown -o value before a command changes
// anything.
func validateOutputFormat(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case "", "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", outputFormat)
	}
}

// writeStructured encodes v as JSON or YAML. It reports false for the text
// format so the caller renders a table instead.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "", "text":
		return false, nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return true, fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}
