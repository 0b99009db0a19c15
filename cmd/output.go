package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/csvscope-cli/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats for commands that print structured results.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// resolveFormat validates an explicit --format, falling back to the
// configured output_format.
func resolveFormat(flag string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(flag))
	if f == "" {
		f = formatText
		if c, err := currentConfig(); err == nil && c.OutputFormat != "" {
			f = c.OutputFormat
		}
	}
	switch f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported --format: %s (use text|json|yaml)", flag)
}

// render encodes v in format; text output comes from the text callback.
func render(format string, v any, text func() string) ([]byte, error) {
	switch format {
	case formatJSON:
		b, err := utils.PrettyJSON(v)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case formatYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	default:
		return []byte(text()), nil
	}
}

// emit writes b to path when set, otherwise to the command's stdout.
func emit(cmd *cobra.Command, path string, b []byte) error {
	out := cmd.OutOrStdout()
	if path == "" {
		_, err := out.Write(b)
		return err
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(out, "✓ Wrote %s\n", path)
	return nil
}
