package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// OutputFormat selects how results are rendered.
type OutputFormat string

const (
	// FormatYAML is the default terminal format.
	FormatYAML OutputFormat = "yaml"
	// FormatJSON renders indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatRaw writes strings and byte slices verbatim.
	FormatRaw OutputFormat = "raw"
)

// OutputOptions configures result rendering.
type OutputOptions struct {
	// Format defaults to FormatYAML.
	Format OutputFormat
	// File writes to a path instead of stdout.
	File string
	// Writer overrides File and stdout when set.
	Writer io.Writer
}

// Output renders a result to the configured destination.
func Output(result any, opts OutputOptions) error {
	var w io.Writer = os.Stdout
	if opts.Writer != nil {
		w = opts.Writer
	} else if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("cli: create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML, "":
		data, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("cli: format output: %w", err)
		}
		_, err = w.Write(data)
		return err
	case FormatRaw:
		switch v := result.(type) {
		case []byte:
			_, err := w.Write(v)
			return err
		case string:
			_, err := io.WriteString(w, v)
			return err
		default:
			return fmt.Errorf("cli: raw format requires string or bytes, got %T", result)
		}
	default:
		return fmt.Errorf("cli: unsupported output format %q", opts.Format)
	}
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
