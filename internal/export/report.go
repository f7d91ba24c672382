package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/moguls753/docbench/internal/display"
	"github.com/moguls753/docbench/internal/runner"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// WriteReport renders r in format: text tables, indented JSON or YAML.
func WriteReport(w io.Writer, r *runner.Report, format string) error {
	switch format {
	case "", FormatText:
		display.Report(w, r)
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil
	case FormatYAML:
		out, err := yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown report format: %s", format)
	}
}

// ReportToFile writes the report to outputPath.
func ReportToFile(r *runner.Report, format, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := WriteReport(file, r, format); err != nil {
		return err
	}
	return file.Close()
}
