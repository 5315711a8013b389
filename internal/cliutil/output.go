package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/wandb/multiupload/internal/filetransfer"
)

// HandleOutput prints data according to the template or format flag of
// cmd. Without either, data is printed as indented JSON.
func HandleOutput(cmd *cobra.Command, data any) error {
	templateFlag, _ := cmd.Flags().GetString("template")
	formatFlag, _ := cmd.Flags().GetString("format")
	return WriteOutput(cmd.OutOrStdout(), data, formatFlag, templateFlag)
}

// WriteOutput writes data to w as a Go template, YAML or JSON.
func WriteOutput(w io.Writer, data any, format, tmpl string) error {
	if tmpl != "" {
		t, err := template.New("output").Parse(tmpl)
		if err != nil {
			return fmt.Errorf("failed to parse template: %w", err)
		}

		if err := t.Execute(w, data); err != nil {
			return fmt.Errorf("failed to execute template: %w", err)
		}
		fmt.Fprintln(w)
		return nil
	}

	var output []byte
	var err error

	switch format {
	case "yaml":
		output, err = yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal to YAML: %w", err)
		}
	default:
		output, err = json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal to JSON: %w", err)
		}
	}

	fmt.Fprintln(w, string(output))
	return nil
}

// PrintOutcome writes the one-line human-readable result of an upload.
func PrintOutcome(w io.Writer, outcome filetransfer.Outcome) {
	switch outcome.Status {
	case filetransfer.StatusSuccess:
		fmt.Fprintf(w, "Successfully uploaded %s to %s\n", outcome.Name, outcome.Url)
	case filetransfer.StatusAborted:
		fmt.Fprintf(w, "Upload task aborted for %s: %v\n", outcome.Name, outcome.Err)
	default:
		fmt.Fprintf(w, "Upload failed for %s: %v\n", outcome.Name, outcome.Err)
	}
}
