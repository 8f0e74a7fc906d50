package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jward/refscope"
)

// formatVariableText prints the declaration followed by its usages as
// "<location> <text>" lines.
func formatVariableText(w io.Writer, res *refscope.VariableLocationResult) {
	fmt.Fprintf(w, "%s %s\n", res.Declaration.Location, res.Declaration.Text)
	for _, u := range res.Usages {
		fmt.Fprintf(w, "%s %s\n", u.Location, u.Text)
	}
}

// formatReferencesText prints one "<location> <text>" line per reference.
func formatReferencesText(w io.Writer, refs []refscope.Reference) {
	for _, r := range refs {
		fmt.Fprintf(w, "%s %s\n", r.Location, r.Text)
	}
}

// formatDiagnosticsText prints compiler-style "file:line:col: message"
// lines.
func formatDiagnosticsText(w io.Writer, diags []refscope.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s:%d:%d: %s\n", d.File, d.Line, d.Column, d.Message)
	}
}

// outputResult writes result to the command's stdout in the selected
// format.
func outputResult(cmd *cobra.Command, result CLIResult) error {
	w := cmd.OutOrStdout()
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case *refscope.VariableLocationResult:
		formatVariableText(w, v)
	case []refscope.Reference:
		formatReferencesText(w, v)
	case []refscope.Diagnostic:
		formatDiagnosticsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputError reports err in the selected format and marks it handled.
func outputError(cmd *cobra.Command, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: cmd.Name(), Error: err.Error()})
	return err
}
