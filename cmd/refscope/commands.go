package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/refscope"
)

var flagByName bool

var locateCmd = &cobra.Command{
	Use:   "locate <file> <name>",
	Short: "Find the first declaration of a variable in a file and its usages",
	Args:  cobra.ExactArgs(2),
	RunE:  runLocate,
}

var atCmd = &cobra.Command{
	Use:   "at <location>",
	Short: "Resolve the declaration enclosing a location and its usages",
	Long:  "Resolve the declaration enclosing the start of a location such as \"[src/a.ts 3:5-3:10]\" and list the usages that bind to it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAt,
}

var refsCmd = &cobra.Command{
	Use:   "refs <location> | refs --name <file> <name>",
	Short: "Find references to a declaration across the project",
	Long:  "Find references to a declaration across every file of the project the target belongs to, including destructured require() and import() loads.",
	Args: func(cmd *cobra.Command, args []string) error {
		if flagByName {
			return cobra.ExactArgs(2)(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runRefs,
}

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Report syntax errors that block resolution",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	refsCmd.Flags().BoolVar(&flagByName, "name", false, "take <file> <name> instead of a location")
}

func runLocate(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return outputError(cmd, err)
	}
	res, err := e.LocateVariable(cmd.Context(), args[0], args[1])
	if err != nil {
		return outputError(cmd, err)
	}
	return outputResult(cmd, CLIResult{Command: "locate", Results: res, TotalCount: intPtr(len(res.Usages))})
}

func runAt(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return outputError(cmd, err)
	}
	res, err := e.LocateAt(cmd.Context(), args[0])
	if err != nil {
		return outputError(cmd, err)
	}
	return outputResult(cmd, CLIResult{Command: "at", Results: res, TotalCount: intPtr(len(res.Usages))})
}

func runRefs(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return outputError(cmd, err)
	}
	var refs []refscope.Reference
	if flagByName {
		refs, err = e.FindReferencesByName(cmd.Context(), args[0], args[1])
	} else {
		refs, err = e.FindReferences(cmd.Context(), args[0])
	}
	if err != nil {
		return outputError(cmd, err)
	}
	return outputResult(cmd, CLIResult{Command: "refs", Results: refs, TotalCount: intPtr(len(refs))})
}

// errSyntax makes check exit non-zero after printing its diagnostics.
var errSyntax = errors.New("syntax errors found")

func runCheck(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return outputError(cmd, err)
	}
	diags, err := e.Check(cmd.Context(), args[0])
	if err != nil {
		return outputError(cmd, err)
	}
	if err := outputResult(cmd, CLIResult{Command: "check", Results: diags, TotalCount: intPtr(len(diags))}); err != nil {
		return err
	}
	if len(diags) > 0 {
		errorHandled = true
		return fmt.Errorf("%s: %w", args[0], errSyntax)
	}
	return nil
}
