package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/deliver/internal/compiler"
	"github.com/roach88/deliver/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled content.
type CompilationResult struct {
	Items      []*ir.ItemDefinition `json:"items"`
	Tests      []*ir.TestDefinition `json:"tests"`
	Deliveries []*ir.Delivery       `json:"deliveries"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [content-dir]",
		Short: "Compile CUE content to IR",
		Long: `Compile the CUE items, tests and deliveries of a content directory.

The compiler parses the CUE package, compiles every definition, checks
the cross references between them and optionally writes the compiled
IR as JSON. Without an argument the --specs directory is compiled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, contentDirArg(rootOpts, args), cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

// contentDirArg returns the directory named on the command line, or the
// configured content directory.
func contentDirArg(opts *RootOptions, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return opts.Config.ContentDir
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if dir == "" {
		return outputCompileError(formatter, compiler.ErrCodeNotFound, "content directory not set: pass it or use --specs", nil)
	}

	// Collect all compile errors for a full report
	bundle, loadErrors := compiler.LoadDir(dir, compiler.LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if bundle == nil && len(loadErrors) > 0 {
		var loadErr *compiler.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, compiler.ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", bundle.FileCount, dir)
	for _, it := range bundle.Items {
		formatter.VerboseLog("Compiled item: %s", it.Identifier)
	}
	for _, t := range bundle.Tests {
		formatter.VerboseLog("Compiled test: %s", t.Identifier)
	}
	for _, d := range bundle.Deliveries {
		formatter.VerboseLog("Compiled delivery: %s (%s %s)", d.ID, d.Kind, d.AssessmentRef)
	}

	// Cross references are only meaningful once everything compiled
	if len(loadErrors) == 0 {
		for _, verr := range compiler.ValidateBundle(bundle) {
			loadErrors = append(loadErrors, verr)
		}
	}
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := &CompilationResult{
		Items:      bundle.Items,
		Tests:      bundle.Tests,
		Deliveries: bundle.Deliveries,
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, compiler.ErrCodeGeneric, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d item(s), %d test(s), %d delivery(ies)\n\n",
		len(result.Items), len(result.Tests), len(result.Deliveries))

	if len(result.Items) > 0 {
		fmt.Fprintln(formatter.Writer, "Items:")
		for _, it := range result.Items {
			fmt.Fprintf(formatter.Writer, "  %s: %d response(s), %d interaction(s), %d template variable(s)\n",
				it.Identifier, len(it.Responses), len(it.Interactions), len(it.Templates))
		}
		fmt.Fprintln(formatter.Writer)
	}

	if len(result.Tests) > 0 {
		fmt.Fprintln(formatter.Writer, "Tests:")
		for _, t := range result.Tests {
			fmt.Fprintf(formatter.Writer, "  %s: %d part(s)\n", t.Identifier, len(t.Parts))
		}
		fmt.Fprintln(formatter.Writer)
	}

	if len(result.Deliveries) > 0 {
		fmt.Fprintln(formatter.Writer, "Deliveries:")
		for _, d := range result.Deliveries {
			fmt.Fprintf(formatter.Writer, "  %s: %s → %s\n", d.ID, d.Kind, d.AssessmentRef)
		}
		fmt.Fprintln(formatter.Writer)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote IR to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var verr compiler.ValidationError
	if errors.As(err, &verr) {
		return verr.Code, verr.Field + ": " + verr.Message
	}
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return compiler.ErrCodeCompile, compileErr.Field + ": " + compileErr.Message
	}
	return compiler.ErrCodeGeneric, err.Error()
}

// writeIRToFile writes the compilation result to a file as indented JSON.
func writeIRToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
