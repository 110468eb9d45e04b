package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/roach88/cardinal/internal/config"
	"github.com/roach88/cardinal/internal/harness"
)

// FileValidation is the validation outcome of one file.
type FileValidation struct {
	File   string   `json:"file"`
	Kind   string   `json:"kind"` // "config" or "scenario"
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate config and scenario files",
		Long: `Validate CUE config files (.cue) and scenario files (.yaml, .yml)
without running anything.

Config files are unified with the config schema; scenario files are checked
for unknown fields, unknown actions and incomplete assertions. Every problem
in a scenario is reported, not only the first.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		fv := validateFile(path)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = &CLIError{Code: ErrCodeInvalidFile, Message: "validation failed"}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(w, "✓ %s (%s)\n", fv.File, fv.Kind)
				continue
			}
			fmt.Fprintf(w, "✗ %s (%s)\n", fv.File, fv.Kind)
			for _, e := range fv.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// validateFile picks the validator by file extension.
func validateFile(path string) FileValidation {
	switch filepath.Ext(path) {
	case ".cue":
		fv := FileValidation{File: path, Kind: "config", Valid: true}
		if _, err := config.Load(path); err != nil {
			fv.Valid = false
			fv.Errors = []string{err.Error()}
		}
		return fv
	case ".yaml", ".yml":
		fv := FileValidation{File: path, Kind: "scenario", Valid: true}
		if _, err := harness.LoadScenario(path); err != nil {
			fv.Valid = false
			fv.Errors = scenarioErrors(err)
		}
		return fv
	default:
		return FileValidation{
			File:   path,
			Kind:   "unknown",
			Errors: []string{fmt.Sprintf("unsupported file type %q", filepath.Ext(path))},
		}
	}
}

// scenarioErrors splits a combined validation error into its problems.
func scenarioErrors(err error) []string {
	inner := errors.Unwrap(err)
	if inner == nil {
		return []string{err.Error()}
	}

	errs := multierr.Errors(inner)
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return msgs
}
