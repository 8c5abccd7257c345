package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/opmodel/weaver/internal/cmdtypes"
	"github.com/opmodel/weaver/internal/manifest"
	"github.com/opmodel/weaver/internal/output"
)

// diffOptions holds the flags for the diff command.
type diffOptions struct {
	full    bool
	noColor bool
}

// NewDiffCmd creates the diff command.
func NewDiffCmd(_ *cmdtypes.GlobalConfig) *cobra.Command {
	opts := &diffOptions{}

	c := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compare the manifests of two weaves",
		Long: `Compares two manifests written by 'weaver weave'.

Shows:
  - Added resources (embedded only by NEW)
  - Removed resources (embedded only by OLD)
  - Modified resources (embedded by both with different payloads)

With --full the whole documents are compared, including the stamp and
the loader variant.

Exit codes:
  0 - No differences found
  1 - Differences exist or an error occurred`,
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return runDiff(args[0], args[1], opts)
		},
	}

	c.Flags().BoolVar(&opts.full, "full", false, "Compare whole manifests instead of resources")
	c.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return c
}

func runDiff(oldPath, newPath string, opts *diffOptions) error {
	useColor := !opts.noColor && !output.IsNoColor()

	prev, err := manifest.ReadFile(oldPath)
	if err != nil {
		return err
	}
	cur, err := manifest.ReadFile(newPath)
	if err != nil {
		return err
	}

	var differs bool
	if opts.full {
		a, err := manifest.Marshal(prev)
		if err != nil {
			return err
		}
		b, err := manifest.Marshal(cur)
		if err != nil {
			return err
		}
		report, err := manifest.Diff(a, b, useColor)
		if err != nil {
			return err
		}
		if report == "" {
			output.Println("No changes detected.")
			return nil
		}
		output.Print(report)
		differs = true
	} else {
		changes, err := manifest.Compare(prev, cur, useColor)
		if err != nil {
			return err
		}
		styles := output.GetStyles()
		if !useColor {
			styles = output.NoColorStyles()
		}
		output.Println(output.RenderDiff(changes.Added, changes.Removed, changes.Modified, styles))
		differs = !changes.Empty()
	}

	if differs {
		// diff(1) convention: differences exit 1.
		return &cmdtypes.ExitError{
			Err:     errors.New("differences found"),
			Code:    cmdtypes.ExitGeneralError,
			Printed: true,
		}
	}
	return nil
}
