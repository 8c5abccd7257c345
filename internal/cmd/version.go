package cmd

import (
	"github.com/spf13/cobra"

	"github.com/opmodel/weaver/internal/cmdtypes"
	"github.com/opmodel/weaver/internal/output"
	"github.com/opmodel/weaver/internal/templates"
	"github.com/opmodel/weaver/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd(_ *cmdtypes.GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show weaver version information.

Displays:
  - weaver version, commit, and build date
  - CUE SDK version (used for config validation)
  - built-in loader template version`,
		RunE: func(_ *cobra.Command, _ []string) error {
			output.Println(version.Get().String())
			output.Println("  Loader:    " + templates.LoaderName + " " + templates.LoaderVersion)
			return nil
		},
	}
}
