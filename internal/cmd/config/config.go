// Package config provides the `weaver config` command group.
package config

import (
	"github.com/spf13/cobra"

	"github.com/opmodel/weaver/internal/cmdtypes"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long: `Configuration management for weaver.

Settings are read from weaver.yaml in the current directory, or from the
file named by --config or WEAVER_CONFIG. Every setting can be overridden
with a WEAVER_ environment variable.`,
	}

	c.AddCommand(
		newInitCmd(gc),
		newVetCmd(gc),
	)

	return c
}
