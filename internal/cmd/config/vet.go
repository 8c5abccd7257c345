package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opmodel/weaver/internal/cmdtypes"
	"github.com/opmodel/weaver/internal/config"
	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/output"
)

func newVetCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "vet",
		Short: "Validate the weaver configuration file",
		Long: `Validate the weaver configuration file against the internal schema and
check that its values can be used for a weave.

The command validates ./weaver.yaml by default. Use the --config flag or
WEAVER_CONFIG to specify a different location.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runVet(gc.ConfigPath.Value)
		},
	}
}

func runVet(path string) error {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return fmt.Errorf("expanding config path: %w", err)
	}

	exists, err := config.ConfigFileExists(expanded)
	if err != nil {
		return fmt.Errorf("checking config file: %w", err)
	}
	if !exists {
		return oerrors.NewNotFoundError(
			fmt.Sprintf("config file not found: %s", expanded),
			expanded,
			"create one with 'weaver config init'",
		)
	}
	output.Println(output.FormatVetCheck("Config file found", expanded))

	cfg, err := config.NewLoader().Load(expanded)
	if err != nil {
		return err
	}
	output.Println(output.FormatVetCheck("Schema validation passed", ""))

	mode := "opt-out"
	switch {
	case len(cfg.IncludeAssemblies) > 0:
		mode = fmt.Sprintf("include %d", len(cfg.IncludeAssemblies))
	case len(cfg.ExcludeAssemblies) > 0:
		mode = fmt.Sprintf("exclude %d", len(cfg.ExcludeAssemblies))
	case cfg.Selection.LegacyOptOut:
		mode = "legacy opt-out"
	}
	output.Println(output.FormatVetCheck("Selection", mode))
	output.Println(output.FormatCheckmark(output.StyleSummary.Render("Config file is " + output.StatusValid)))
	return nil
}
