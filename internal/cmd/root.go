// Package cmd provides CLI command implementations.
package cmd

import (
	"github.com/spf13/cobra"

	cachecmd "github.com/opmodel/weaver/internal/cmd/cache"
	configcmd "github.com/opmodel/weaver/internal/cmd/config"
	templatecmd "github.com/opmodel/weaver/internal/cmd/template"
	"github.com/opmodel/weaver/internal/cmdtypes"
	"github.com/opmodel/weaver/internal/config"
	"github.com/opmodel/weaver/internal/output"
)

// NewRootCmd creates the root command for the weaver CLI.
func NewRootCmd() *cobra.Command {
	gc := &cmdtypes.GlobalConfig{}

	var (
		configFlag     string
		verboseFlag    bool
		timestampsFlag bool
	)

	rootCmd := &cobra.Command{
		Use:   "weaver",
		Short: "Embed a module's dependencies into the module itself",
		Long: `weaver embeds the dependencies of a compiled module as resources and
clones a loader into it that resolves them at run time, so the module
ships as a single file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			var timestamps *bool
			if c.Flags().Changed("timestamps") {
				timestamps = output.BoolPtr(timestampsFlag)
			}
			initializeGlobals(gc, configFlag, verboseFlag, timestamps)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file (env: WEAVER_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&timestampsFlag, "timestamps", true, "Show timestamps in log output")

	rootCmd.AddCommand(
		NewWeaveCmd(gc),
		NewResourcesCmd(gc),
		NewDiffCmd(gc),
		cachecmd.NewCacheCmd(gc),
		configcmd.NewConfigCmd(gc),
		templatecmd.NewTemplateCmd(gc),
		NewVersionCmd(gc),
	)

	return rootCmd
}

// initializeGlobals sets up logging and loads configuration into gc.
// A configuration error is kept on gc; only commands that read the
// configuration fail on it.
func initializeGlobals(gc *cmdtypes.GlobalConfig, configFlag string, verbose bool, timestamps *bool) {
	gc.Verbose = verbose
	gc.ConfigPath = config.ResolveConfigPath(configFlag)

	// Logging first, so config loading can log.
	output.SetupLogging(output.LogConfig{Verbose: verbose, Timestamps: timestamps})

	cfg, err := config.NewLoader().Load(gc.ConfigPath.Value)
	if err != nil {
		output.Debug("config load error", "error", err)
		gc.ConfigErr = err
		return
	}
	gc.Config = cfg

	// Timestamps: flag (if explicitly set) > config > default (on).
	if timestamps == nil && cfg.Log.Timestamps != nil {
		output.SetupLogging(output.LogConfig{Verbose: verbose, Timestamps: cfg.Log.Timestamps})
	}

	config.LogResolvedValues(gc.ConfigPath)
}
