package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opmodel/weaver/internal/cmdtypes"
	"github.com/opmodel/weaver/internal/config"
	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/output"
)

// starterConfig is the file written by 'weaver config init'. Every value is
// the built-in default.
const starterConfig = `# weaver configuration. Every setting may be overridden with a WEAVER_
# environment variable, e.g. WEAVER_DISABLE_COMPRESSION=true.

# Embed the .pdb next to each dependency.
includeDebugSymbols: true

# Store payloads uncompressed.
disableCompression: false

# Extract every dependency to a temporary directory before loading it.
createTemporaryAssemblies: false

# Dependencies to embed (by file name without extension). When set, only
# these are embedded. Cannot be combined with excludeAssemblies.
# includeAssemblies: []

# Dependencies never to embed.
# excludeAssemblies: []

# Native libraries, preloaded by 32-bit and 64-bit processes.
# unmanaged32Assemblies: []
# unmanaged64Assemblies: []

# Logical names registered ahead of all others.
# preloadOrder: []

loader:
  namespace: Weaver
  name: AssemblyLoader

log:
  timestamps: true
`

func newInitCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Writes a weaver.yaml holding every setting with its default value to the
resolved config path (--config, WEAVER_CONFIG, or ./weaver.yaml).`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(gc.ConfigPath.Value, force)
		},
	}

	c.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return c
}

func runInit(path string, force bool) error {
	if path == "" {
		path = config.DefaultConfigFile
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return fmt.Errorf("expanding config path: %w", err)
	}

	exists, err := config.ConfigFileExists(expanded)
	if err != nil {
		return fmt.Errorf("checking config file: %w", err)
	}
	if exists && !force {
		return &oerrors.DetailError{
			Type:     "config file exists",
			Message:  "refusing to overwrite an existing configuration",
			Location: expanded,
			Hint:     "use --force to overwrite it",
		}
	}

	if err := os.WriteFile(expanded, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	output.Println(output.FormatCheckmark("Wrote " + output.StyleNoun.Render(expanded)))
	return nil
}
