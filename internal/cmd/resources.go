package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opmodel/weaver/internal/cmdtypes"
	"github.com/opmodel/weaver/internal/manifest"
	"github.com/opmodel/weaver/internal/output"
	"github.com/opmodel/weaver/internal/resname"
)

// NewResourcesCmd creates the resources command.
func NewResourcesCmd(_ *cmdtypes.GlobalConfig) *cobra.Command {
	var all bool

	c := &cobra.Command{
		Use:   "resources MODULE",
		Short: "List the resources embedded in a module",
		Long: `Lists the resources of a module image with their decoded names.

Only weaver resources are listed unless --all is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runResources(args[0], all)
		},
	}

	c.Flags().BoolVar(&all, "all", false, "Also list resources weaver did not embed")

	return c
}

func runResources(path string, all bool) error {
	mod, err := readModule(path)
	if err != nil {
		return err
	}

	tbl := output.NewTable("NAME", "CATEGORY", "LOGICAL", "COMPRESSED", "SIZE", "SHA1")
	for _, r := range mod.Resources {
		if !all && !resname.HasPrefix(r.Name) {
			continue
		}
		d := manifest.Describe(r)
		tbl.Row(d.Name, d.Category, d.Logical, strconv.FormatBool(d.Compressed),
			output.FormatSize(int64(d.Size)), d.Checksum[:12])
	}

	if tbl.Len() == 0 {
		output.Println("No embedded resources in " + mod.Name + ".")
		return nil
	}
	output.Println(tbl.String())
	return nil
}
