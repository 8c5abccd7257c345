// Package template provides the `weaver template` command group.
package template

import (
	"github.com/spf13/cobra"

	"github.com/opmodel/weaver/internal/cmdtypes"
	"github.com/opmodel/weaver/internal/modfile"
	"github.com/opmodel/weaver/internal/output"
	"github.com/opmodel/weaver/internal/templates"
)

// NewTemplateCmd creates the template command group.
func NewTemplateCmd(_ *cmdtypes.GlobalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:   "template",
		Short: "Inspect the built-in module images",
		Long: `weaver ships the loader template it clones into woven modules and the
surface of the base runtime library that template is written against.`,
	}

	c.AddCommand(newListCmd(), newShowCmd(), newDumpCmd())

	return c
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in module images",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			tbl := output.NewTable("NAME", "FILE", "DESCRIPTION")
			for _, t := range templates.List() {
				name := t.Name
				if t.Default {
					name += " (default)"
				}
				tbl.Row(name, t.FileName(), t.Description)
			}
			output.Println(tbl.String())
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [NAME]",
		Short: "Print a built-in module image",
		Long:  `Prints a built-in module image as YAML. NAME defaults to the loader.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			t := templates.GetDefault()
			if len(args) == 1 {
				var err error
				if t, err = templates.Get(args[0]); err != nil {
					return err
				}
			}
			data, err := modfile.Marshal(t.Build())
			if err != nil {
				return err
			}
			output.Print(string(data))
			return nil
		},
	}
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump DIR",
		Short: "Write the built-in module images to DIR",
		Long: `Writes every built-in module image to DIR. A dumped loader can be edited
and passed back to 'weaver weave --template'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			paths, err := templates.Dump(args[0])
			if err != nil {
				return err
			}
			for _, p := range paths {
				output.Println(output.FormatCheckmark("Wrote " + output.StyleNoun.Render(p)))
			}
			return nil
		},
	}
}
