package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kbukum/bufferstream/transform"
)

func newTransformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transforms",
		Short: "List the available transforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tMODE\tARG\tDESCRIPTION")
			for _, d := range transform.Default.List() {
				mode, arg := "binary", "-"
				if d.ObjectMode {
					mode = "object"
				}
				if d.RequiresArg {
					arg = "required"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, mode, arg, d.Description)
			}
			return w.Flush()
		},
	}
}
