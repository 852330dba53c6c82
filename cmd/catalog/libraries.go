package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLibrariesCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "libraries",
		Short: "List the libraries a source exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cleanup, err := build()
			if err != nil {
				return err
			}
			defer cleanup()

			libs, err := c.Coordinator.Libraries(cmd.Context(), source)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE")
			for _, l := range libs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", l.ID, l.Name, l.Type)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "source id")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}
