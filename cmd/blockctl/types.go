package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTypesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "types",
		Aliases: []string{"t"},
		Short:   "List registered block types and their default settings",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, err := opts.module(cmd)
			if err != nil {
				return err
			}
			reg := module.Registry()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tNAME\tDEFAULTS")
			for _, typ := range reg.Types() {
				descriptor, err := reg.Lookup(typ)
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(descriptor.Defaults))
				for key := range descriptor.Defaults {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				fmt.Fprintf(w, "%s\t%s\t%s\n", typ, descriptor.Name, strings.Join(keys, ","))
			}
			return w.Flush()
		},
	}
}
