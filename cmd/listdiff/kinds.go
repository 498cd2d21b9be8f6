package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/listdiff/pkg/document"
)

func kindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the registered element and section kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &printer{out: cmd.OutOrStdout()}
			for _, name := range document.DefaultRegistry.Names() {
				p.info("%s", name)
			}
			return nil
		},
	}
}
