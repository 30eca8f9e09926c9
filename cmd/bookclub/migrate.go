package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the storage schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, closeStore, err := c.openService(cmd.Context(), nil, nil)
			if err != nil {
				return c.fail("migrate", err)
			}
			closeStore()
			fmt.Fprintf(c.stdout, "schema applied (%s)\n", c.cfg.Storage.Driver)
			return nil
		},
	}
}
