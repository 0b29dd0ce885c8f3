package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the memory search index",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create the memory index if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				created, err := a.repo.EnsureIndex(cmd.Context())
				if err != nil {
					return fmt.Errorf("ensure index: %w", err)
				}
				state := "exists"
				if created {
					state = "created"
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "index %s %s\n", a.cfg.Search.Index, state)
				return err
			})
		},
	})
	return cmd
}
