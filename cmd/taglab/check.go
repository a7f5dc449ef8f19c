package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newCheckCmd(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <project.json>",
		Short: "Report correspondence tables referencing regions that no longer exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := state.loadProject(args[0])
			if err != nil {
				return err
			}
			broken := project.CheckConsistency()
			for _, key := range broken {
				fmt.Fprintf(cmd.OutOrStdout(), "inconsistent: %s\n", key)
			}
			if len(broken) > 0 {
				return errors.Errorf("%d of %d tables are inconsistent", len(broken), len(project.Correspondences))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tables consistent\n", len(project.Correspondences))
			return nil
		},
	}
}
