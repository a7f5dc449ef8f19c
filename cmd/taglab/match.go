package main

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newMatchCmd(state *app) *cobra.Command {
	var output string
	var all bool

	cmd := &cobra.Command{
		Use:   "match <project.json> [source-index target-index]",
		Short: "Compute correspondences between two images of a project",
		Example: `  # Match the first two images and overwrite the project
  taglab match reef.json 0 1

  # Match every consecutive pair and write to another file
  taglab match reef.json --all -o reef-matched.json`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := state.loadProject(args[0])
			if err != nil {
				return err
			}
			pairs := make([][2]int, 0)
			switch {
			case all:
				for i := 0; i+1 < len(project.Images); i++ {
					pairs = append(pairs, [2]int{i, i + 1})
				}
			case len(args) == 3:
				sourceIdx, err := parseIndex(args[1], "source")
				if err != nil {
					return err
				}
				targetIdx, err := parseIndex(args[2], "target")
				if err != nil {
					return err
				}
				pairs = append(pairs, [2]int{sourceIdx, targetIdx})
			default:
				return errors.New("either both image indices or --all must be given")
			}

			for _, pair := range pairs {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				table, err := project.ComputeCorrespondences(pair[0], pair[1])
				if err != nil {
					return errors.Wrapf(err, "can't match images %d and %d", pair[0], pair[1])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows\n", table.Key(), len(table.Rows))
			}
			if err := project.Save(output); err != nil {
				return err
			}
			log.WithField("file", project.Filename).Info("Project saved")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write result to this file instead of the input one")
	cmd.Flags().BoolVar(&all, "all", false, "Match every pair of consecutive images")
	return cmd
}
