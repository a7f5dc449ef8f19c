package main

import (
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/LdDl/taglab-go/taglab"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newGenetsCmd(state *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genets <project.json> [genet]",
		Short: "List genets or print the trajectory of one genet",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := state.loadProject(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			if len(args) == 1 {
				return printGenets(w, project)
			}
			genet, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrapf(err, "bad genet '%s'", args[1])
			}
			steps, err := project.GenetTrajectory(genet)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "IMAGE\tDATE\tPRESENT\tBLOBS\tAREA\tWIDTH\tHEIGHT\tGROWTH W\tGROWTH H\tDRIFT")
			for _, step := range steps {
				fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
					step.ImageID, step.AcquisitionDate, step.Present, step.Blobs, step.Area,
					step.Smoothed.Width, step.Smoothed.Height, step.GrowthW, step.GrowthH, step.Drift)
			}
			return nil
		},
	}
	return cmd
}

func printGenets(w *tabwriter.Writer, project *taglab.Project) error {
	genets := make(map[int]struct{})
	for _, img := range project.Images {
		for _, blob := range img.Blobs {
			if blob.Genet != taglab.NoGenet {
				genets[blob.Genet] = struct{}{}
			}
		}
	}
	ids := make([]int, 0, len(genets))
	for genet := range genets {
		ids = append(ids, genet)
	}
	sort.Ints(ids)

	fmt.Fprintln(w, "GENET\tIMAGES\tBLOBS\tCLASSES")
	for _, genet := range ids {
		members := project.GenetMembers(genet)
		blobs := 0
		classes := make(map[string]struct{})
		for _, imageBlobs := range members {
			blobs += len(imageBlobs)
			for _, blob := range imageBlobs {
				classes[blob.ClassName] = struct{}{}
			}
		}
		names := make([]string, 0, len(classes))
		for name := range classes {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "%d\t%d\t%d\t%v\n", genet, len(members), blobs, names)
	}
	return nil
}
