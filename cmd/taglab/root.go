package main

import (
	"strconv"

	"github.com/LdDl/taglab-go/internal/config"
	"github.com/LdDl/taglab-go/taglab"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app is shared state of all subcommands, filled before any of them runs
type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	state := &app{}
	cmd := &cobra.Command{
		Use:   "taglab",
		Short: "Multi-temporal correspondences and genets of annotated regions",
		Long: `taglab works on annotation projects made of time-ordered images of the same site.

It matches regions of image pairs, checks correspondence tables for consistency,
tracks genets across the timeline and keeps versioned project snapshots.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()
			cfg, err := config.Load(state.configPath)
			if err != nil {
				return err
			}
			log.SetLevel(cfg.LogLevel())
			state.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&state.configPath, "config", "c", "", "Path to YAML configuration file")

	cmd.AddCommand(newMatchCmd(state))
	cmd.AddCommand(newCheckCmd(state))
	cmd.AddCommand(newGenetsCmd(state))
	cmd.AddCommand(newSnapshotCmd(state))
	return cmd
}

// loadProject opens a project file and applies matching options of the configuration
func (state *app) loadProject(filename string) (*taglab.Project, error) {
	project, err := taglab.Load(filename)
	if err != nil {
		return nil, err
	}
	options, err := state.cfg.MatchOptions()
	if err != nil {
		return nil, err
	}
	project.MatchOptions = options
	return project, nil
}

func parseIndex(arg, name string) (int, error) {
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.Wrapf(err, "bad %s index '%s'", name, arg)
	}
	return idx, nil
}
