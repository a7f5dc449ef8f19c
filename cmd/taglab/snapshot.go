package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LdDl/taglab-go/internal/store"
	"github.com/LdDl/taglab-go/taglab"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(state *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Keep versioned copies of projects in the local snapshot store",
	}
	cmd.PersistentFlags().StringVarP(&name, "name", "n", "", "Project name in the store (defaults to the file name)")

	putCmd := &cobra.Command{
		Use:   "put <project.json>",
		Short: "Store the current state of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Round trip validates the file and normalizes the document
			project, err := state.loadProject(args[0])
			if err != nil {
				return err
			}
			data, err := project.Marshal()
			if err != nil {
				return err
			}
			return state.withStore(func(s *store.Store) error {
				snapshot, err := s.Put(projectName(name, args[0]), data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s@%d %s\n", snapshot.Name, snapshot.Version, snapshot.Time().Format(time.RFC3339))
				return nil
			})
		},
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <project.json>",
		Short: "Write the latest stored state of a project to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withStore(func(s *store.Store) error {
				snapshot, err := s.Latest(projectName(name, args[0]))
				if err != nil {
					return err
				}
				if _, err := taglab.Unmarshal(snapshot.Data); err != nil {
					return errors.Wrap(err, "stored snapshot is not a valid project")
				}
				if err := os.WriteFile(args[0], snapshot.Data, 0o644); err != nil {
					return errors.Wrapf(err, "can't write '%s'", args[0])
				}
				log.WithFields(log.Fields{"project": snapshot.Name, "version": snapshot.Version}).Info("Snapshot restored")
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list [project.json]",
		Short: "List stored projects or versions of one project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withStore(func(s *store.Store) error {
				if len(args) == 0 && name == "" {
					names, err := s.Projects()
					if err != nil {
						return err
					}
					for _, n := range names {
						fmt.Fprintln(cmd.OutOrStdout(), n)
					}
					return nil
				}
				filename := ""
				if len(args) == 1 {
					filename = args[0]
				}
				versions, err := s.Versions(projectName(name, filename))
				if err != nil {
					return err
				}
				for _, version := range versions {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", version, time.Unix(0, version).Format(time.RFC3339))
				}
				return nil
			})
		},
	}

	var keep int
	pruneCmd := &cobra.Command{
		Use:   "prune <project.json>",
		Short: "Drop old versions of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withStore(func(s *store.Store) error {
				removed, err := s.Prune(projectName(name, args[0]), keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d versions removed\n", removed)
				return nil
			})
		},
	}
	pruneCmd.Flags().IntVar(&keep, "keep", 10, "Number of newest versions to keep")

	cmd.AddCommand(putCmd, restoreCmd, listCmd, pruneCmd)
	return cmd
}

func (state *app) withStore(fn func(s *store.Store) error) error {
	cfg := store.DefaultConfig(state.cfg.Store.Path)
	cfg.InMemory = state.cfg.Store.InMemory
	cfg.Verbose = state.cfg.LogLevel() >= log.DebugLevel
	s, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.WithError(err).Error("Can't close snapshot store")
		}
	}()
	return fn(s)
}

// projectName is the explicit name or the file name without extension
func projectName(name, filename string) string {
	if name != "" {
		return name
	}
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
