package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/martinemde/genbridge/store"
)

func withStore(cfg *cliConfig, fn func(*store.Store) error) error {
	s, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func storeCmd(cfg *cliConfig) *cobra.Command {
	root := &cobra.Command{Use: "store", Short: "Manage the persisted graph store"}

	var validate bool
	put := &cobra.Command{
		Use:   "put <name> <file>",
		Short: "Store a graph file under a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := readNode(cmd, args[1])
			if err != nil {
				return err
			}
			if validate {
				if err := validateNode(n); err != nil {
					return err
				}
			}
			return withStore(cfg, func(s *store.Store) error {
				fp, err := s.Put(cmd.Context(), args[0], n)
				if err != nil {
					return err
				}
				cfg.logger.Debug().Str("name", args[0]).Str("fingerprint", fp).Msg("graph stored")
				fmt.Fprintln(cmd.OutOrStdout(), fp)
				return nil
			})
		},
	}
	put.Flags().BoolVar(&validate, "validate", true, "Load the graph before storing it")

	var format string
	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Print a stored graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(s *store.Store) error {
				n, err := s.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeNode(cmd.OutOrStdout(), n, format)
			})
		},
	}
	get.Flags().StringVar(&format, "format", "json", "Output format: json|yaml")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored graphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(s *store.Store) error {
				graphs, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tFINGERPRINT\tUPDATED")
				for _, g := range graphs {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", g.Name, g.Fingerprint, g.UpdatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}

	del := &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored graph",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(s *store.Store) error {
				return s.Delete(cmd.Context(), args[0])
			})
		},
	}

	root.AddCommand(put, get, list, del)
	return root
}
