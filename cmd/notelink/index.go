package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"notelink/internal/index"
)

func newIndexCmd(a *app) *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the note index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			idx, err := a.openIndex(ctx, true)
			if err != nil {
				return err
			}
			defer idx.Close()
			if rebuild {
				if err := idx.RebuildFromFS(ctx, a.cfg.RepoPath); err != nil {
					return fmt.Errorf("rebuild index: %w", err)
				}
			}
			notes, err := idx.ListNotes(ctx)
			if err != nil {
				return err
			}
			names, err := idx.EntityNames(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%d notes, %d names\n", len(notes), len(names))
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "drop and rebuild every entry")
	return cmd
}

func newNamesCmd(a *app) *cobra.Command {
	var rawKind string
	cmd := &cobra.Command{
		Use:   "names",
		Short: "List indexed entity names",
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind index.NameKind
			if rawKind != "" {
				k, ok := index.ParseNameKind(rawKind)
				if !ok {
					return fmt.Errorf("unknown kind %q", rawKind)
				}
				kind = k
			}
			idx, err := a.openIndex(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer idx.Close()
			names, err := idx.ListNames(cmd.Context(), kind)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			for _, n := range names {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", n.Name, n.Kind, n.Count)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&rawKind, "kind", "", "only list title, alias, tag or mention names")
	return cmd
}
