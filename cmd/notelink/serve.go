package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"notelink/internal/autolink"
	"notelink/internal/index"
	"notelink/internal/mcpserver"
	"notelink/internal/mdtree"
	"notelink/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the autolinking HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx)
		},
	}
	cmd.Flags().String("listen", "", "listen address (default from config)")
	cmd.Flags().Bool("watch", false, "re-index notes as they change")
	cmd.Flags().String("api-keys", "", "api keys file")
	bindFlags(a.v, cmd.Flags().Lookup, map[string]string{
		"listen_addr":   "listen",
		"watch":         "watch",
		"api_keys_file": "api-keys",
	})
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	idx, err := a.openIndex(ctx, true)
	if err != nil {
		return err
	}
	defer idx.Close()

	srv, err := web.NewServer(web.Options{Config: a.cfg, Index: idx, Logger: a.logger})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Watch {
		g.Go(func() error {
			if err := index.Watch(ctx, idx, a.cfg.RepoPath, a.logger, nil); err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	return g.Wait()
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve autolinking tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.openIndex(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer idx.Close()
			dict := a.filter(idx)
			pp := autolink.New(dict, autolink.Options{
				LinkScheme:      a.cfg.LinkScheme,
				CaseInsensitive: a.cfg.CaseInsensitive,
				Budget:          a.cfg.Budget,
				Workers:         a.cfg.Workers,
				Logger:          a.logger,
				TreeModel:       mdtree.New(),
			})
			return mcpserver.New(a.version, pp, dict, idx).ServeStdio()
		},
	}
}
