package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"notelink/internal/autolink"
	"notelink/internal/config"
	"notelink/internal/index"
	"notelink/internal/storage/fs"
)

type app struct {
	version string
	logger  *slog.Logger
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer

	v   *viper.Viper
	cfg config.Config
}

func newRootCmd(a *app) *cobra.Command {
	a.v = config.New()
	var configFile, envFile string

	root := &cobra.Command{
		Use:           "notelink",
		Short:         "Autolink entity names in Markdown notes",
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			if configFile != "" {
				a.v.SetConfigFile(configFile)
			}
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./notelink.yaml)")
	flags.StringVar(&envFile, "env-file", "", "dotenv file (default ./.env)")
	flags.String("repo", ".", "notes repository root")
	flags.String("data", "", "data directory (default <repo>/.notelink)")
	flags.String("scheme", autolink.DefaultLinkScheme, "link target scheme")
	flags.BoolP("case-insensitive", "i", false, "match names ignoring case")
	flags.Int("workers", 1, "lines rewritten concurrently")
	flags.Duration("budget", 0, "time limit per document, 0 for none")
	bindFlags(a.v, flags.Lookup, map[string]string{
		"repo_path":        "repo",
		"data_path":        "data",
		"link_scheme":      "scheme",
		"case_insensitive": "case-insensitive",
		"workers":          "workers",
		"budget":           "budget",
	})

	root.AddCommand(
		newLinkCmd(a),
		newIndexCmd(a),
		newNamesCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newHashKeyCmd(a),
	)
	return root
}

// openIndex opens the note index and, with refresh, brings it up to date
// under the index file lock.
func (a *app) openIndex(ctx context.Context, refresh bool) (*index.Index, error) {
	idx, err := index.OpenWithOptions(a.cfg.IndexPath(), index.OpenOptions{
		LockTimeout: a.cfg.DBLockTimeout,
		Logger:      a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if !refresh {
		return idx, nil
	}
	lock, err := fs.AcquireFileLockWithTimeout(a.cfg.IndexLockPath(), a.cfg.DBLockTimeout)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("lock index: %w", err)
	}
	defer lock.Release()
	if err := idx.Init(ctx, a.cfg.RepoPath); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("init index: %w", err)
	}
	return idx, nil
}

func (a *app) filter(source autolink.Dictionary) autolink.Dictionary {
	return autolink.FilterDictionary{Source: source, Stop: a.cfg.StopNames, MinRunes: a.cfg.MinNameLength}
}
