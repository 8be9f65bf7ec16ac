package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"notelink/internal/autolink"
	"notelink/internal/mdtree"
	"notelink/internal/storage/fs"
)

type linkOptions struct {
	namesFile string
	useIndex  bool
	write     bool
	html      bool
}

func newLinkCmd(a *app) *cobra.Command {
	var opts linkOptions
	cmd := &cobra.Command{
		Use:   "link [files...]",
		Short: "Autolink Markdown files, or stdin when no file is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLink(cmd.Context(), opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.namesFile, "names", "", "names file (.yaml, .yml or one name per line)")
	cmd.Flags().BoolVar(&opts.useIndex, "index", false, "link against names from the note index")
	cmd.Flags().BoolVarP(&opts.write, "write", "w", false, "rewrite files in place")
	cmd.Flags().BoolVar(&opts.html, "html", false, "render the result as HTML")
	return cmd
}

func (a *app) runLink(ctx context.Context, opts linkOptions, args []string) error {
	if opts.write && opts.html {
		return errors.New("--write and --html are exclusive")
	}
	if opts.write && len(args) == 0 {
		return errors.New("--write needs at least one file")
	}
	dict, closeDict, err := a.linkDictionary(ctx, opts)
	if err != nil {
		return err
	}
	defer closeDict()

	pp := autolink.New(dict, autolink.Options{
		LinkScheme:      a.cfg.LinkScheme,
		CaseInsensitive: a.cfg.CaseInsensitive,
		Budget:          a.cfg.Budget,
		Workers:         a.cfg.Workers,
		Logger:          a.logger,
		TreeModel:       mdtree.New(),
	})

	if len(args) == 0 {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		return a.emit(ctx, pp, opts, data)
	}
	for _, path := range args {
		if opts.write {
			if err := a.rewriteFile(ctx, pp, path); err != nil {
				return err
			}
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := a.emit(ctx, pp, opts, data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func (a *app) emit(ctx context.Context, pp *autolink.Preprocessor, opts linkOptions, data []byte) error {
	out, _, err := pp.ProcessText(ctx, string(data))
	if err != nil {
		return err
	}
	if opts.html {
		var buf bytes.Buffer
		if err := mdtree.NewHTMLRenderer(a.cfg.HighlightStyle).Render(&buf, []byte(out)); err != nil {
			return fmt.Errorf("render html: %w", err)
		}
		_, err = a.stdout.Write(buf.Bytes())
		return err
	}
	_, err = io.WriteString(a.stdout, out)
	return err
}

func (a *app) rewriteFile(ctx context.Context, pp *autolink.Preprocessor, path string) error {
	var res *autolink.Result
	changed, err := fs.RewriteFile(path, func(data []byte) ([]byte, error) {
		out, r, err := pp.ProcessText(ctx, string(data))
		if err != nil {
			return nil, err
		}
		res = r
		return []byte(out), nil
	})
	if err != nil {
		return fmt.Errorf("rewrite %s: %w", path, err)
	}
	a.logger.Info("linked", "path", path, "links", res.Linked, "changed", changed, "truncated", res.Truncated)
	return nil
}

// linkDictionary merges the names file and the note index, whichever are
// selected.
func (a *app) linkDictionary(ctx context.Context, opts linkOptions) (autolink.Dictionary, func(), error) {
	var sources []autolink.Dictionary
	closeFn := func() {}
	if opts.namesFile != "" {
		names, err := autolink.LoadNamesFile(opts.namesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load names: %w", err)
		}
		sources = append(sources, names)
	}
	if opts.useIndex {
		idx, err := a.openIndex(ctx, true)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() { _ = idx.Close() }
		sources = append(sources, idx)
	}
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("%w: pass --names or --index", autolink.ErrNoDictionary)
	}
	return a.filter(mergeDictionaries(sources...)), closeFn, nil
}

func mergeDictionaries(sources ...autolink.Dictionary) autolink.Dictionary {
	if len(sources) == 1 {
		return sources[0]
	}
	return autolink.DictionaryFunc(func(ctx context.Context) ([]string, error) {
		var out []string
		for _, src := range sources {
			names, err := src.EntityNames(ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, names...)
		}
		return out, nil
	})
}
