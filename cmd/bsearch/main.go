// Command bsearch drives the barrel index from the command line: index a
// directory of batch files, merge forward barrels, run both, query the
// index, or load-test a running search service.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/logger"
)

// Version is injected at build time.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := Execute(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&g.configPath, "config", "c", "", "path to YAML config file")
	fs.StringVarP(&g.dataDir, "data-dir", "d", "", "data directory (overrides config)")
	fs.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.dataDir != "" {
		cfg.Store.DataDir = g.dataDir
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// Execute builds the command tree and runs it with args. Results are
// written to out; logs go to stderr.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "bsearch",
		Short:         "Barrel search index tool",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.register(root.PersistentFlags())
	root.SetOut(out)
	root.SetArgs(args)

	root.AddCommand(
		indexCmd(g),
		mergeCmd(g),
		runCmd(g),
		searchCmd(g),
		loadtestCmd(),
	)
	return root.ExecuteContext(ctx)
}

func withPipeline(cmd *cobra.Command, g *globalFlags, fn func(p *pipeline.Pipeline) error) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	p, err := pipeline.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(p)
}

func indexCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index <dir>",
		Short: "Append the batch files in dir to the forward barrels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, g, func(p *pipeline.Pipeline) error {
				res, err := p.Index(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, br := range res.Batches {
					if br.Err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "FAILED %s: %v\n", br.Name, br.Err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d new documents, %d words in lexicon (%s)\n",
					res.Added, res.Words, res.Elapsed.Round(time.Millisecond))
				return nil
			})
		},
	}
}

func mergeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Fold the forward barrels into the inverted barrels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, g, func(p *pipeline.Pipeline) error {
				res, err := p.Merge(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "merged %d barrels, %d postings (%s)\n",
					res.Barrels, res.Postings, res.Elapsed.Round(time.Millisecond))
				return nil
			})
		},
	}
}

func runCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <dir>",
		Short: "Index dir, then merge if anything new was added",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, g, func(p *pipeline.Pipeline) error {
				res, err := p.Run(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ferr := res.Index.Failures(); ferr != nil {
					fmt.Fprintln(cmd.OutOrStdout(), ferr)
				}
				merged := 0
				if res.Merge != nil {
					merged = res.Merge.Postings
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d documents, merged %d postings\n", res.Index.Added, merged)
				return nil
			})
		},
	}
}

func searchCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Rank documents for a query and print their URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, g, func(p *pipeline.Pipeline) error {
				res, err := p.Search(cmd.Context(), strings.Join(args, " "), limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(res.Results) == 0 {
					fmt.Fprintln(w, "no results")
					return nil
				}
				for i, r := range res.Results {
					url := r.URL
					if url == "" {
						url = fmt.Sprintf("(unregistered %d)", r.Fingerprint)
					}
					fmt.Fprintf(w, "%3d. %6d  %s\n", i+1, r.Score, url)
				}
				fmt.Fprintf(w, "%d of %d results\n", len(res.Results), res.TotalHits)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum results (0 for all)")
	return cmd
}
