// Command smartread recommends exam reading passages from a local corpus.
// It serves the HTTP API and offers one-shot subcommands for each ranking
// mode.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/logger"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	corpusRoot string
	logLevel   string
	cfg        *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "smartread",
		Short: "Recommend reading passages by keyword, similarity or vocabulary coverage",
		Long: `SmartRead ranks a directory of exam reading passages (.txt files named
like 2023英语一.txt) against a query.

Examples:
  smartread match "economic growth and inflation"
  smartread similar --from 2018 --category 六级 "climate policy"
  smartread cover words.txt
  smartread serve --config configs/smartread.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if opts.corpusRoot != "" {
				cfg.Corpus.Root = opts.corpusRoot
			}
			opts.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML or TOML config file")
	root.PersistentFlags().StringVar(&opts.corpusRoot, "corpus", "", "passage directory (overrides corpus.root)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for one-shot commands")

	root.AddCommand(
		newServeCmd(opts),
		newRecommendCmd(opts, "match", "Rank passages by shared lemmas with the query"),
		newRecommendCmd(opts, "similar", "Rank passages by TF-IDF cosine similarity to the query"),
		newCoverCmd(opts),
		newVocabCmd(opts),
		newNormalizeCmd(opts),
		newCorpusCmd(opts),
	)
	return root
}

// setupCLILogging sends logs of one-shot commands to stderr so stdout stays
// machine readable.
func setupCLILogging(cmd *cobra.Command, opts *globalOptions) {
	slog.SetDefault(logger.New(cmd.ErrOrStderr(), opts.logLevel, "pretty"))
}

// cliTimeout bounds one-shot commands, which load the whole corpus.
const cliTimeout = 2 * time.Minute
