package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/normalizer"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/vocab"
)

func newVocabCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vocab [file]",
		Short: "Extract headwords from a pasted vocabulary list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupCLILogging(cmd, opts)
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			for _, w := range vocab.Parse(text) {
				fmt.Fprintln(cmd.OutOrStdout(), w)
			}
			return nil
		},
	}
}

func newNormalizeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <text>",
		Short: "Show the lemma set a text reduces to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupCLILogging(cmd, opts)
			norm, err := normalizer.Default()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(norm.Normalize(strings.Join(args, " ")).Sorted(), " "))
			return nil
		},
	}
}

func newCorpusCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Summarise the passage directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupCLILogging(cmd, opts)
			c, err := buildCore(opts.cfg, nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()
			ov, err := c.recommender.Overview(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), ov)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "root:     %s\n", c.corpus.Root())
			fmt.Fprintf(out, "passages: %d (skipped %d)\n", ov.Total, ov.Skipped)
			fmt.Fprintf(out, "years:    %d-%d\n", ov.MinYear, ov.MaxYear)
			cats := make([]string, 0, len(ov.Categories))
			for cat := range ov.Categories {
				cats = append(cats, cat)
			}
			sort.Strings(cats)
			for _, cat := range cats {
				fmt.Fprintf(out, "  %-8s %d\n", cat, ov.Categories[cat])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
