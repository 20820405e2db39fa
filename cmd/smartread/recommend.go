package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/vocab"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/recommender/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/errors"
)

type recommendFlags struct {
	limit      int
	yearFrom   int
	yearTo     int
	categories []string
	asJSON     bool
}

func (f *recommendFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "maximum passages to show (default from config)")
	cmd.Flags().IntVar(&f.yearFrom, "from", 0, "earliest exam year")
	cmd.Flags().IntVar(&f.yearTo, "to", 0, "latest exam year")
	cmd.Flags().StringSliceVar(&f.categories, "category", nil, "restrict to categories (repeatable)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the recommendation as JSON")
}

func (f *recommendFlags) filter() corpus.Filter {
	return corpus.Filter{YearFrom: f.yearFrom, YearTo: f.yearTo, Categories: f.categories}
}

func newRecommendCmd(opts *globalOptions, mode, short string) *cobra.Command {
	flags := &recommendFlags{}
	cmd := &cobra.Command{
		Use:   mode + " <query>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd, opts, flags, executor.Request{
				Mode:  executor.Mode(mode),
				Query: strings.Join(args, " "),
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newCoverCmd(opts *globalOptions) *cobra.Command {
	flags := &recommendFlags{}
	cmd := &cobra.Command{
		Use:   "cover [file]",
		Short: "Rank passages by how much of a vocabulary list they contain",
		Long: `Reads a vocabulary list, one entry per line, from file or standard input
and ranks passages by the fraction of the list each one covers.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return runRecommend(cmd, opts, flags, executor.Request{
				Mode:       executor.ModeCoverage,
				Vocabulary: vocab.Parse(text),
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func runRecommend(cmd *cobra.Command, opts *globalOptions, flags *recommendFlags, req executor.Request) error {
	setupCLILogging(cmd, opts)
	c, err := buildCore(opts.cfg, nil)
	if err != nil {
		return err
	}
	req.Filter = flags.filter()
	req.Limit = flags.limit

	ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
	defer cancel()
	rec, _, err := c.recommender.Recommend(ctx, req)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return errors.New(appErr.Message)
		}
		return err
	}
	if flags.asJSON {
		return writeJSON(cmd.OutOrStdout(), rec)
	}
	return printRecommendation(cmd.OutOrStdout(), rec)
}

func printRecommendation(w io.Writer, rec *executor.Recommendation) error {
	switch rec.Status {
	case executor.StatusNoSignal:
		_, err := fmt.Fprintln(w, "The query shares no informative terms with the selected passages.")
		return err
	case executor.StatusNoMatches:
		_, err := fmt.Fprintf(w, "No passage matches (%d searched).\n", rec.Candidates)
		return err
	}
	fmt.Fprintf(w, "%d of %d passages match [%s]\n\n", rec.TotalMatches, rec.Candidates, strings.Join(rec.QueryTerms, " "))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tYEAR\tCATEGORY\tTITLE\tMATCHES")
	for i, p := range rec.Results {
		score := fmt.Sprintf("%.3f", p.Score)
		if rec.Mode == executor.ModeCoverage {
			score = fmt.Sprintf("%.0f%%", p.Coverage*100)
		}
		year := "-"
		if p.Year != corpus.UnknownYear {
			year = fmt.Sprint(p.Year)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, score, year, p.Category, p.Title, strings.Join(p.Matches, ", "))
	}
	return tw.Flush()
}

// readInput returns the contents of args[0], or standard input when no file
// or "-" is given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
