// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubmed-engine/internal/eutils"
	"github.com/pdiddy/pubmed-engine/internal/library"
	"github.com/pdiddy/pubmed-engine/internal/observability"
	"github.com/pdiddy/pubmed-engine/internal/search"
)

// newSearcher wires the E-utilities client and search pipeline from cfg.
// metrics may be nil.
func newSearcher(metrics *observability.Metrics) *search.Searcher {
	reporter := observability.NewReporter(observability.Component(logger, "medline"), metrics)
	client := eutils.New(cfg.Eutils,
		eutils.WithReporter(reporter),
		eutils.WithLogger(observability.Component(logger, "eutils")),
	)
	return search.NewSearcher(client, cfg.Eutils, observability.Component(logger, "search"), metrics)
}

// addOutputFlags registers the flags shared by commands that print records.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", search.FormatNameJSON, "output format: json, yaml, csl, or table")
	cmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
	cmd.Flags().Bool("store", false, "save records into the library")
}

// emit writes out according to the output flags and optionally saves the
// records to the library.
func emit(cmd *cobra.Command, out search.Output) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")
	store, _ := cmd.Flags().GetBool("store")

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := search.Write(out, format, w); err != nil {
		return err
	}

	if store {
		if err := saveToLibrary(cmd, out); err != nil {
			return err
		}
	}

	logger.Info().
		Int("records", len(out.Ordered())).
		Int("matches", out.Count).
		Dur("elapsed", out.Duration.Round(time.Millisecond)).
		Msg("done")
	return nil
}

func saveToLibrary(cmd *cobra.Command, out search.Output) error {
	st, err := library.NewStore(cfg.Library)
	if err != nil {
		return err
	}
	defer st.Close()

	summary, err := st.Save(cmd.Context(), out.Ordered())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "library: %d inserted, %d updated\n", summary.Inserted, summary.Updated)
	return nil
}
