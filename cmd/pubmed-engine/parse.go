// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubmed-engine/internal/medline"
	"github.com/pdiddy/pubmed-engine/internal/observability"
	"github.com/pdiddy/pubmed-engine/internal/search"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file.xml|-]",
	Short: "Extract records from a saved efetch XML document",
	Long: `Parse runs the extractor over a PubMed efetch XML file (or stdin when
the argument is "-" or omitted) and prints the records. Error documents are
logged and produce no records.

With --dump, only the result summary (query id and PMIDs) is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	reporter := observability.NewReporter(observability.Component(logger, "medline"), nil)
	set, err := medline.Extract(r,
		medline.WithReporter(reporter),
		medline.WithRequestContext(medline.RequestContext{DB: "pubmed", EUtil: "efetch", Source: path}),
	)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			medline.Dump
			Link medline.LinkParameters `json:"link"`
		}{set.Dump(), set.LinkParameter(0)})
	}

	return emit(cmd, search.Output{Count: set.Size(), IDs: set.PMIDs(), Records: set})
}

func init() {
	parseCmd.Flags().Bool("dump", false, "print the result summary instead of the records")
	addOutputFlags(parseCmd)
	rootCmd.AddCommand(parseCmd)
}
