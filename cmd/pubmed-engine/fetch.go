// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [pmids...]",
	Short: "Fetch PubMed records by PMID",
	Long: `Fetch retrieves the given PMIDs with efetch and prints the extracted
records in argument order. PMIDs may also be comma-separated.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parsePMIDs(args)
		if err != nil {
			return err
		}
		out, err := newSearcher(nil).Fetch(cmd.Context(), ids)
		if err != nil {
			return err
		}
		if missing := len(ids) - out.Records.Size(); missing > 0 {
			logger.Warn().Int("missing", missing).Msg("some PMIDs returned no record")
		}
		return emit(cmd, out)
	},
}

// parsePMIDs splits comma-separated arguments and rejects non-numeric ids.
func parsePMIDs(args []string) ([]string, error) {
	var ids []string
	for _, arg := range args {
		for _, id := range strings.Split(arg, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if strings.Trim(id, "0123456789") != "" {
				return nil, fmt.Errorf("invalid PMID %q", id)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no PMIDs given")
	}
	return ids, nil
}

func init() {
	addOutputFlags(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}
