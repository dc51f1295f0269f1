// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/antflydb/spanalign"
	"github.com/antflydb/spanalign/lib/scoring"
	"github.com/antflydb/spanalign/lib/triplets"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scorePredicted   string
	scoreReference   string
	scoreOutput      string
	scoreJSON        bool
	scorePerDocument bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score predicted span triplets against a reference",
	Long: `Read predicted and reference span triplet records as JSON Lines, pair them
by position and report precision, recall and F1 for exact span, exact string
and normalized overlap matching, micro-averaged over the corpus.`,
	Args: cobra.NoArgs,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVarP(&scorePredicted, "predicted", "p", "", "predicted records JSON Lines file")
	scoreCmd.Flags().StringVarP(&scoreReference, "reference", "r", "", "reference records JSON Lines file")
	scoreCmd.Flags().StringVarP(&scoreOutput, "output", "o", "-", "report destination")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "write the full report as JSON")
	scoreCmd.Flags().BoolVar(&scorePerDocument, "per-document", false, "include per-document scores in the text report")
	_ = scoreCmd.MarkFlagRequired("predicted")
	_ = scoreCmd.MarkFlagRequired("reference")
}

func readRecordsFile(cmd *cobra.Command, path string) ([]triplets.Record, error) {
	in, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = in.Close()
	}()
	return spanalign.ReadRecords(in)
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return runPipeline(func(p *spanalign.Pipeline, logger *zap.Logger) error {
		predicted, err := readRecordsFile(cmd, scorePredicted)
		if err != nil {
			return fmt.Errorf("predicted: %w", err)
		}
		reference, err := readRecordsFile(cmd, scoreReference)
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}

		report, err := p.Score(ctx, predicted, reference)
		if err != nil {
			return err
		}

		if scoreJSON {
			return writeReport(cmd, scoreOutput, report)
		}
		w, err := createOutput(cmd, scoreOutput)
		if err != nil {
			return err
		}
		if err := printReport(w, report, scorePerDocument); err != nil {
			_ = w.Close()
			return err
		}
		return w.Close()
	})
}

func printReport(w io.Writer, report spanalign.Report, perDocument bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if perDocument {
		_, _ = fmt.Fprintln(tw, "DOCUMENT\tPREDICTED\tREFERENCE\tEXACT SPAN\tEXACT STRING")
		for i, d := range report.Documents {
			id := d.ID
			if id == "" {
				id = fmt.Sprintf("#%d", i)
			}
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n",
				id, d.Record.NPredicted, d.Record.NReference, d.Record.ExactSpan, d.Record.ExactString)
		}
		_, _ = fmt.Fprintln(tw)
	}

	s := report.Summary
	_, _ = fmt.Fprintf(tw, "run %s: %d documents, %d predicted, %d reference triplets\n",
		report.RunID, s.Documents, s.Totals.NPredicted, s.Totals.NReference)
	_, _ = fmt.Fprintln(tw, "METRIC\tRATES")
	for _, m := range scoring.Metrics {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", m, s.Rates[m])
	}
	return tw.Flush()
}
