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
	"errors"
	"os/signal"
	"syscall"

	"github.com/antflydb/spanalign"
	"github.com/antflydb/spanalign/lib/triplets"
	"github.com/bytedance/sonic/encoder"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	resolveInput  string
	resolveOutput string
	resolveReport string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Anchor extracted triplets to token spans",
	Long: `Read extractions as JSON Lines ({"id", "text", "format", "response",
"triplets"}) and write one span triplet record per document. Triplets that
cannot be anchored to the text are dropped and counted.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVarP(&resolveInput, "input", "i", "-", "extractions JSON Lines file")
	resolveCmd.Flags().StringVarP(&resolveOutput, "output", "o", "-", "span triplet records JSON Lines file")
	resolveCmd.Flags().StringVar(&resolveReport, "report", "", "write the resolution report as JSON to this file")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return runPipeline(func(p *spanalign.Pipeline, logger *zap.Logger) error {
		in, err := openInput(cmd, resolveInput)
		if err != nil {
			return err
		}
		extractions, err := spanalign.ReadExtractions(in)
		_ = in.Close()
		if err != nil {
			return err
		}

		resolved, report, err := p.Resolve(ctx, extractions)
		if err != nil {
			return err
		}

		records := make([]triplets.Record, len(resolved))
		for i, dt := range resolved {
			records[i] = dt.ToRecord(extractions[i].ID)
		}
		if err := writeOutput(cmd, resolveOutput, records); err != nil {
			return err
		}

		if resolveReport != "" {
			if err := writeReport(cmd, resolveReport, report); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeReport writes v as a single JSON document.
func writeReport(cmd *cobra.Command, path string, v any) (err error) {
	w, err := createOutput(cmd, path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()
	return encoder.NewStreamEncoder(w).Encode(v)
}
