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
	"github.com/antflydb/spanalign"
	"github.com/antflydb/spanalign/lib/chunking"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	splitInput  string
	splitOutput string
)

// splitDocument is a document with the windows it was cut into.
type splitDocument struct {
	ID      string            `json:"id,omitempty"`
	Windows []chunking.Window `json:"windows"`
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Cut documents into windows under a token budget",
	Long: `Read {"id", "text"} JSON Lines and write the token windows of each document.
Whole sentences are packed while they fit the budget; longer sentences are cut
at token boundaries.`,
	Args: cobra.NoArgs,
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)

	splitCmd.Flags().StringVarP(&splitInput, "input", "i", "-", "documents JSON Lines file")
	splitCmd.Flags().StringVarP(&splitOutput, "output", "o", "-", "windows JSON Lines file")
	splitCmd.Flags().Int("max-tokens", chunking.DefaultConfig().MaxTokens, "largest number of counter tokens per window")
	mustBindPFlag("max_tokens", splitCmd.Flags().Lookup("max-tokens"))
}

func runSplit(cmd *cobra.Command, args []string) error {
	return runPipeline(func(p *spanalign.Pipeline, logger *zap.Logger) error {
		in, err := openInput(cmd, splitInput)
		if err != nil {
			return err
		}
		docs, err := spanalign.ReadJSONLines[textDocument](in)
		_ = in.Close()
		if err != nil {
			return err
		}

		out := make([]splitDocument, len(docs))
		for i, d := range docs {
			windows, err := p.Split(d.Text)
			if err != nil {
				return err
			}
			if windows == nil {
				windows = []chunking.Window{}
			}
			out[i] = splitDocument{ID: d.ID, Windows: windows}
			logger.Debug("Split document", zap.String("id", d.ID), zap.Int("windows", len(windows)))
		}
		return writeOutput(cmd, splitOutput, out)
	})
}
