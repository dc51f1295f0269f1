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
	"fmt"

	"github.com/antflydb/spanalign"
	"github.com/antflydb/spanalign/lib/tagparse"
	"github.com/antflydb/spanalign/lib/triplets"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	tagsInput  string
	tagsOutput string
	tagsRoles  []string
)

// textDocument is a document read or written by the text commands.
type textDocument struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// parsedText is a marker-free document with the triplets its markers named.
type parsedText struct {
	ID       string                   `json:"id,omitempty"`
	Text     string                   `json:"text"`
	Triplets []triplets.StringTriplet `json:"triplets"`
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Read and write inline role markers",
	Long: `Inline markers wrap triplet fields in the source text, for example
<subject-1>Anna</subject-1> <predicate-1>ser</predicate-1> <object-1>Bo</object-1>.`,
}

var tagsParseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Strip markers and report the triplets they name",
	Long: `Read {"id", "text"} JSON Lines with marked text and write
{"id", "text", "triplets"} with the markers removed and field offsets into the
clean text. Incomplete triplets are dropped.`,
	Args: cobra.NoArgs,
	RunE: runTagsParse,
}

var tagsTagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Insert markers for span triplet records",
	Long: `Read span triplet records (the output of resolve) and write {"id", "text"}
JSON Lines with markers inserted around every field.`,
	Args: cobra.NoArgs,
	RunE: runTagsTag,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.AddCommand(tagsParseCmd)
	tagsCmd.AddCommand(tagsTagCmd)

	pf := tagsCmd.PersistentFlags()
	pf.StringVarP(&tagsInput, "input", "i", "-", "input JSON Lines file")
	pf.StringVarP(&tagsOutput, "output", "o", "-", "output JSON Lines file")
	pf.StringSliceVar(&tagsRoles, "roles", tagparse.DefaultRoles[:], "marker names for subject, predicate and object")
}

func markerRoles() (tagparse.Roles, error) {
	if len(tagsRoles) != 3 {
		return tagparse.Roles{}, fmt.Errorf("--roles needs 3 names, got %d", len(tagsRoles))
	}
	return tagparse.Roles{tagsRoles[0], tagsRoles[1], tagsRoles[2]}, nil
}

func runTagsParse(cmd *cobra.Command, args []string) error {
	roles, err := markerRoles()
	if err != nil {
		return err
	}
	in, err := openInput(cmd, tagsInput)
	if err != nil {
		return err
	}
	docs, err := spanalign.ReadJSONLines[textDocument](in)
	_ = in.Close()
	if err != nil {
		return err
	}

	out := make([]parsedText, len(docs))
	for i, d := range docs {
		clean, ts := tagparse.ParseWith(d.Text, roles)
		if ts == nil {
			ts = []triplets.StringTriplet{}
		}
		out[i] = parsedText{ID: d.ID, Text: clean, Triplets: ts}
	}
	return writeOutput(cmd, tagsOutput, out)
}

func runTagsTag(cmd *cobra.Command, args []string) error {
	roles, err := markerRoles()
	if err != nil {
		return err
	}
	return runPipeline(func(p *spanalign.Pipeline, logger *zap.Logger) error {
		in, err := openInput(cmd, tagsInput)
		if err != nil {
			return err
		}
		records, err := spanalign.ReadRecords(in)
		_ = in.Close()
		if err != nil {
			return err
		}

		out := make([]textDocument, len(records))
		for i, rec := range records {
			dt, err := triplets.FromRecord(rec, p.Tokenizer())
			if err != nil {
				return err
			}
			sts := make([]triplets.StringTriplet, 0, dt.Len())
			for _, t := range dt.All() {
				sts = append(sts, t.Strings())
			}
			marked, err := tagparse.TagWith(rec.Text, sts, roles)
			if err != nil {
				return fmt.Errorf("record %q: %w", rec.ID, err)
			}
			out[i] = textDocument{ID: rec.ID, Text: marked}
		}
		logger.Debug("Tagged records", zap.Int("records", len(records)))
		return writeOutput(cmd, tagsOutput, out)
	})
}
