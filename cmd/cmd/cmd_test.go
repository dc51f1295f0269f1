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
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/antflydb/spanalign"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

const annaExtraction = `{"id":"d1","text":"Anna ser Bo.","response":"(Anna) (ser) (Bo)"}`

func TestResolveCommand(t *testing.T) {
	out := execute(t, annaExtraction, "resolve", "--input", "-", "--output", "-")

	records, err := spanalign.ReadRecords(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "d1", records[0].ID)
	require.Len(t, records[0].SemanticTriplets, 1)
	assert.Equal(t, "Bo", records[0].SemanticTriplets[0].Object.Text)
	assert.Equal(t, 2, records[0].SemanticTriplets[0].Object.Start)
}

func TestTagsRoundTrip(t *testing.T) {
	records := execute(t, annaExtraction, "resolve", "--input", "-", "--output", "-")

	marked := execute(t, records, "tags", "tag", "--input", "-", "--output", "-")
	tagged, err := spanalign.ReadJSONLines[textDocument](strings.NewReader(marked))
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "<subject-1>Anna</subject-1> <predicate-1>ser</predicate-1> <object-1>Bo</object-1>.", tagged[0].Text)

	parsed := execute(t, marked, "tags", "parse", "--input", "-", "--output", "-")
	docs, err := spanalign.ReadJSONLines[parsedText](strings.NewReader(parsed))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Anna ser Bo.", docs[0].Text)
	require.Len(t, docs[0].Triplets, 1)
	assert.Equal(t, [3]string{"Anna", "ser", "Bo"}, docs[0].Triplets[0].Fields())
}

func TestScoreCommand(t *testing.T) {
	records := execute(t, annaExtraction, "resolve", "--input", "-", "--output", "-")
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(records), 0o600))

	out := execute(t, "", "score", "--predicted", path, "--reference", path, "--output", "-", "--per-document")
	assert.Contains(t, out, "1 documents, 1 predicted, 1 reference triplets")
	assert.Contains(t, out, "exact_span_match")
	assert.Contains(t, out, "P=1.0000 R=1.0000 F1=1.0000")
	assert.Contains(t, out, "d1")
}

func TestSplitCommand(t *testing.T) {
	out := execute(t, `{"id":"w","text":"a b c. d e f."}`,
		"split", "--input", "-", "--output", "-", "--counter", "whitespace", "--max-tokens", "3")
	docs, err := spanalign.ReadJSONLines[splitDocument](strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Len(t, docs[0].Windows, 2)
	assert.Equal(t, "a b c.", docs[0].Windows[0].Text)
	assert.Equal(t, "d e f.", docs[0].Windows[1].Text)
}

func TestNewLoggerFromFlags(t *testing.T) {
	pf := rootCmd.PersistentFlags()
	t.Cleanup(func() {
		_ = pf.Set("log-level", "info")
		_ = pf.Set("log-style", "terminal")
	})

	tests := []struct {
		level   string
		style   string
		enabled zapcore.Level
	}{
		{level: "debug", style: "terminal", enabled: zap.DebugLevel},
		{level: "warn", style: "json", enabled: zap.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.style, func(t *testing.T) {
			require.NoError(t, pf.Set("log-level", tt.level))
			require.NoError(t, pf.Set("log-style", tt.style))

			logger := newLogger()
			require.NotNil(t, logger)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.Equal(t, tt.enabled == zap.DebugLevel, logger.Core().Enabled(zap.DebugLevel))
		})
	}
}
