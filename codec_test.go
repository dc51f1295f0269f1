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

package spanalign

import (
	"bytes"
	"strings"
	"testing"

	"github.com/antflydb/spanalign/lib/promptoutput"
	"github.com/antflydb/spanalign/lib/triplets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadExtractions(t *testing.T) {
	input := `{"id":"d1","text":"Kenneth er glad.","format":"parenthesized","response":"(Kenneth) (er) (glad)"}

{"id":"d2","text":"Han spiser is.","triplets":[["Han","spiser","is"]]}
`
	got, err := ReadExtractions(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d1", got[0].ID)
	assert.Equal(t, promptoutput.FormatParenthesized, got[0].Format)
	assert.Equal(t, [][]string{{"Han", "spiser", "is"}}, got[1].Triplets)
}

func TestReadJSONLinesError(t *testing.T) {
	_, err := ReadExtractions(strings.NewReader("{\"text\":\"ok\"}\n{not json}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRecordsRoundTrip(t *testing.T) {
	records := []triplets.Record{
		{
			ID:   "d1",
			Text: "Kenneth er glad.",
			SemanticTriplets: []triplets.TripletRecord{{
				Subject:   triplets.SpanRecord{Text: "Kenneth", Start: 0, End: 1},
				Predicate: triplets.SpanRecord{Text: "er", Start: 1, End: 2},
				Object:    triplets.SpanRecord{Text: "glad", Start: 2, End: 3},
			}},
		},
		{ID: "d2", Text: "Nothing here.", SemanticTriplets: []triplets.TripletRecord{}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSONLines(&buf, records))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	got, err := ReadRecords(&buf)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestExtractionStringTriplets(t *testing.T) {
	tests := []struct {
		name    string
		ex      Extraction
		want    [][3]string
		wantErr error
	}{
		{
			name: "default format",
			ex:   Extraction{Text: "Kenneth er glad.", Response: "(Kenneth) (er) (glad)"},
			want: [][3]string{{"Kenneth", "er", "glad"}},
		},
		{
			name: "markdown plus listed",
			ex: Extraction{
				Text:     "Kenneth er glad. Han spiser is.",
				Format:   promptoutput.FormatMarkdown,
				Response: "| Kenneth | er | glad |",
				Triplets: [][]string{{"Han", "spiser", "is"}},
			},
			want: [][3]string{{"Kenneth", "er", "glad"}, {"Han", "spiser", "is"}},
		},
		{
			name: "tagged",
			ex: Extraction{
				Text:     "Kenneth er glad.",
				Format:   promptoutput.FormatTagged,
				Response: "<subject-1>Kenneth</subject-1> <predicate-1>er</predicate-1> <object-1>glad</object-1>.",
			},
			want: [][3]string{{"Kenneth", "er", "glad"}},
		},
		{
			name: "dash",
			ex:   Extraction{Text: "Kenneth er glad.", Format: promptoutput.FormatDash, Response: "Kenneth - er - glad"},
			want: [][3]string{{"Kenneth", "er", "glad"}},
		},
		{
			name:    "unknown format",
			ex:      Extraction{Format: "yaml", Response: "x"},
			wantErr: promptoutput.ErrUnknownFormat,
		},
		{
			name:    "wrong arity",
			ex:      Extraction{Triplets: [][]string{{"a", "b"}}},
			wantErr: ErrMalformedTriplet,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.ex.StringTriplets()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			fields := make([][3]string, len(got))
			for i, st := range got {
				fields[i] = st.Fields()
				assert.Equal(t, tt.ex.Text, st.Text)
			}
			assert.Equal(t, tt.want, fields)
		})
	}
}
