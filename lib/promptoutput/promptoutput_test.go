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

package promptoutput

import (
	"testing"

	"github.com/antflydb/spanalign/lib/triplets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(ts []triplets.StringTriplet) [][3]string {
	out := make([][3]string, len(ts))
	for i, t := range ts {
		out[i] = t.Fields()
	}
	return out
}

func TestParseParenthesized(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     [][3]string
	}{
		{
			name:     "one per line",
			response: "(Kenneth) (er) (glad i dag)\n(Han) (spiser) (is)",
			want:     [][3]string{{"Kenneth", "er", "glad i dag"}, {"Han", "spiser", "is"}},
		},
		{
			name:     "separators and blank lines ignored",
			response: "\n(Kenneth) (er) (glad)\n---\n\n",
			want:     [][3]string{{"Kenneth", "er", "glad"}},
		},
		{
			name:     "wrong arity dropped",
			response: "(Kenneth) (er)\n(a) (b) (c) (d)\n(x)(y)(z)",
			want:     [][3]string{{"x", "y", "z"}},
		},
		{
			name:     "empty groups skipped",
			response: "(Kenneth) ( ) (er) (glad)",
			want:     [][3]string{{"Kenneth", "er", "glad"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseParenthesized(tt.response, "source")
			assert.Equal(t, tt.want, fieldsOf(got))
			for _, st := range got {
				assert.Equal(t, "source", st.Text)
				assert.False(t, st.HasCharSpans())
			}
		})
	}
}

func TestParseMarkdownTable(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     [][3]string
	}{
		{
			name:     "rows",
			response: "| Kenneth | er | glad |\n| Han | spiser | is |\n",
			want:     [][3]string{{"Kenneth", "er", "glad"}, {"Han", "spiser", "is"}},
		},
		{
			name:     "header and separator skipped",
			response: "| Subject | Predicate | Object |\n|---|:---:|---|\n| Kenneth | er | glad |",
			want:     [][3]string{{"Kenneth", "er", "glad"}},
		},
		{
			name:     "stops at next example",
			response: "| Kenneth | er | glad |\n| Another tweet | Anna | ser | Bo |\n| Anna | ser | Bo |",
			want:     [][3]string{{"Kenneth", "er", "glad"}},
		},
		{
			name:     "continuation rows with empty first cell",
			response: "| | Kenneth | er | glad |",
			want:     [][3]string{{"Kenneth", "er", "glad"}},
		},
		{
			name:     "nothing",
			response: "no table here",
			want:     [][3]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldsOf(ParseMarkdownTable(tt.response, "")))
		})
	}
}

func TestParseDashed(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     [][3]string
	}{
		{
			name:     "one per line",
			response: "Kenneth - er - glad i dag\n  Han-spiser-is  \n",
			want:     [][3]string{{"Kenneth", "er", "glad i dag"}, {"Han", "spiser", "is"}},
		},
		{
			name:     "wrong arity dropped",
			response: "Kenneth - er\nJens-Peter - spiser - is\nAnna - ser - Bo",
			want:     [][3]string{{"Anna", "ser", "Bo"}},
		},
		{
			name:     "empty field dropped",
			response: "- er - glad\nKenneth -  - glad",
			want:     [][3]string{},
		},
		{
			name:     "no dashes",
			response: "(Kenneth) (er) (glad)",
			want:     [][3]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDashed(tt.response, "source")
			assert.Equal(t, tt.want, fieldsOf(got))
			for _, st := range got {
				assert.Equal(t, "source", st.Text)
			}
		})
	}
}

func TestParseTagged(t *testing.T) {
	got := ParseTagged("  <subject-1>Kenneth</subject-1> <predicate-1>er</predicate-1> <object-1>glad</object-1> i dag\n")
	require.Len(t, got, 1)
	assert.Equal(t, [3]string{"Kenneth", "er", "glad"}, got[0].Fields())
	assert.Equal(t, "Kenneth er glad i dag", got[0].Text)
	require.True(t, got[0].HasCharSpans())
	assert.Equal(t, triplets.CharSpan{Start: 11, End: 15}, *got[0].ObjectSpan)
}

func TestParseDispatch(t *testing.T) {
	f, err := ParseFormat(" Markdown ")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	_, err = ParseFormat("json")
	require.ErrorIs(t, err, ErrUnknownFormat)

	got, err := Parse(FormatParenthesized, "(a) (b) (c)", "a b c")
	require.NoError(t, err)
	assert.Equal(t, [][3]string{{"a", "b", "c"}}, fieldsOf(got))

	got, err = Parse(FormatDash, "a - b - c", "a b c")
	require.NoError(t, err)
	assert.Equal(t, [][3]string{{"a", "b", "c"}}, fieldsOf(got))

	f, err = ParseFormat("DASH")
	require.NoError(t, err)
	assert.Equal(t, FormatDash, f)

	_, err = Parse(Format("yaml"), "", "")
	require.ErrorIs(t, err, ErrUnknownFormat)
}
