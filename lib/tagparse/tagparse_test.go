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

package tagparse

import (
	"testing"

	"github.com/antflydb/spanalign/lib/triplets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type field struct {
	text       string
	start, end int
}

func fieldsOf(st triplets.StringTriplet) [3]field {
	var out [3]field
	for i, cs := range st.CharSpans() {
		out[i] = field{text: st.Fields()[i], start: cs.Start, end: cs.End}
	}
	return out
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		clean string
		want  [][3]field
	}{
		{
			name:  "single triplet",
			text:  "<subject-1>A</subject-1> <predicate-1>B</predicate-1> <object-1>C</object-1>",
			clean: "A B C",
			want:  [][3]field{{{"A", 0, 1}, {"B", 2, 3}, {"C", 4, 5}}},
		},
		{
			name: "tweet with mentions and non ascii",
			text: "@Berry1952K: @BibsenSkyt @JakobEllemann Synes <subject-1>det</subject-1> " +
				"<predicate-1>er</predicate-1> total <object-1>mangel på respekt</object-1> for alle andre partiledere.",
			clean: "@Berry1952K: @BibsenSkyt @JakobEllemann Synes det er total mangel på respekt for alle andre partiledere.",
			want:  [][3]field{{{"det", 46, 49}, {"er", 50, 52}, {"mangel på respekt", 59, 77}}},
		},
		{
			name: "nested markers",
			text: "<subject-1><subject-2>Anna</subject-2> og Bo</subject-1> " +
				"<predicate-1><predicate-2>ser</predicate-2></predicate-1> " +
				"<object-2><object-1>filmen</object-1></object-2>",
			clean: "Anna og Bo ser filmen",
			want: [][3]field{
				{{"Anna og Bo", 0, 10}, {"ser", 11, 14}, {"filmen", 15, 21}},
				{{"Anna", 0, 4}, {"ser", 11, 14}, {"filmen", 15, 21}},
			},
		},
		{
			name: "interleaved markers",
			text: "<subject-1>a <subject-2>b</subject-1> c</subject-2> " +
				"<predicate-2><predicate-1>d</predicate-1></predicate-2> " +
				"<object-1>e</object-1><object-2>f</object-2>",
			clean: "a b c d ef",
			want: [][3]field{
				{{"a b", 0, 3}, {"d", 6, 7}, {"e", 8, 9}},
				{{"b c", 2, 5}, {"d", 6, 7}, {"f", 9, 10}},
			},
		},
		{
			name: "incomplete triplet dropped",
			text: "<subject-1>A</subject-1> <predicate-1>B</predicate-1> <object-1>C</object-1> " +
				"<subject-2>D</subject-2> <predicate-2>E</predicate-2> F",
			clean: "A B C D E F",
			want:  [][3]field{{{"A", 0, 1}, {"B", 2, 3}, {"C", 4, 5}}},
		},
		{
			name: "unmatched markers stripped",
			text: "</subject-1><subject-1>A</subject-1> <predicate-1>B</predicate-1> " +
				"<object-1>C</object-1> <object-3>D",
			clean: "A B C D",
			want:  [][3]field{{{"A", 0, 1}, {"B", 2, 3}, {"C", 4, 5}}},
		},
		{
			name: "triplets ordered by number",
			text: "<subject-7>X</subject-7><predicate-7>Y</predicate-7><object-7>Z</object-7> " +
				"<subject-2>x</subject-2><predicate-2>y</predicate-2><object-2>z</object-2>",
			clean: "XYZ xyz",
			want: [][3]field{
				{{"x", 4, 5}, {"y", 5, 6}, {"z", 6, 7}},
				{{"X", 0, 1}, {"Y", 1, 2}, {"Z", 2, 3}},
			},
		},
		{
			name:  "other tags kept",
			text:  "<b>bold</b> <subject-1>",
			clean: "<b>bold</b> ",
		},
		{
			name:  "no markers",
			text:  "plain text",
			clean: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, got := Parse(tt.text)
			assert.Equal(t, tt.clean, clean)
			require.Len(t, got, len(tt.want))
			for i, st := range got {
				assert.Equal(t, tt.want[i], fieldsOf(st))
				assert.Equal(t, clean, st.Text)
				for _, f := range fieldsOf(st) {
					assert.Equal(t, f.text, clean[f.start:f.end])
				}
			}
		})
	}
}

func TestParseWithCustomRoles(t *testing.T) {
	text := "<subj-1>Anna</subj-1> <pred-1>ser</pred-1> <obj-1>Bo</obj-1> <subject-1>x</subject-1>"
	clean, got := ParseWith(text, Roles{"subj", "pred", "obj"})
	assert.Equal(t, "Anna ser Bo <subject-1>x</subject-1>", clean)
	require.Len(t, got, 1)
	assert.Equal(t, [3]string{"Anna", "ser", "Bo"}, got[0].Fields())
}

func TestScan(t *testing.T) {
	markers := Scan("<subject-12>a</subject-12><object-1>", DefaultRoles)
	assert.Equal(t, []Marker{
		{Slot: 0, Role: "subject", N: 12, Close: false, Start: 0, End: 12},
		{Slot: 0, Role: "subject", N: 12, Close: true, Start: 13, End: 26},
		{Slot: 2, Role: "object", N: 1, Close: false, Start: 26, End: 36},
	}, markers)
}

func TestShiftTable(t *testing.T) {
	// Markers at [2, 5) and [8, 10).
	s := newShiftTable([]Marker{{Start: 2, End: 5}, {Start: 8, End: 10}})
	tests := []struct {
		p, want int
	}{
		{p: 0, want: 0},
		{p: 2, want: 2},
		{p: 3, want: 2},
		{p: 5, want: 2},
		{p: 7, want: 4},
		{p: 9, want: 5},
		{p: 10, want: 5},
		{p: 12, want: 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.mapOffset(tt.p), "offset %d", tt.p)
	}
}

func TestTag(t *testing.T) {
	st := triplets.StringTriplet{
		Subject: "A", Predicate: "B", Object: "C",
		SubjectSpan:   &triplets.CharSpan{Start: 0, End: 1},
		PredicateSpan: &triplets.CharSpan{Start: 2, End: 3},
		ObjectSpan:    &triplets.CharSpan{Start: 4, End: 5},
	}
	out, err := Tag("A B C", []triplets.StringTriplet{st})
	require.NoError(t, err)
	assert.Equal(t, "<subject-1>A</subject-1> <predicate-1>B</predicate-1> <object-1>C</object-1>", out)

	_, err = Tag("A B C", []triplets.StringTriplet{{Subject: "A", Predicate: "B", Object: "C"}})
	require.ErrorIs(t, err, ErrMissingSpans)

	bad := st
	bad.ObjectSpan = &triplets.CharSpan{Start: 4, End: 9}
	_, err = Tag("A B C", []triplets.StringTriplet{bad})
	require.ErrorIs(t, err, ErrSpanOutOfRange)
}

func TestTagNestsSharedBoundaries(t *testing.T) {
	clean := "Anna og Bo ser filmen"
	ts := []triplets.StringTriplet{
		withSpans(clean, [3][2]int{{0, 10}, {11, 14}, {15, 21}}),
		withSpans(clean, [3][2]int{{0, 4}, {11, 14}, {15, 21}}),
	}
	out, err := Tag(clean, ts)
	require.NoError(t, err)
	assert.Equal(t,
		"<subject-1><subject-2>Anna</subject-2> og Bo</subject-1> "+
			"<predicate-1><predicate-2>ser</predicate-2></predicate-1> "+
			"<object-1><object-2>filmen</object-2></object-1>",
		out)
}

func withSpans(clean string, r [3][2]int) triplets.StringTriplet {
	return triplets.StringTriplet{
		Subject:       clean[r[0][0]:r[0][1]],
		Predicate:     clean[r[1][0]:r[1][1]],
		Object:        clean[r[2][0]:r[2][1]],
		SubjectSpan:   &triplets.CharSpan{Start: r[0][0], End: r[0][1]},
		PredicateSpan: &triplets.CharSpan{Start: r[1][0], End: r[1][1]},
		ObjectSpan:    &triplets.CharSpan{Start: r[2][0], End: r[2][1]},
		Text:          clean,
	}
}

func TestTagParseRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		clean  string
		ranges [][3][2]int
	}{
		{
			name:   "disjoint",
			clean:  "Kenneth er glad i dag",
			ranges: [][3][2]int{{{0, 7}, {8, 10}, {11, 21}}},
		},
		{
			name:  "overlapping triplets",
			clean: "a b c d ef",
			ranges: [][3][2]int{
				{{0, 3}, {6, 7}, {8, 9}},
				{{2, 5}, {6, 7}, {9, 10}},
				{{0, 1}, {2, 3}, {4, 10}},
			},
		},
		{
			name:   "non ascii",
			clean:  "mangel på respekt for alle",
			ranges: [][3][2]int{{{0, 6}, {7, 10}, {11, 18}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := make([]triplets.StringTriplet, len(tt.ranges))
			for i, r := range tt.ranges {
				want[i] = withSpans(tt.clean, r)
			}
			marked, err := Tag(tt.clean, want)
			require.NoError(t, err)

			clean, got := Parse(marked)
			assert.Equal(t, tt.clean, clean)
			require.Len(t, got, len(want))
			for i := range want {
				assert.True(t, want[i].Equal(got[i]), "triplet %d: want %+v got %+v", i, want[i], got[i])
				assert.Equal(t, fieldsOf(want[i]), fieldsOf(got[i]))
			}
		})
	}
}
