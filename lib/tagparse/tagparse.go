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

// Package tagparse reads and writes inline triplet markers such as
// <subject-1>det</subject-1>.
//
// Markers carry a role and a triplet number n. Markers of different triplets
// may nest or interleave freely. Parse strips every marker and returns the
// complete triplets with byte offsets into the cleaned text; Tag is its
// inverse.
package tagparse

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/antflydb/spanalign/lib/triplets"
)

var (
	// ErrMissingSpans is returned by Tag for a triplet without character spans.
	ErrMissingSpans = errors.New("triplet has no character spans")

	// ErrSpanOutOfRange is returned by Tag for a span outside the text.
	ErrSpanOutOfRange = errors.New("character span out of range")
)

// Roles names the markers used for subject, predicate and object.
type Roles [3]string

// DefaultRoles are the marker names written by extraction prompts.
var DefaultRoles = Roles{"subject", "predicate", "object"}

// Marker is one open or close marker found in a text.
type Marker struct {
	// Slot is the triplet position of the role: 0 subject, 1 predicate, 2 object.
	Slot  int
	Role  string
	N     int
	Close bool
	// Start and End delimit the marker including its angle brackets.
	Start int
	End   int
}

// Len returns the marker width in bytes.
func (m Marker) Len() int {
	return m.End - m.Start
}

type key struct {
	slot int
	n    int
}

func (m Marker) key() key {
	return key{slot: m.Slot, n: m.N}
}

func markerPattern(roles Roles) *regexp.Regexp {
	quoted := make([]string, len(roles))
	for i, r := range roles {
		quoted[i] = regexp.QuoteMeta(r)
	}
	return regexp.MustCompile(`<(/?)(` + strings.Join(quoted, "|") + `)-(\d+)>`)
}

var defaultPattern = markerPattern(DefaultRoles)

// Scan returns every marker for the given roles in text order. Markers whose
// number does not fit an int are still returned with N set to -1, so they
// are stripped but never paired.
func Scan(text string, roles Roles) []Marker {
	re := defaultPattern
	if roles != DefaultRoles {
		re = markerPattern(roles)
	}
	var out []Marker
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		role := text[m[4]:m[5]]
		n, err := strconv.Atoi(text[m[6]:m[7]])
		if err != nil {
			n = -1
		}
		out = append(out, Marker{
			Slot:  slices.Index(roles[:], role),
			Role:  role,
			N:     n,
			Close: m[3] > m[2],
			Start: m[0],
			End:   m[1],
		})
	}
	return out
}

// Parse extracts the triplets marked with DefaultRoles.
func Parse(text string) (string, []triplets.StringTriplet) {
	return ParseWith(text, DefaultRoles)
}

// ParseWith strips every marker for roles from text and returns the cleaned
// text with one StringTriplet per triplet number that has all three roles,
// ordered by number. Field offsets refer to the cleaned text.
//
// A role is paired from its first open marker to the first matching close
// marker after it. Unpaired markers contribute nothing but are still removed.
func ParseWith(text string, roles Roles) (string, []triplets.StringTriplet) {
	markers := Scan(text, roles)
	if len(markers) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, m := range markers {
		b.WriteString(text[prev:m.Start])
		prev = m.End
	}
	b.WriteString(text[prev:])
	clean := b.String()

	shifts := newShiftTable(markers)

	type field struct {
		start, end int
	}
	fields := make(map[int]*[3]*field)
	opened := make(map[key]int)
	closed := make(map[key]bool)
	for i, m := range markers {
		if m.N < 0 {
			continue
		}
		k := m.key()
		if !m.Close {
			if _, ok := opened[k]; !ok {
				opened[k] = i
			}
			continue
		}
		open, ok := opened[k]
		if !ok || closed[k] {
			continue
		}
		closed[k] = true
		start := shifts.mapOffset(markers[open].End)
		end := shifts.mapOffset(m.Start)
		slot, ok := fields[k.n]
		if !ok {
			slot = &[3]*field{}
			fields[k.n] = slot
		}
		slot[k.slot] = &field{start: start, end: end}
	}

	ns := make([]int, 0, len(fields))
	for n, f := range fields {
		if f[0] != nil && f[1] != nil && f[2] != nil {
			ns = append(ns, n)
		}
	}
	slices.Sort(ns)

	out := make([]triplets.StringTriplet, 0, len(ns))
	for _, n := range ns {
		f := fields[n]
		st := triplets.StringTriplet{Text: clean}
		texts := [3]*string{&st.Subject, &st.Predicate, &st.Object}
		spans := [3]**triplets.CharSpan{&st.SubjectSpan, &st.PredicateSpan, &st.ObjectSpan}
		for i := range f {
			*texts[i] = clean[f[i].start:f[i].end]
			*spans[i] = &triplets.CharSpan{Start: f[i].start, End: f[i].end}
		}
		out = append(out, st)
	}
	return clean, out
}

// shiftTable maps offsets in marked text to offsets in the cleaned text. Each
// removed marker is a (position, width) rule; rules are applied left to right
// with a running total.
type shiftTable struct {
	markers []Marker
}

func newShiftTable(markers []Marker) shiftTable {
	return shiftTable{markers: markers}
}

// mapOffset returns the cleaned-text position of p. Markers ending at or
// before p shift it left by their width; a marker straddling p moves it to
// the marker's start.
func (s shiftTable) mapOffset(p int) int {
	shift := 0
	for _, m := range s.markers {
		switch {
		case m.End <= p:
			shift += m.Len()
		case m.Start < p:
			shift += p - m.Start
		default:
			return p - shift
		}
	}
	return p - shift
}

type insertion struct {
	pos   int
	order int
	width int
	seq   int
	text  string
}

// Tag inserts DefaultRoles markers into clean for every triplet, numbering
// them from 1 in slice order.
func Tag(clean string, ts []triplets.StringTriplet) (string, error) {
	return TagWith(clean, ts, DefaultRoles)
}

// TagWith is Tag with custom role names. Markers opening at the same position
// are written outermost first and markers closing at the same position
// innermost first, so the output nests properly whenever the spans do.
func TagWith(clean string, ts []triplets.StringTriplet, roles Roles) (string, error) {
	var ins []insertion
	for i, t := range ts {
		if !t.HasCharSpans() {
			return "", fmt.Errorf("triplet %d: %w", i, ErrMissingSpans)
		}
		n := i + 1
		for slot, cs := range t.CharSpans() {
			if cs.Start < 0 || cs.End < cs.Start || cs.End > len(clean) {
				return "", fmt.Errorf("triplet %d %s [%d, %d): %w", i, roles[slot], cs.Start, cs.End, ErrSpanOutOfRange)
			}
			width := cs.End - cs.Start
			closeOrder := 0
			if width == 0 {
				closeOrder = 2
			}
			seq := len(ins)
			ins = append(ins,
				insertion{pos: cs.Start, order: 1, width: width, seq: seq, text: fmt.Sprintf("<%s-%d>", roles[slot], n)},
				insertion{pos: cs.End, order: closeOrder, width: width, seq: seq, text: fmt.Sprintf("</%s-%d>", roles[slot], n)},
			)
		}
	}

	slices.SortFunc(ins, func(a, b insertion) int {
		if a.pos != b.pos {
			return a.pos - b.pos
		}
		if a.order != b.order {
			return a.order - b.order
		}
		if a.order == 1 {
			if a.width != b.width {
				return b.width - a.width
			}
			return a.seq - b.seq
		}
		if a.width != b.width {
			return a.width - b.width
		}
		return b.seq - a.seq
	})

	var sb strings.Builder
	prev := 0
	for _, in := range ins {
		sb.WriteString(clean[prev:in.pos])
		sb.WriteString(in.text)
		prev = in.pos
	}
	sb.WriteString(clean[prev:])
	return sb.String(), nil
}
