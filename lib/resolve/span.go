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

package resolve

import (
	"strings"

	"github.com/antflydb/spanalign/lib/document"
	"github.com/antflydb/spanalign/lib/triplets"
)

// matchSpans locates each field as a token window inside scope.
func (a *attempt) matchSpans(scope document.Span, lowercase bool) (triplets.SpanTriplet, bool) {
	fields, err := a.fieldTokens()
	if err != nil {
		return triplets.SpanTriplet{}, false
	}

	haystack := scope.TokenTexts()
	if lowercase {
		haystack = lowerAll(haystack)
		for i := range fields {
			fields[i] = lowerAll(fields[i])
		}
	}
	find := func(needle []string) []document.Span {
		return windows(a.doc, scope.Start, haystack, needle)
	}

	subjects := find(fields[0])
	if len(subjects) == 0 {
		return triplets.SpanTriplet{}, false
	}
	subj := subjects[0]

	objects := find(fields[2])
	if len(objects) == 0 {
		return triplets.SpanTriplet{}, false
	}
	obj := objects[0]
	for _, o := range objects {
		if o.Start >= subj.End {
			obj = o
			break
		}
	}

	preds := find(fields[1])
	if len(preds) == 0 {
		return triplets.SpanTriplet{}, false
	}
	pred := choosePredicate(preds, subj, obj)

	// Prefer the subject occurrence closest before the predicate and object.
	limit := min(pred.Start, obj.Start)
	best := -1
	for i, s := range subjects {
		if s.End <= limit && (best < 0 || s.Start > subjects[best].Start) {
			best = i
		}
	}
	if best >= 0 {
		subj = subjects[best]
	}

	t, err := triplets.New(subj, pred, obj)
	if err != nil {
		return triplets.SpanTriplet{}, false
	}
	return t, true
}

// choosePredicate picks the predicate candidate between subject and object
// that starts closest to the object. Without one, it takes the candidate
// ending last before the gap, else the one starting closest to the object.
func choosePredicate(preds []document.Span, subj, obj document.Span) document.Span {
	lo := min(subj.End, obj.End)
	hi := max(subj.Start, obj.Start)

	closest := func(cands []document.Span) document.Span {
		best := cands[0]
		for _, p := range cands[1:] {
			if absInt(p.Start-obj.Start) < absInt(best.Start-obj.Start) {
				best = p
			}
		}
		return best
	}

	var inside []document.Span
	for _, p := range preds {
		if p.Start >= lo && p.End <= hi {
			inside = append(inside, p)
		}
	}
	if len(inside) > 0 {
		return closest(inside)
	}

	before := -1
	for i, p := range preds {
		if p.End < lo && (before < 0 || p.End > preds[before].End) {
			before = i
		}
	}
	if before >= 0 {
		return preds[before]
	}
	return closest(preds)
}

// windows returns every window of haystack equal to needle, left to right, as
// spans of doc. offset is the token index of haystack[0].
func windows(doc *document.Document, offset int, haystack, needle []string) []document.Span {
	n := len(needle)
	if n == 0 || n > len(haystack) {
		return nil
	}
	var out []document.Span
	for i := 0; i+n <= len(haystack); i++ {
		if equalTokens(haystack[i:i+n], needle) {
			out = append(out, doc.Span(offset+i, offset+i+n, document.RoleNone))
		}
	}
	return out
}

func equalTokens(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
