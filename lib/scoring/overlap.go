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

package scoring

import (
	"github.com/antflydb/spanalign/lib/document"
	"github.com/antflydb/spanalign/lib/triplets"
)

// tokenKey identifies a token by position, so overlapping spans over two
// tokenizations of the same text compare token by token.
type tokenKey struct {
	start, end int
	text       string
}

func spanKeys(s document.Span) []tokenKey {
	doc := s.Document()
	if doc == nil {
		return nil
	}
	out := make([]tokenKey, 0, s.Len())
	for i := s.Start; i < s.End; i++ {
		tok := doc.Token(i)
		out = append(out, tokenKey{start: tok.Start, end: tok.End, text: tok.Text})
	}
	return out
}

// NormalizedSpanOverlap averages, over the three fields, the longest run of
// tokens shared by ref and pred divided by the reference field's token count.
// It is not symmetric.
func NormalizedSpanOverlap(ref, pred triplets.SpanTriplet) float64 {
	r, p := ref.Spans(), pred.Spans()
	var sum float64
	for i := range r {
		sum += ratio(longestCommonRun(spanKeys(r[i]), spanKeys(p[i])), r[i].Len())
	}
	return sum / 3
}

// NormalizedStringOverlap is NormalizedSpanOverlap over the characters of
// each field's text.
func NormalizedStringOverlap(ref, pred triplets.SpanTriplet) float64 {
	r, p := ref.Texts(), pred.Texts()
	var sum float64
	for i := range r {
		rr := []rune(r[i])
		sum += ratio(longestCommonRun(rr, []rune(p[i])), len(rr))
	}
	return sum / 3
}

// ratio returns n/d, or 0 for an empty reference field.
func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// longestCommonRun returns the length of the longest contiguous run present in
// both a and b.
func longestCommonRun[T comparable](a, b []T) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				best = max(best, cur[j])
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return best
}
