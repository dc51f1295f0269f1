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
	"unicode"
	"unicode/utf8"

	"github.com/antflydb/spanalign/lib/document"
	"github.com/antflydb/spanalign/lib/triplets"
)

// matchText locates each field as a substring of the scope text and snaps the
// byte ranges to token boundaries.
func (a *attempt) matchText(scope document.Span, lowercase bool) (triplets.SpanTriplet, bool) {
	base := scope.CharStart()
	text := scope.Text()
	fields := a.st.Fields()
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if lowercase {
		text = foldLower(text)
		for i := range fields {
			fields[i] = foldLower(fields[i])
		}
	}
	subj, pred, obj := fields[0], fields[1], fields[2]

	sStart := strings.Index(text, subj)
	if sStart < 0 {
		return triplets.SpanTriplet{}, false
	}
	sEnd := sStart + len(subj)

	oStart := indexFrom(text, obj, sEnd)
	if oStart < 0 {
		oStart = strings.Index(text, obj)
	}
	if oStart < 0 {
		return triplets.SpanTriplet{}, false
	}
	oEnd := oStart + len(obj)

	pStart := -1
	if sEnd <= oEnd {
		if i := strings.Index(text[sEnd:oEnd], pred); i >= 0 {
			pStart = sEnd + i
		}
	}
	if pStart < 0 {
		pStart = strings.Index(text, pred)
	}
	if pStart < 0 {
		return triplets.SpanTriplet{}, false
	}
	pEnd := pStart + len(pred)

	ranges := [3][2]int{{sStart, sEnd}, {pStart, pEnd}, {oStart, oEnd}}
	var spans [3]document.Span
	for i, r := range ranges {
		span, ok := a.doc.CharSpan(base+r[0], base+r[1], triplets.Roles[i])
		if !ok {
			return triplets.SpanTriplet{}, false
		}
		spans[i] = span
	}
	return triplets.SpanTriplet{Subject: spans[0], Predicate: spans[1], Object: spans[2]}, true
}

func indexFrom(s, substr string, from int) int {
	if from > len(s) {
		return -1
	}
	if i := strings.Index(s[from:], substr); i >= 0 {
		return from + i
	}
	return -1
}

// foldLower lowercases s rune by rune, keeping any rune whose lowercase form
// has a different UTF-8 length so byte offsets stay valid in the original.
func foldLower(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		lr := unicode.ToLower(r)
		if r == utf8.RuneError || utf8.RuneLen(lr) != size {
			b.WriteString(s[i : i+size])
		} else {
			b.WriteRune(lr)
		}
		i += size
	}
	return b.String()
}
