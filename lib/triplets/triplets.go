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

// Package triplets defines semantic (subject, predicate, object) triplets,
// both as free text and as spans anchored in a tokenized document.
package triplets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antflydb/spanalign/lib/document"
)

var (
	// ErrDocumentMismatch is returned when triplets from documents with
	// different texts are combined or compared.
	ErrDocumentMismatch = errors.New("document text mismatch")

	// ErrMixedDocuments is returned when the spans of one triplet do not
	// share a document.
	ErrMixedDocuments = errors.New("triplet spans belong to different documents")
)

// Role is the slot a span fills in a triplet.
type Role = document.Role

const (
	RoleSubject   = document.RoleSubject
	RolePredicate = document.RolePredicate
	RoleObject    = document.RoleObject
)

// Roles lists the triplet roles in canonical order.
var Roles = [3]Role{RoleSubject, RolePredicate, RoleObject}

// CharSpan is a byte range [Start, End) in a source text.
type CharSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// StringTriplet is a triplet expressed as three strings. Character spans are
// only set when the triplet was recovered from marked-up text.
type StringTriplet struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`

	SubjectSpan   *CharSpan `json:"subject_span,omitempty"`
	PredicateSpan *CharSpan `json:"predicate_span,omitempty"`
	ObjectSpan    *CharSpan `json:"object_span,omitempty"`

	// Text is the source text the triplet was extracted from, if known.
	Text string `json:"text,omitempty"`
}

// Fields returns subject, predicate and object.
func (t StringTriplet) Fields() [3]string {
	return [3]string{t.Subject, t.Predicate, t.Object}
}

// CharSpans returns the three character spans (any may be nil).
func (t StringTriplet) CharSpans() [3]*CharSpan {
	return [3]*CharSpan{t.SubjectSpan, t.PredicateSpan, t.ObjectSpan}
}

// HasCharSpans reports whether all three character spans are set.
func (t StringTriplet) HasCharSpans() bool {
	return t.SubjectSpan != nil && t.PredicateSpan != nil && t.ObjectSpan != nil
}

// IsBlank reports whether any field is empty or whitespace only.
func (t StringTriplet) IsBlank() bool {
	for _, f := range t.Fields() {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}

// Equal compares texts and source text, and character spans when both sides
// carry all three.
func (t StringTriplet) Equal(o StringTriplet) bool {
	if t.Fields() != o.Fields() || t.Text != o.Text {
		return false
	}
	if !t.HasCharSpans() || !o.HasCharSpans() {
		return true
	}
	a, b := t.CharSpans(), o.CharSpans()
	for i := range a {
		if *a[i] != *b[i] {
			return false
		}
	}
	return true
}

// SpanTriplet is a triplet of spans in one document.
type SpanTriplet struct {
	Subject   document.Span
	Predicate document.Span
	Object    document.Span
}

// New builds a SpanTriplet and labels its spans. All spans must share a
// document.
func New(subject, predicate, object document.Span) (SpanTriplet, error) {
	doc := subject.Document()
	if doc == nil || predicate.Document() != doc || object.Document() != doc {
		return SpanTriplet{}, ErrMixedDocuments
	}
	return SpanTriplet{
		Subject:   subject.WithRole(RoleSubject),
		Predicate: predicate.WithRole(RolePredicate),
		Object:    object.WithRole(RoleObject),
	}, nil
}

// FromCharSpans snaps the character spans of st onto doc. It reports false
// when st lacks spans or any of them does not align with token boundaries.
func FromCharSpans(doc *document.Document, st StringTriplet) (SpanTriplet, bool) {
	if !st.HasCharSpans() {
		return SpanTriplet{}, false
	}
	var spans [3]document.Span
	for i, cs := range st.CharSpans() {
		span, ok := doc.CharSpan(cs.Start, cs.End, Roles[i])
		if !ok {
			return SpanTriplet{}, false
		}
		spans[i] = span
	}
	return SpanTriplet{Subject: spans[0], Predicate: spans[1], Object: spans[2]}, true
}

// Spans returns subject, predicate and object spans.
func (t SpanTriplet) Spans() [3]document.Span {
	return [3]document.Span{t.Subject, t.Predicate, t.Object}
}

// Texts returns the text of each span.
func (t SpanTriplet) Texts() [3]string {
	return [3]string{t.Subject.Text(), t.Predicate.Text(), t.Object.Text()}
}

// Document returns the document the triplet belongs to.
func (t SpanTriplet) Document() *document.Document {
	return t.Subject.Document()
}

// Enclosing returns the smallest span covering all three spans.
func (t SpanTriplet) Enclosing() document.Span {
	start, end := t.Subject.Start, t.Subject.End
	spans := t.Spans()
	for _, s := range spans[1:] {
		start = min(start, s.Start)
		end = max(end, s.End)
	}
	return t.Document().Span(start, end, document.RoleNone)
}

// Sentence returns the first sentence containing the enclosing span, or the
// whole document when the triplet crosses a sentence boundary.
func (t SpanTriplet) Sentence() document.Span {
	enc := t.Enclosing()
	doc := t.Document()
	for _, sent := range doc.SentenceSpans() {
		if sent.Contains(enc) {
			return sent
		}
	}
	return doc.All()
}

// Equal compares document text and start, end and text of each span.
func (t SpanTriplet) Equal(o SpanTriplet) bool {
	if t.Document() == nil || o.Document() == nil {
		return t.Document() == o.Document()
	}
	if t.Document().Text() != o.Document().Text() {
		return false
	}
	a, b := t.Spans(), o.Spans()
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// IsStringMatch reports whether all three span texts are equal.
func (t SpanTriplet) IsStringMatch(o SpanTriplet) bool {
	return t.Texts() == o.Texts()
}

// Strings converts the triplet back to a StringTriplet with byte offsets.
func (t SpanTriplet) Strings() StringTriplet {
	spans := t.Spans()
	cs := make([]*CharSpan, 3)
	for i, s := range spans {
		cs[i] = &CharSpan{Start: s.CharStart(), End: s.CharEnd()}
	}
	texts := t.Texts()
	return StringTriplet{
		Subject:       texts[0],
		Predicate:     texts[1],
		Object:        texts[2],
		SubjectSpan:   cs[0],
		PredicateSpan: cs[1],
		ObjectSpan:    cs[2],
		Text:          t.Document().Text(),
	}
}

// String implements fmt.Stringer.
func (t SpanTriplet) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t.Subject, t.Predicate, t.Object)
}
