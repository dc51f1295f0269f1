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

// Package document provides the tokenized, sentence-segmented text that
// triplet spans are anchored to.
//
// A Document is immutable once built. Spans are plain token index ranges that
// carry a pointer to their Document, so two spans can be compared by value
// without touching the underlying token array.
package document

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidToken is returned when a token's offsets do not fit the text
	// or tokens are not in ascending, non-overlapping order.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidSentence is returned when sentences are not contiguous,
	// ordered, non-overlapping token ranges.
	ErrInvalidSentence = errors.New("invalid sentence")
)

// Token is a single token of a Document.
type Token struct {
	// Text is the token text exactly as it appears in the document.
	Text string `json:"text"`
	// Start is the byte offset where the token begins.
	Start int `json:"start"`
	// End is the byte offset where the token ends (exclusive).
	End int `json:"end"`
	// Index is the position of the token in its Document.
	Index int `json:"index"`
}

// Sentence is a contiguous token index range [Start, End).
type Sentence struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of tokens in the sentence.
func (s Sentence) Len() int {
	return s.End - s.Start
}

// Document is an immutable ordered sequence of tokens grouped into sentences.
type Document struct {
	text      string
	tokens    []Token
	sentences []Sentence
}

// New builds a Document from text, tokens and sentences. Token indices are
// reassigned from their position. An empty sentence list makes the whole
// document a single sentence.
func New(text string, tokens []Token, sentences []Sentence) (*Document, error) {
	toks := make([]Token, len(tokens))
	prevEnd := 0
	for i, tok := range tokens {
		if tok.Start < prevEnd || tok.End <= tok.Start || tok.End > len(text) {
			return nil, fmt.Errorf("%w: token %d [%d, %d)", ErrInvalidToken, i, tok.Start, tok.End)
		}
		if text[tok.Start:tok.End] != tok.Text {
			return nil, fmt.Errorf("%w: token %d text %q does not match %q",
				ErrInvalidToken, i, tok.Text, text[tok.Start:tok.End])
		}
		tok.Index = i
		toks[i] = tok
		prevEnd = tok.End
	}

	var sents []Sentence
	if len(sentences) == 0 {
		if len(toks) > 0 {
			sents = []Sentence{{Start: 0, End: len(toks)}}
		}
	} else {
		sents = make([]Sentence, len(sentences))
		prev := 0
		for i, s := range sentences {
			if s.Start != prev || s.End <= s.Start || s.End > len(toks) {
				return nil, fmt.Errorf("%w: sentence %d [%d, %d)", ErrInvalidSentence, i, s.Start, s.End)
			}
			sents[i] = s
			prev = s.End
		}
		if prev != len(toks) {
			return nil, fmt.Errorf("%w: sentences cover %d of %d tokens", ErrInvalidSentence, prev, len(toks))
		}
	}

	return &Document{text: text, tokens: toks, sentences: sents}, nil
}

// Text returns the raw document text.
func (d *Document) Text() string {
	return d.text
}

// Len returns the number of tokens.
func (d *Document) Len() int {
	return len(d.tokens)
}

// Token returns the token at index i.
func (d *Document) Token(i int) Token {
	return d.tokens[i]
}

// Tokens returns a copy of the document tokens.
func (d *Document) Tokens() []Token {
	out := make([]Token, len(d.tokens))
	copy(out, d.tokens)
	return out
}

// Sentences returns a copy of the sentence ranges.
func (d *Document) Sentences() []Sentence {
	out := make([]Sentence, len(d.sentences))
	copy(out, d.sentences)
	return out
}

// All returns a span covering the whole document.
func (d *Document) All() Span {
	return Span{doc: d, Start: 0, End: len(d.tokens)}
}

// Span returns the span [start, end). It panics if the range is out of bounds,
// matching slice semantics.
func (d *Document) Span(start, end int, role Role) Span {
	if start < 0 || end < start || end > len(d.tokens) {
		panic(fmt.Sprintf("document: span [%d, %d) out of range for %d tokens", start, end, len(d.tokens)))
	}
	return Span{doc: d, Start: start, End: end, Role: role}
}

// CharSpan snaps the byte range [startChar, endChar) to tokens. The range must
// start exactly at a token start and end exactly at a token end; anything else,
// including an empty range, reports false.
func (d *Document) CharSpan(startChar, endChar int, role Role) (Span, bool) {
	if startChar >= endChar || startChar < 0 || endChar > len(d.text) {
		return Span{}, false
	}
	start, ok := d.tokenStartingAt(startChar)
	if !ok {
		return Span{}, false
	}
	end := -1
	for i := start; i < len(d.tokens); i++ {
		if d.tokens[i].End == endChar {
			end = i + 1
			break
		}
		if d.tokens[i].End > endChar {
			break
		}
	}
	if end < 0 {
		return Span{}, false
	}
	return Span{doc: d, Start: start, End: end, Role: role}, true
}

func (d *Document) tokenStartingAt(offset int) (int, bool) {
	lo, hi := 0, len(d.tokens)
	for lo < hi {
		mid := (lo + hi) / 2
		if d.tokens[mid].Start < offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(d.tokens) && d.tokens[lo].Start == offset {
		return lo, true
	}
	return 0, false
}

// SentenceSpans returns one span per sentence, in document order.
func (d *Document) SentenceSpans() []Span {
	out := make([]Span, len(d.sentences))
	for i, s := range d.sentences {
		out[i] = Span{doc: d, Start: s.Start, End: s.End}
	}
	return out
}

// Role labels a span for rendering. It takes no part in equality.
type Role string

const (
	RoleNone      Role = ""
	RoleSubject   Role = "subject"
	RolePredicate Role = "predicate"
	RoleObject    Role = "object"
)

// Span is a contiguous token range [Start, End) within one Document.
type Span struct {
	doc   *Document
	Start int
	End   int
	Role  Role
}

// Document returns the document the span belongs to.
func (s Span) Document() *Document {
	return s.doc
}

// Len returns the number of tokens in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// IsZero reports whether the span is not bound to any document.
func (s Span) IsZero() bool {
	return s.doc == nil
}

// CharStart returns the byte offset of the span start.
func (s Span) CharStart() int {
	if s.Start >= len(s.doc.tokens) {
		return len(s.doc.text)
	}
	return s.doc.tokens[s.Start].Start
}

// CharEnd returns the byte offset of the span end.
func (s Span) CharEnd() int {
	if s.End == s.Start {
		return s.CharStart()
	}
	return s.doc.tokens[s.End-1].End
}

// Text returns the document text covered by the span, whitespace preserved.
func (s Span) Text() string {
	if s.doc == nil || s.End <= s.Start {
		return ""
	}
	return s.doc.text[s.CharStart():s.CharEnd()]
}

// TokenTexts returns the texts of the tokens in the span.
func (s Span) TokenTexts() []string {
	if s.doc == nil {
		return nil
	}
	out := make([]string, 0, s.Len())
	for _, tok := range s.doc.tokens[s.Start:s.End] {
		out = append(out, tok.Text)
	}
	return out
}

// Contains reports whether o lies within s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// WithRole returns a copy of the span with the given role.
func (s Span) WithRole(role Role) Span {
	s.Role = role
	return s
}

// Equal compares start, end and text. Document identity is irrelevant so
// spans over separately tokenized copies of the same text compare equal.
func (s Span) Equal(o Span) bool {
	return s.Start == o.Start && s.End == o.End && s.Text() == o.Text()
}

// String implements fmt.Stringer.
func (s Span) String() string {
	return fmt.Sprintf("%q[%d:%d]", s.Text(), s.Start, s.End)
}

// Tokenizer turns raw text into a Document.
type Tokenizer interface {
	Tokenize(text string) (*Document, error)
}

// ContextEndMarker separates thread context from the target text.
const ContextEndMarker = "[CONTEXT_END]"

// WithContext prepends a thread context to text, separated by ContextEndMarker.
func WithContext(context, text string) string {
	if context == "" {
		return text
	}
	return strings.Join([]string{context, ContextEndMarker, text}, "\n")
}

// RemoveContext strips everything up to and including the last
// ContextEndMarker.
func RemoveContext(text string) string {
	if i := strings.LastIndex(text, ContextEndMarker); i >= 0 {
		text = text[i+len(ContextEndMarker):]
	}
	return strings.TrimSpace(text)
}
