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

package document

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
)

// Tokenizer names accepted by NewTokenizer.
const (
	TokenizerRule  = "rule"
	TokenizerProse = "prose"
)

// NewTokenizer returns the tokenizer registered under name.
func NewTokenizer(name string) (Tokenizer, error) {
	switch strings.ToLower(name) {
	case "", TokenizerRule:
		return NewRuleTokenizer(), nil
	case TokenizerProse:
		return NewProseTokenizer(), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q (want %q or %q)", name, TokenizerRule, TokenizerProse)
	}
}

// Ensure tokenizers implement the interface
var (
	_ Tokenizer = (*RuleTokenizer)(nil)
	_ Tokenizer = (*ProseTokenizer)(nil)
)

var ruleTokenRE = regexp.MustCompile(`[@#]?[\p{L}\p{N}_]+(?:['’.\-][\p{L}\p{N}_]+)*|[^\s\p{L}\p{N}_]`)

// RuleTokenizer is a deterministic regexp tokenizer. Words keep inner
// apostrophes, hyphens and dots, @mentions and #hashtags stay whole, and every
// other non-space rune is its own token. A sentence closes after a run of
// terminal punctuation.
type RuleTokenizer struct{}

// NewRuleTokenizer returns a RuleTokenizer.
func NewRuleTokenizer() *RuleTokenizer {
	return &RuleTokenizer{}
}

// Tokenize implements Tokenizer.
func (t *RuleTokenizer) Tokenize(text string) (*Document, error) {
	locs := ruleTokenRE.FindAllStringIndex(text, -1)
	tokens := make([]Token, len(locs))
	for i, loc := range locs {
		tokens[i] = Token{Text: text[loc[0]:loc[1]], Start: loc[0], End: loc[1], Index: i}
	}
	return New(text, tokens, sentencize(tokens))
}

func isTerminal(tok string) bool {
	switch tok {
	case ".", "!", "?", "…":
		return true
	}
	return false
}

// sentencize splits after terminal punctuation that is not followed by more
// terminal punctuation.
func sentencize(tokens []Token) []Sentence {
	var sents []Sentence
	start := 0
	for i, tok := range tokens {
		if !isTerminal(tok.Text) {
			continue
		}
		if i+1 < len(tokens) && isTerminal(tokens[i+1].Text) {
			continue
		}
		sents = append(sents, Sentence{Start: start, End: i + 1})
		start = i + 1
	}
	if start < len(tokens) {
		sents = append(sents, Sentence{Start: start, End: len(tokens)})
	}
	return sents
}

// ProseTokenizer uses prose for tokenization and sentence segmentation.
// Prose does not report offsets, so tokens and sentences are located by an
// ordered search through the source text.
type ProseTokenizer struct{}

// NewProseTokenizer returns a ProseTokenizer.
func NewProseTokenizer() *ProseTokenizer {
	return &ProseTokenizer{}
}

// Tokenize implements Tokenizer.
func (t *ProseTokenizer) Tokenize(text string) (*Document, error) {
	if strings.TrimSpace(text) == "" {
		return New(text, nil, nil)
	}

	pd, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("prose tokenization: %w", err)
	}

	view := newSanitizedView(text)

	tokens := make([]Token, 0, len(pd.Tokens()))
	cursor := 0
	for _, pt := range pd.Tokens() {
		start, end, ok := view.find(pt.Text, cursor)
		if !ok {
			continue
		}
		tokens = append(tokens, Token{Text: text[start:end], Start: start, End: end})
		cursor = view.sanitizedOffset(end)
	}

	var sentStarts []int
	cursor = 0
	for _, ps := range pd.Sentences() {
		st := strings.TrimSpace(ps.Text)
		if st == "" {
			continue
		}
		start, end, ok := view.find(st, cursor)
		if !ok {
			continue
		}
		sentStarts = append(sentStarts, start)
		cursor = view.sanitizedOffset(end)
	}

	return New(text, tokens, sentencesFromStarts(tokens, sentStarts))
}

// sentencesFromStarts turns sentence start offsets into contiguous token ranges.
func sentencesFromStarts(tokens []Token, starts []int) []Sentence {
	if len(tokens) == 0 {
		return nil
	}
	bounds := []int{0}
	for _, off := range starts {
		idx := sort.Search(len(tokens), func(i int) bool { return tokens[i].Start >= off })
		if idx > bounds[len(bounds)-1] && idx < len(tokens) {
			bounds = append(bounds, idx)
		}
	}
	sents := make([]Sentence, 0, len(bounds))
	for i, b := range bounds {
		end := len(tokens)
		if i+1 < len(bounds) {
			end = bounds[i+1]
		}
		sents = append(sents, Sentence{Start: b, End: end})
	}
	return sents
}

var quoteFold = map[rune]rune{
	'“': '"',
	'”': '"',
	'‘': '\'',
	'’': '\'',
}

// sanitizedView mirrors prose's quote normalization while keeping a map back
// to byte offsets in the original text.
type sanitizedView struct {
	text    string
	toOrig  []int
	fromOrg map[int]int
}

func newSanitizedView(text string) *sanitizedView {
	var b strings.Builder
	toOrig := make([]int, 0, len(text)+1)
	fromOrig := make(map[int]int, len(text)+1)
	for i, r := range text {
		fromOrig[i] = b.Len()
		if folded, ok := quoteFold[r]; ok {
			r = folded
		}
		n := utf8.RuneLen(r)
		for k := 0; k < n; k++ {
			toOrig = append(toOrig, i)
		}
		b.WriteRune(r)
	}
	fromOrig[len(text)] = b.Len()
	toOrig = append(toOrig, len(text))
	return &sanitizedView{text: b.String(), toOrig: toOrig, fromOrg: fromOrig}
}

// find locates needle at or after the sanitized offset from and returns
// original byte offsets.
func (v *sanitizedView) find(needle string, from int) (int, int, bool) {
	if from > len(v.text) {
		return 0, 0, false
	}
	idx := strings.Index(v.text[from:], needle)
	if idx < 0 {
		return 0, 0, false
	}
	s := from + idx
	e := s + len(needle)
	return v.toOrig[s], v.origEnd(e), true
}

func (v *sanitizedView) origEnd(e int) int {
	if e >= len(v.text) {
		return v.toOrig[len(v.text)]
	}
	return v.toOrig[e]
}

func (v *sanitizedView) sanitizedOffset(orig int) int {
	if off, ok := v.fromOrg[orig]; ok {
		return off
	}
	return len(v.text)
}
