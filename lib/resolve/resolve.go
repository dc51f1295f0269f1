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

// Package resolve anchors free-text triplets to token spans of a document.
//
// Resolution walks an ordered list of strategies. Each strategy pairs a
// matching method (token windows or character substrings) with a scope (each
// sentence in turn, or the whole document) and a case rule. The first strategy
// that produces all three spans wins; a triplet no strategy can place is
// reported as unresolved and the caller drops it.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antflydb/spanalign/lib/document"
	"github.com/antflydb/spanalign/lib/triplets"
	"go.uber.org/zap"
)

// Method selects how fields are located in a scope.
type Method string

const (
	// MethodSpan matches the field's token sequence against token windows.
	MethodSpan Method = "span"
	// MethodText matches the field as a character substring and snaps the
	// result to token boundaries.
	MethodText Method = "text"
)

// Scope selects the region searched by a strategy.
type Scope string

const (
	// ScopeSentence tries every sentence in document order.
	ScopeSentence Scope = "sentence"
	// ScopeDocument searches the whole document at once.
	ScopeDocument Scope = "document"
)

// Strategy is one attempt in the fallback chain.
type Strategy struct {
	Method    Method
	Scope     Scope
	Lowercase bool
}

// String returns a stable name such as "span/sentence/exact", used as a
// metrics label.
func (s Strategy) String() string {
	c := "exact"
	if s.Lowercase {
		c = "lowercase"
	}
	return fmt.Sprintf("%s/%s/%s", s.Method, s.Scope, c)
}

// DefaultStrategies is the fallback chain: span before text, sentence before
// document, exact case before lowercase.
var DefaultStrategies = []Strategy{
	{MethodSpan, ScopeSentence, false},
	{MethodSpan, ScopeSentence, true},
	{MethodSpan, ScopeDocument, false},
	{MethodSpan, ScopeDocument, true},
	{MethodText, ScopeSentence, false},
	{MethodText, ScopeSentence, true},
	{MethodText, ScopeDocument, false},
	{MethodText, ScopeDocument, true},
}

// ErrUnknownStrategy is returned by ParseStrategy for names it cannot read.
var ErrUnknownStrategy = errors.New("unknown resolution strategy")

// ParseStrategy reads a name in the form produced by Strategy.String.
func ParseStrategy(name string) (Strategy, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(name)), "/")
	if len(parts) != 3 {
		return Strategy{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	s := Strategy{Method: Method(parts[0]), Scope: Scope(parts[1])}
	switch s.Method {
	case MethodSpan, MethodText:
	default:
		return Strategy{}, fmt.Errorf("%w: method %q", ErrUnknownStrategy, parts[0])
	}
	switch s.Scope {
	case ScopeSentence, ScopeDocument:
	default:
		return Strategy{}, fmt.Errorf("%w: scope %q", ErrUnknownStrategy, parts[1])
	}
	switch parts[2] {
	case "exact":
	case "lowercase":
		s.Lowercase = true
	default:
		return Strategy{}, fmt.Errorf("%w: case %q", ErrUnknownStrategy, parts[2])
	}
	return s, nil
}

// ViaCharSpans names resolutions taken from offsets carried by the triplet
// itself rather than from a search strategy.
const ViaCharSpans = "char_spans"

// Result describes a successful resolution.
type Result struct {
	Triplet triplets.SpanTriplet
	// Via is the strategy name, or ViaCharSpans.
	Via string
}

// Resolver anchors StringTriplets to documents. It is safe for concurrent use
// as long as its tokenizer is.
type Resolver struct {
	tok        document.Tokenizer
	strategies []Strategy
	logger     *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStrategies replaces the fallback chain.
func WithStrategies(strategies ...Strategy) Option {
	return func(r *Resolver) {
		r.strategies = append([]Strategy(nil), strategies...)
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver. tok must tokenize the same way as the tokenizer that
// produced the documents passed to Resolve, since the span method compares
// token sequences.
func New(tok document.Tokenizer, opts ...Option) *Resolver {
	r := &Resolver{
		tok:        tok,
		strategies: DefaultStrategies,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strategies returns the configured chain.
func (r *Resolver) Strategies() []Strategy {
	return append([]Strategy(nil), r.strategies...)
}

// Resolve anchors st to doc and reports whether it succeeded. Character
// offsets carried by st are used directly only when st.Text is doc's text.
func (r *Resolver) Resolve(st triplets.StringTriplet, doc *document.Document) (triplets.SpanTriplet, bool) {
	res, ok := r.Match(st, doc)
	return res.Triplet, ok
}

// Match is Resolve with the name of the strategy that succeeded.
func (r *Resolver) Match(st triplets.StringTriplet, doc *document.Document) (Result, bool) {
	fields := st.Fields()
	if st.IsBlank() {
		r.logger.Debug("Skipping triplet with blank field", zap.Strings("fields", fields[:]))
		return Result{}, false
	}

	if st.HasCharSpans() && st.Text == doc.Text() {
		if t, ok := triplets.FromCharSpans(doc, st); ok {
			return Result{Triplet: t, Via: ViaCharSpans}, true
		}
	}

	a := r.newAttempt(st, doc)
	for _, s := range r.strategies {
		if t, ok := a.run(s); ok {
			r.logger.Debug("Resolved triplet",
				zap.String("strategy", s.String()),
				zap.Stringer("triplet", t))
			return Result{Triplet: t, Via: s.String()}, true
		}
	}

	r.logger.Debug("Could not resolve triplet", zap.Strings("fields", fields[:]))
	return Result{}, false
}

// ResolveWith runs a single strategy. Blank fields still fail.
func (r *Resolver) ResolveWith(st triplets.StringTriplet, doc *document.Document, s Strategy) (triplets.SpanTriplet, bool) {
	if st.IsBlank() {
		return triplets.SpanTriplet{}, false
	}
	return r.newAttempt(st, doc).run(s)
}

// Stats counts the outcome of ResolveAll.
type Stats struct {
	Total    int
	Resolved int
	Dropped  int
	// ByStrategy counts resolved triplets per Result.Via.
	ByStrategy map[string]int
}

// ResolveAll resolves every triplet against doc, keeping input order and
// dropping the ones that cannot be anchored.
func (r *Resolver) ResolveAll(doc *document.Document, sts []triplets.StringTriplet) (*triplets.DocumentTriplets, Stats) {
	stats := Stats{Total: len(sts), ByStrategy: make(map[string]int)}
	dt, _ := triplets.NewDocumentTriplets(doc)
	for _, st := range sts {
		res, ok := r.Match(st, doc)
		if !ok {
			stats.Dropped++
			continue
		}
		// Every resolved span is built on doc, so Append cannot fail.
		_ = dt.Append(res.Triplet)
		stats.Resolved++
		stats.ByStrategy[res.Via]++
	}
	return dt, stats
}

// attempt holds per-triplet state shared by strategies: the original fields
// and their tokenization, computed at most once.
type attempt struct {
	r       *Resolver
	st      triplets.StringTriplet
	doc     *document.Document
	fields  [3][]string
	tokErr  error
	tokDone bool
}

func (r *Resolver) newAttempt(st triplets.StringTriplet, doc *document.Document) *attempt {
	return &attempt{r: r, st: st, doc: doc}
}

func (a *attempt) run(s Strategy) (triplets.SpanTriplet, bool) {
	var scopes []document.Span
	switch s.Scope {
	case ScopeSentence:
		scopes = a.doc.SentenceSpans()
	case ScopeDocument:
		if a.doc.Len() > 0 {
			scopes = []document.Span{a.doc.All()}
		}
	}

	for _, scope := range scopes {
		var (
			t  triplets.SpanTriplet
			ok bool
		)
		switch s.Method {
		case MethodSpan:
			t, ok = a.matchSpans(scope, s.Lowercase)
		case MethodText:
			t, ok = a.matchText(scope, s.Lowercase)
		}
		if ok {
			return t, true
		}
	}
	return triplets.SpanTriplet{}, false
}

// fieldTokens returns the token texts of each field.
func (a *attempt) fieldTokens() ([3][]string, error) {
	if a.tokDone {
		return a.fields, a.tokErr
	}
	a.tokDone = true
	for i, f := range a.st.Fields() {
		fd, err := a.r.tok.Tokenize(f)
		if err != nil {
			a.tokErr = fmt.Errorf("tokenizing %s %q: %w", triplets.Roles[i], f, err)
			a.r.logger.Warn("Failed to tokenize triplet field", zap.Error(a.tokErr))
			return a.fields, a.tokErr
		}
		toks := make([]string, fd.Len())
		for j := range toks {
			toks[j] = fd.Token(j).Text
		}
		a.fields[i] = toks
	}
	return a.fields, nil
}
