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

package triplets

import (
	"errors"
	"fmt"

	"github.com/antflydb/spanalign/lib/document"
)

var (
	// ErrSpanOutOfRange is returned when a serialized span does not fit the
	// re-tokenized document.
	ErrSpanOutOfRange = errors.New("span out of range")

	// ErrSpanTextMismatch is returned when a serialized span's text differs
	// from the re-tokenized document text at the same indices.
	ErrSpanTextMismatch = errors.New("span text mismatch")
)

// DocumentTriplets is an ordered list of span triplets for one document.
type DocumentTriplets struct {
	doc      *document.Document
	triplets []SpanTriplet
}

// NewDocumentTriplets creates a collection for doc. Every triplet must belong
// to a document with the same text.
func NewDocumentTriplets(doc *document.Document, ts ...SpanTriplet) (*DocumentTriplets, error) {
	dt := &DocumentTriplets{doc: doc, triplets: make([]SpanTriplet, 0, len(ts))}
	for _, t := range ts {
		if err := dt.Append(t); err != nil {
			return nil, err
		}
	}
	return dt, nil
}

// Document returns the collection's document.
func (dt *DocumentTriplets) Document() *document.Document {
	return dt.doc
}

// Len returns the number of triplets.
func (dt *DocumentTriplets) Len() int {
	return len(dt.triplets)
}

// At returns the triplet at index i.
func (dt *DocumentTriplets) At(i int) SpanTriplet {
	return dt.triplets[i]
}

// All returns a copy of the triplets in order.
func (dt *DocumentTriplets) All() []SpanTriplet {
	out := make([]SpanTriplet, len(dt.triplets))
	copy(out, dt.triplets)
	return out
}

// Append adds t to the collection.
func (dt *DocumentTriplets) Append(t SpanTriplet) error {
	if t.Document() == nil || t.Document().Text() != dt.doc.Text() {
		return fmt.Errorf("appending triplet %s: %w", t, ErrDocumentMismatch)
	}
	dt.triplets = append(dt.triplets, t)
	return nil
}

// Concat appends every triplet of o. It fails without modifying dt when the
// document texts differ.
func (dt *DocumentTriplets) Concat(o *DocumentTriplets) error {
	if o.doc.Text() != dt.doc.Text() {
		return fmt.Errorf("concatenating triplets: %w", ErrDocumentMismatch)
	}
	dt.triplets = append(dt.triplets, o.triplets...)
	return nil
}

// Equal reports whether both collections hold equal triplets in the same order.
func (dt *DocumentTriplets) Equal(o *DocumentTriplets) bool {
	if dt.Len() != o.Len() || dt.doc.Text() != o.doc.Text() {
		return false
	}
	for i := range dt.triplets {
		if !dt.triplets[i].Equal(o.triplets[i]) {
			return false
		}
	}
	return true
}

// SpanRecord is the serialized form of a span; Start and End are token indices.
type SpanRecord struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// TripletRecord is the serialized form of a span triplet.
type TripletRecord struct {
	Subject   SpanRecord `json:"subject"`
	Predicate SpanRecord `json:"predicate"`
	Object    SpanRecord `json:"object"`
}

// Record is the serialized form of a DocumentTriplets, one per document.
type Record struct {
	ID               string          `json:"id,omitempty"`
	Text             string          `json:"text"`
	SemanticTriplets []TripletRecord `json:"semantic_triplets"`
}

func spanRecord(s document.Span) SpanRecord {
	return SpanRecord{Text: s.Text(), Start: s.Start, End: s.End}
}

// ToRecord serializes the collection with token offsets relative to its document.
func (dt *DocumentTriplets) ToRecord(id string) Record {
	rec := Record{
		ID:               id,
		Text:             dt.doc.Text(),
		SemanticTriplets: make([]TripletRecord, 0, len(dt.triplets)),
	}
	for _, t := range dt.triplets {
		rec.SemanticTriplets = append(rec.SemanticTriplets, TripletRecord{
			Subject:   spanRecord(t.Subject),
			Predicate: spanRecord(t.Predicate),
			Object:    spanRecord(t.Object),
		})
	}
	return rec
}

// FromRecord rebuilds a collection by tokenizing rec.Text with tok. The
// tokenizer must match the one used when the record was written; span text is
// checked when the record carries it.
func FromRecord(rec Record, tok document.Tokenizer) (*DocumentTriplets, error) {
	doc, err := tok.Tokenize(rec.Text)
	if err != nil {
		return nil, fmt.Errorf("tokenizing record %q: %w", rec.ID, err)
	}
	return FromRecordWithDocument(rec, doc)
}

// FromRecordWithDocument rebuilds a collection against an already tokenized
// document.
func FromRecordWithDocument(rec Record, doc *document.Document) (*DocumentTriplets, error) {
	if rec.Text != doc.Text() {
		return nil, fmt.Errorf("record %q: %w", rec.ID, ErrDocumentMismatch)
	}
	dt := &DocumentTriplets{doc: doc, triplets: make([]SpanTriplet, 0, len(rec.SemanticTriplets))}
	for i, tr := range rec.SemanticTriplets {
		var spans [3]document.Span
		for j, sr := range [3]SpanRecord{tr.Subject, tr.Predicate, tr.Object} {
			if sr.Start < 0 || sr.End < sr.Start || sr.End > doc.Len() {
				return nil, fmt.Errorf("record %q triplet %d %s [%d, %d): %w",
					rec.ID, i, Roles[j], sr.Start, sr.End, ErrSpanOutOfRange)
			}
			span := doc.Span(sr.Start, sr.End, Roles[j])
			if sr.Text != "" && span.Text() != sr.Text {
				return nil, fmt.Errorf("record %q triplet %d %s: got %q, want %q: %w",
					rec.ID, i, Roles[j], span.Text(), sr.Text, ErrSpanTextMismatch)
			}
			spans[j] = span
		}
		dt.triplets = append(dt.triplets, SpanTriplet{Subject: spans[0], Predicate: spans[1], Object: spans[2]})
	}
	return dt, nil
}
