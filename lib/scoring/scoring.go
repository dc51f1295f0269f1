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

// Package scoring compares predicted triplets with reference triplets for the
// same document and turns the totals into precision, recall and F1.
//
// Four metrics are tracked: exact span matches, exact string matches and the
// reference-normalized span and string overlaps. Corpus scores micro-average:
// totals and counts are summed across documents before any rate is computed.
package scoring

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/antflydb/spanalign/lib/triplets"
)

// ErrDocumentMismatch is returned when predicted and reference triplets
// belong to documents with different text.
var ErrDocumentMismatch = triplets.ErrDocumentMismatch

// Metric names one of the scored quantities.
type Metric string

const (
	MetricExactSpan         Metric = "exact_span_match"
	MetricExactString       Metric = "exact_string_match"
	MetricNormSpanOverlap   Metric = "normalized_span_overlap"
	MetricNormStringOverlap Metric = "normalized_string_overlap"
)

// Metrics lists every metric in report order.
var Metrics = []Metric{
	MetricExactSpan,
	MetricExactString,
	MetricNormSpanOverlap,
	MetricNormStringOverlap,
}

// Record holds the per-document totals. Records add component-wise, so any
// grouping of documents can be reduced in any order.
type Record struct {
	NPredicted        int     `json:"n_predicted"`
	NReference        int     `json:"n_reference"`
	ExactSpan         int     `json:"exact_span_match"`
	ExactString       int     `json:"exact_string_match"`
	NormSpanOverlap   float64 `json:"normalized_span_overlap"`
	NormStringOverlap float64 `json:"normalized_string_overlap"`
}

// Add returns the component-wise sum of r and o.
func (r Record) Add(o Record) Record {
	return Record{
		NPredicted:        r.NPredicted + o.NPredicted,
		NReference:        r.NReference + o.NReference,
		ExactSpan:         r.ExactSpan + o.ExactSpan,
		ExactString:       r.ExactString + o.ExactString,
		NormSpanOverlap:   r.NormSpanOverlap + o.NormSpanOverlap,
		NormStringOverlap: r.NormStringOverlap + o.NormStringOverlap,
	}
}

// Total returns the accumulated value of m.
func (r Record) Total(m Metric) float64 {
	switch m {
	case MetricExactSpan:
		return float64(r.ExactSpan)
	case MetricExactString:
		return float64(r.ExactString)
	case MetricNormSpanOverlap:
		return r.NormSpanOverlap
	case MetricNormStringOverlap:
		return r.NormStringOverlap
	}
	return 0
}

// Rates are the derived rates of one metric. A nil field is undefined, which
// is distinct from zero.
type Rates struct {
	Precision *float64 `json:"precision"`
	Recall    *float64 `json:"recall"`
	F1        *float64 `json:"f1"`
}

func (r Rates) String() string {
	f := func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.4f", *v)
	}
	return fmt.Sprintf("P=%s R=%s F1=%s", f(r.Precision), f(r.Recall), f(r.F1))
}

func rate(total float64, n int) *float64 {
	if n == 0 {
		return nil
	}
	v := total / float64(n)
	return &v
}

// Rates computes precision, recall and F1 for m.
func (r Record) Rates(m Metric) Rates {
	total := r.Total(m)
	out := Rates{
		Precision: rate(total, r.NPredicted),
		Recall:    rate(total, r.NReference),
	}
	if out.Precision != nil && out.Recall != nil {
		p, rc := *out.Precision, *out.Recall
		if p+rc > 0 {
			f1 := 2 * p * rc / (p + rc)
			out.F1 = &f1
		}
	}
	return out
}

// AllRates computes the rates of every metric.
func (r Record) AllRates() map[Metric]Rates {
	out := make(map[Metric]Rates, len(Metrics))
	for _, m := range Metrics {
		out[m] = r.Rates(m)
	}
	return out
}

// Summary is a micro-averaged corpus score.
type Summary struct {
	Documents int              `json:"documents"`
	Totals    Record           `json:"totals"`
	Rates     map[Metric]Rates `json:"rates"`
}

// Aggregate sums records and computes rates once over the sums.
func Aggregate(records []Record) Summary {
	var total Record
	for _, r := range records {
		total = total.Add(r)
	}
	return Summary{
		Documents: len(records),
		Totals:    total,
		Rates:     total.AllRates(),
	}
}

type candidate struct {
	spanOverlap   float64
	stringOverlap float64
}

// Score matches pred against ref, which must share document text.
//
// Both lists are stable-sorted by subject text. For each reference triplet, in
// order and while unmatched predictions remain, an exact span match earns full
// credit on all four metrics and an exact string match earns full string
// credit plus its span overlap; either consumes the prediction. Otherwise the
// prediction with the highest string overlap to this reference is remembered.
// Remembered references are then credited with their overlaps, highest string
// overlap first, consuming one leftover prediction each until either side
// runs out.
func Score(pred, ref *triplets.DocumentTriplets) (Record, error) {
	if pred.Document().Text() != ref.Document().Text() {
		return Record{}, fmt.Errorf("scoring triplets: %w", ErrDocumentMismatch)
	}

	bySubject := func(a, b triplets.SpanTriplet) int {
		return cmp.Compare(a.Subject.Text(), b.Subject.Text())
	}
	pool := pred.All()
	refs := ref.All()
	slices.SortStableFunc(pool, bySubject)
	slices.SortStableFunc(refs, bySubject)

	rec := Record{NPredicted: len(pool), NReference: len(refs)}

	var missing []candidate
	for _, r := range refs {
		if len(pool) == 0 {
			break
		}

		if i := slices.IndexFunc(pool, r.Equal); i >= 0 {
			rec.ExactSpan++
			rec.ExactString++
			rec.NormSpanOverlap++
			rec.NormStringOverlap++
			pool = slices.Delete(pool, i, i+1)
			continue
		}

		if i := slices.IndexFunc(pool, r.IsStringMatch); i >= 0 {
			rec.ExactString++
			rec.NormStringOverlap++
			rec.NormSpanOverlap += NormalizedSpanOverlap(r, pool[i])
			pool = slices.Delete(pool, i, i+1)
			continue
		}

		best := candidate{stringOverlap: -1}
		for _, p := range pool {
			if so := NormalizedStringOverlap(r, p); so > best.stringOverlap {
				best = candidate{spanOverlap: NormalizedSpanOverlap(r, p), stringOverlap: so}
			}
		}
		missing = append(missing, best)
	}

	slices.SortStableFunc(missing, func(a, b candidate) int {
		return cmp.Compare(a.stringOverlap, b.stringOverlap)
	})
	for len(missing) > 0 && len(pool) > 0 {
		m := missing[len(missing)-1]
		missing = missing[:len(missing)-1]
		rec.NormSpanOverlap += m.spanOverlap
		rec.NormStringOverlap += m.stringOverlap
		pool = pool[:len(pool)-1]
	}

	return rec, nil
}
