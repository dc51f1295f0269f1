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

package spanalign

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/antflydb/spanalign/lib/promptoutput"
	"github.com/antflydb/spanalign/lib/triplets"
	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/encoder"
)

// ErrMalformedTriplet is returned for a listed triplet without exactly three
// fields.
var ErrMalformedTriplet = errors.New("triplet must have subject, predicate and object")

// maxLineSize bounds a single JSON Lines record.
const maxLineSize = 16 << 20

// Extraction is one document with the triplets an extractor produced for it,
// given as a raw model response, as explicit string triplets, or both.
type Extraction struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`

	// Format is the style of Response. Empty means parenthesized.
	Format   promptoutput.Format `json:"format,omitempty"`
	Response string              `json:"response,omitempty"`

	// Triplets are [subject, predicate, object] strings.
	Triplets [][]string `json:"triplets,omitempty"`
}

// StringTriplets parses Response and appends the listed Triplets.
func (e Extraction) StringTriplets() ([]triplets.StringTriplet, error) {
	var out []triplets.StringTriplet
	if e.Response != "" {
		format := e.Format
		if format == "" {
			format = promptoutput.FormatParenthesized
		}
		parsed, err := promptoutput.Parse(format, e.Response, e.Text)
		if err != nil {
			return nil, fmt.Errorf("extraction %q: %w", e.ID, err)
		}
		out = append(out, parsed...)
	}
	for i, t := range e.Triplets {
		if len(t) != 3 {
			return nil, fmt.Errorf("extraction %q triplet %d has %d fields: %w", e.ID, i, len(t), ErrMalformedTriplet)
		}
		out = append(out, triplets.StringTriplet{
			Subject:   t[0],
			Predicate: t[1],
			Object:    t[2],
			Text:      e.Text,
		})
	}
	return out, nil
}

// ReadJSONLines decodes one value per non-blank line.
func ReadJSONLines[T any](r io.Reader) ([]T, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	var out []T
	for line := 1; sc.Scan(); line++ {
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var v T
		if err := sonic.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("decoding line %d: %w", line, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading JSON lines: %w", err)
	}
	return out, nil
}

// ReadExtractions reads extractions as JSON Lines.
func ReadExtractions(r io.Reader) ([]Extraction, error) {
	return ReadJSONLines[Extraction](r)
}

// ReadRecords reads span triplet records as JSON Lines.
func ReadRecords(r io.Reader) ([]triplets.Record, error) {
	return ReadJSONLines[triplets.Record](r)
}

// WriteJSONLines encodes each value on its own line.
func WriteJSONLines[T any](w io.Writer, values []T) error {
	enc := encoder.NewStreamEncoder(w)
	for i, v := range values {
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding value %d: %w", i, err)
		}
	}
	return nil
}
