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

// Package tokenizer counts model subword tokens, used to keep document windows
// under an extraction model's input limit.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Counter provides token counting for length budgets.
type Counter interface {
	// CountTokens returns the number of tokens in the text.
	CountTokens(text string) int
}

// Counter names accepted by NewCounter.
const (
	CounterWhitespace = "whitespace"
	DefaultEncoding   = "cl100k_base"
)

// NewCounter returns a WhitespaceCounter for "whitespace" and a BPETokenizer
// for anything else, treating name as a tiktoken encoding ("" selects
// DefaultEncoding).
func NewCounter(name string) (Counter, error) {
	if strings.EqualFold(name, CounterWhitespace) {
		return WhitespaceCounter{}, nil
	}
	return NewBPETokenizer(name)
}

// BPETokenizer counts tiktoken BPE tokens. The splitter uses it to keep each
// chunk under its token budget.
type BPETokenizer struct {
	tiktoken *tiktoken.Tiktoken
	encoding string
}

func init() {
	// Encodings are embedded; never fetch them at run time.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// NewBPETokenizer returns a budget counter for the named tiktoken encoding,
// one of cl100k_base, o200k_base, p50k_base or r50k_base. An empty name
// selects DefaultEncoding.
func NewBPETokenizer(encoding string) (*BPETokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	tk, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading encoding %q: %w", encoding, err)
	}
	return &BPETokenizer{tiktoken: tk, encoding: encoding}, nil
}

// Encoding returns the tiktoken encoding name.
func (t *BPETokenizer) Encoding() string {
	return t.encoding
}

// CountTokens returns how much of a chunk budget text consumes.
func (t *BPETokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.tiktoken.Encode(text, nil, nil))
}

// WhitespaceCounter counts whitespace separated words. It needs no model data
// and never fails.
type WhitespaceCounter struct{}

// CountTokens returns the number of whitespace separated words.
func (WhitespaceCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}
