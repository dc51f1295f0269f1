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

// Package chunking splits documents into windows that fit a model's token
// budget without cutting through a document token.
package chunking

import (
	"errors"
	"fmt"

	"github.com/antflydb/spanalign/lib/document"
	"github.com/antflydb/spanalign/lib/tokenizer"
	"go.uber.org/zap"
)

var (
	// ErrTokenOverBudget is returned when a single document token alone
	// exceeds the budget.
	ErrTokenOverBudget = errors.New("token exceeds budget")

	// ErrInvalidBudget is returned for a non-positive budget.
	ErrInvalidBudget = errors.New("token budget must be positive")
)

// Config contains configuration for the splitter.
type Config struct {
	// MaxTokens is the largest number of counter tokens allowed per window.
	MaxTokens int
}

// DefaultConfig returns sensible defaults for the splitter.
func DefaultConfig() Config {
	return Config{
		MaxTokens: 500,
	}
}

// Window is a contiguous token range of a document.
type Window struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
}

// Splitter packs whole sentences into windows under a token budget.
type Splitter struct {
	counter tokenizer.Counter
	config  Config
	logger  *zap.Logger
}

// NewSplitter creates a splitter. A nil logger disables logging.
func NewSplitter(counter tokenizer.Counter, config Config, logger *zap.Logger) (*Splitter, error) {
	if config.MaxTokens <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBudget, config.MaxTokens)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Splitter{counter: counter, config: config, logger: logger}, nil
}

// Split returns the windows of doc in order. A document within budget is a
// single window. Otherwise consecutive sentences are packed greedily, and a
// sentence that is over budget on its own is cut at token boundaries.
func (s *Splitter) Split(doc *document.Document) ([]Window, error) {
	if doc.Len() == 0 {
		return nil, nil
	}
	if n := s.count(doc, 0, doc.Len()); n <= s.config.MaxTokens {
		return []Window{s.window(doc, 0, doc.Len(), n)}, nil
	}

	var out []Window
	start, end := 0, 0
	flush := func() {
		if end > start {
			out = append(out, s.window(doc, start, end, s.count(doc, start, end)))
		}
		start = end
	}

	for _, sent := range doc.Sentences() {
		if s.count(doc, start, sent.End) <= s.config.MaxTokens {
			end = sent.End
			continue
		}
		flush()
		if s.count(doc, start, sent.End) <= s.config.MaxTokens {
			end = sent.End
			continue
		}

		s.logger.Debug("Splitting sentence over token budget",
			zap.Int("start", sent.Start),
			zap.Int("end", sent.End),
			zap.Int("max_tokens", s.config.MaxTokens))
		for i := sent.Start; i < sent.End; i++ {
			if s.count(doc, start, i+1) <= s.config.MaxTokens {
				end = i + 1
				continue
			}
			if start == i {
				return nil, fmt.Errorf("token %d %q: %w", i, doc.Token(i).Text, ErrTokenOverBudget)
			}
			flush()
			if s.count(doc, start, i+1) > s.config.MaxTokens {
				return nil, fmt.Errorf("token %d %q: %w", i, doc.Token(i).Text, ErrTokenOverBudget)
			}
			end = i + 1
		}
	}
	flush()

	s.logger.Debug("Split document",
		zap.Int("tokens", doc.Len()),
		zap.Int("windows", len(out)))
	return out, nil
}

func (s *Splitter) count(doc *document.Document, start, end int) int {
	return s.counter.CountTokens(doc.Span(start, end, document.RoleNone).Text())
}

func (s *Splitter) window(doc *document.Document, start, end, tokens int) Window {
	return Window{
		Start:  start,
		End:    end,
		Text:   doc.Span(start, end, document.RoleNone).Text(),
		Tokens: tokens,
	}
}
