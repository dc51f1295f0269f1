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
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/antflydb/spanalign/lib/chunking"
	"github.com/antflydb/spanalign/lib/document"
	"github.com/antflydb/spanalign/lib/resolve"
	"github.com/antflydb/spanalign/lib/tokenizer"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds pipeline settings. The binary fills it from flags, the config
// file and SPANALIGN_ environment variables.
type Config struct {
	// Tokenizer names the document tokenizer ("rule" or "prose").
	Tokenizer string `mapstructure:"tokenizer"`
	// Counter names the token counter used for budgets: a tiktoken encoding
	// or "whitespace".
	Counter string `mapstructure:"counter"`
	// MaxTokens is the window budget for splitting.
	MaxTokens int `mapstructure:"max_tokens"`
	// Workers bounds per-document concurrency. Zero means GOMAXPROCS.
	Workers int `mapstructure:"workers"`
	// CacheTTL is how long tokenized documents stay cached.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// Strategies lists resolution strategies by name, in order. Empty means
	// resolve.DefaultStrategies.
	Strategies []string `mapstructure:"strategies"`
	// MetricsFile, when set, receives a metrics textfile after each run.
	MetricsFile string `mapstructure:"metrics_file"`
}

// DefaultConfig returns sensible defaults for the pipeline.
func DefaultConfig() Config {
	return Config{
		Tokenizer: document.TokenizerRule,
		Counter:   tokenizer.DefaultEncoding,
		MaxTokens: chunking.DefaultConfig().MaxTokens,
		Workers:   runtime.GOMAXPROCS(0),
		CacheTTL:  DocumentCacheTTL,
	}
}

// Validate checks field ranges and names.
func (c Config) Validate() error {
	var errs []error
	if _, err := document.NewTokenizer(c.Tokenizer); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL))
	}
	if _, err := c.ResolveStrategies(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ResolveStrategies parses Strategies.
func (c Config) ResolveStrategies() ([]resolve.Strategy, error) {
	if len(c.Strategies) == 0 {
		return resolve.DefaultStrategies, nil
	}
	out := make([]resolve.Strategy, 0, len(c.Strategies))
	for _, name := range c.Strategies {
		s, err := resolve.ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}
