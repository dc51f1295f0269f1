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

// Package spanalign anchors extracted (subject, predicate, object) triplets to
// token spans of their source documents and scores predicted span triplets
// against reference annotations.
package spanalign

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/antflydb/spanalign/lib/chunking"
	"github.com/antflydb/spanalign/lib/document"
	"github.com/antflydb/spanalign/lib/resolve"
	"github.com/antflydb/spanalign/lib/scoring"
	"github.com/antflydb/spanalign/lib/tokenizer"
	"github.com/antflydb/spanalign/lib/triplets"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrCorpusMismatch is returned when predicted and reference corpora cannot
// be paired document by document.
var ErrCorpusMismatch = errors.New("predicted and reference corpora do not pair up")

// Pipeline runs resolution and scoring over a corpus, one document per task.
type Pipeline struct {
	config   Config
	cache    *DocumentCache
	resolver *resolve.Resolver
	splitter func() (*chunking.Splitter, error)
	sem      *semaphore.Weighted
	logger   *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline validates config and builds the tokenizer cache and resolver.
// Close releases the cache.
func NewPipeline(config Config, opts ...PipelineOption) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.workers())),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	tok, err := document.NewTokenizer(config.Tokenizer)
	if err != nil {
		return nil, err
	}
	strategies, err := config.ResolveStrategies()
	if err != nil {
		return nil, err
	}
	p.cache = NewDocumentCache(tok, config.Tokenizer, config.CacheTTL, p.logger.Named("cache"))
	p.resolver = resolve.New(p.cache,
		resolve.WithStrategies(strategies...),
		resolve.WithLogger(p.logger.Named("resolve")))
	p.splitter = sync.OnceValues(func() (*chunking.Splitter, error) {
		counter, err := tokenizer.NewCounter(config.Counter)
		if err != nil {
			return nil, err
		}
		return chunking.NewSplitter(counter, chunking.Config{MaxTokens: config.MaxTokens}, p.logger.Named("split"))
	})
	return p, nil
}

// Tokenizer returns the cached tokenizer shared by every stage.
func (p *Pipeline) Tokenizer() document.Tokenizer {
	return p.cache
}

// CacheStats returns document cache statistics.
func (p *Pipeline) CacheStats() CacheStats {
	return p.cache.Stats()
}

// Close stops the document cache.
func (p *Pipeline) Close() {
	p.cache.Close()
}

// fanOut runs fn for every index in 0..n. Work slots are shared by all calls
// on the pipeline. The first error cancels documents not yet started.
func (p *Pipeline) fanOut(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	var acquireErr error
	for i := range n {
		// Acquire semaphore slot (blocks if all workers busy)
		if acquireErr = p.sem.Acquire(gctx, 1); acquireErr != nil {
			break
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if acquireErr != nil {
		return fmt.Errorf("acquiring worker slot: %w", acquireErr)
	}
	return nil
}

// DocumentResolution is the resolution outcome of one extraction.
type DocumentResolution struct {
	ID         string         `json:"id,omitempty"`
	Total      int            `json:"total"`
	Resolved   int            `json:"resolved"`
	Dropped    int            `json:"dropped"`
	ByStrategy map[string]int `json:"by_strategy,omitempty"`
}

// ResolveReport summarizes a Resolve run.
type ResolveReport struct {
	RunID     uuid.UUID            `json:"run_id"`
	Documents []DocumentResolution `json:"documents"`
	Totals    DocumentResolution   `json:"totals"`
}

// Resolve anchors each extraction's triplets to its text. Results keep input
// order. Unresolvable triplets are dropped and counted; malformed extractions
// abort the run.
func (p *Pipeline) Resolve(ctx context.Context, extractions []Extraction) ([]*triplets.DocumentTriplets, ResolveReport, error) {
	report := ResolveReport{
		RunID:     uuid.New(),
		Documents: make([]DocumentResolution, len(extractions)),
		Totals:    DocumentResolution{ByStrategy: make(map[string]int)},
	}
	out := make([]*triplets.DocumentTriplets, len(extractions))

	err := p.fanOut(ctx, len(extractions), func(i int) error {
		start := time.Now()
		dt, res, err := p.resolveOne(extractions[i])
		if err != nil {
			RecordStageDuration("resolve", "error", time.Since(start).Seconds())
			return err
		}
		RecordStageDuration("resolve", "ok", time.Since(start).Seconds())
		out[i] = dt
		report.Documents[i] = res
		return nil
	})
	if err != nil {
		return nil, report, err
	}

	for _, d := range report.Documents {
		report.Totals.Total += d.Total
		report.Totals.Resolved += d.Resolved
		report.Totals.Dropped += d.Dropped
		for via, n := range d.ByStrategy {
			report.Totals.ByStrategy[via] += n
			RecordResolution(via, n)
		}
	}
	RecordDroppedTriplets(report.Totals.Dropped)

	p.logger.Info("Resolved corpus",
		zap.Stringer("run_id", report.RunID),
		zap.Int("documents", len(extractions)),
		zap.Int("triplets", report.Totals.Total),
		zap.Int("resolved", report.Totals.Resolved),
		zap.Int("dropped", report.Totals.Dropped))
	return out, report, nil
}

func (p *Pipeline) resolveOne(ex Extraction) (*triplets.DocumentTriplets, DocumentResolution, error) {
	sts, err := ex.StringTriplets()
	if err != nil {
		return nil, DocumentResolution{}, err
	}
	doc, err := p.cache.Tokenize(ex.Text)
	if err != nil {
		return nil, DocumentResolution{}, fmt.Errorf("tokenizing extraction %q: %w", ex.ID, err)
	}
	dt, stats := p.resolver.ResolveAll(doc, sts)
	if stats.Dropped > 0 {
		p.logger.Debug("Dropped unresolvable triplets",
			zap.String("id", ex.ID),
			zap.Int("dropped", stats.Dropped),
			zap.Int("total", stats.Total))
	}
	return dt, DocumentResolution{
		ID:         ex.ID,
		Total:      stats.Total,
		Resolved:   stats.Resolved,
		Dropped:    stats.Dropped,
		ByStrategy: stats.ByStrategy,
	}, nil
}

// DocumentScore is the score of one predicted/reference document pair.
type DocumentScore struct {
	ID     string                           `json:"id,omitempty"`
	Record scoring.Record                   `json:"record"`
	Rates  map[scoring.Metric]scoring.Rates `json:"rates"`
}

// Report is the result of a Score run.
type Report struct {
	RunID     uuid.UUID       `json:"run_id"`
	Documents []DocumentScore `json:"documents"`
	Summary   scoring.Summary `json:"summary"`
}

// Score pairs predicted and reference records by position and scores each
// pair. Paired records with IDs must agree on them. The corpus summary is
// micro-averaged over all pairs. A pair whose texts differ aborts the run
// with scoring.ErrDocumentMismatch.
func (p *Pipeline) Score(ctx context.Context, predicted, reference []triplets.Record) (Report, error) {
	if len(predicted) != len(reference) {
		return Report{}, fmt.Errorf("%w: %d predicted, %d reference documents",
			ErrCorpusMismatch, len(predicted), len(reference))
	}
	report := Report{
		RunID:     uuid.New(),
		Documents: make([]DocumentScore, len(predicted)),
	}

	err := p.fanOut(ctx, len(predicted), func(i int) error {
		start := time.Now()
		ds, err := p.scoreOne(predicted[i], reference[i])
		if err != nil {
			RecordStageDuration("score", "error", time.Since(start).Seconds())
			return fmt.Errorf("document %d: %w", i, err)
		}
		RecordStageDuration("score", "ok", time.Since(start).Seconds())
		RecordScoredDocument()
		report.Documents[i] = ds
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	records := make([]scoring.Record, len(report.Documents))
	for i, d := range report.Documents {
		records[i] = d.Record
	}
	report.Summary = scoring.Aggregate(records)

	p.logger.Info("Scored corpus",
		zap.Stringer("run_id", report.RunID),
		zap.Int("documents", report.Summary.Documents),
		zap.Int("predicted", report.Summary.Totals.NPredicted),
		zap.Int("reference", report.Summary.Totals.NReference),
		zap.Stringer("exact_span_match", report.Summary.Rates[scoring.MetricExactSpan]))
	return report, nil
}

func (p *Pipeline) scoreOne(pred, ref triplets.Record) (DocumentScore, error) {
	if pred.ID != "" && ref.ID != "" && pred.ID != ref.ID {
		return DocumentScore{}, fmt.Errorf("%w: predicted %q, reference %q", ErrCorpusMismatch, pred.ID, ref.ID)
	}
	if pred.Text != ref.Text {
		RecordDocumentMismatch()
		return DocumentScore{}, fmt.Errorf("record %q: %w", pred.ID, scoring.ErrDocumentMismatch)
	}

	pdt, err := triplets.FromRecord(pred, p.cache)
	if err != nil {
		return DocumentScore{}, fmt.Errorf("predicted: %w", err)
	}
	rdt, err := triplets.FromRecord(ref, p.cache)
	if err != nil {
		return DocumentScore{}, fmt.Errorf("reference: %w", err)
	}
	rec, err := scoring.Score(pdt, rdt)
	if err != nil {
		return DocumentScore{}, err
	}

	id := pred.ID
	if id == "" {
		id = ref.ID
	}
	return DocumentScore{ID: id, Record: rec, Rates: rec.AllRates()}, nil
}

// Split cuts text into windows under the configured token budget.
func (p *Pipeline) Split(text string) ([]chunking.Window, error) {
	s, err := p.splitter()
	if err != nil {
		return nil, err
	}
	doc, err := p.cache.Tokenize(text)
	if err != nil {
		return nil, err
	}
	return s.Split(doc)
}
