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
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	resolutionOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "spanalign",
			Name:      "resolution_ops_total",
			Help:      "The total number of resolved triplets by the strategy that anchored them.",
		},
		[]string{"strategy"},
	)
	droppedTriplets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "spanalign",
			Name:      "dropped_triplets_total",
			Help:      "The total number of triplets that could not be anchored to the document.",
		},
	)

	scoredDocuments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "spanalign",
			Name:      "scored_documents_total",
			Help:      "The total number of documents scored.",
		},
	)
	documentMismatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "spanalign",
			Name:      "document_mismatches_total",
			Help:      "The total number of predicted and reference documents whose text differed.",
		},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "antfly",
			Subsystem: "spanalign",
			Name:      "stage_duration_seconds",
			Help:      "Time taken to process one document in a pipeline stage.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"stage", "status"},
	)

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "spanalign",
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits.",
		},
		[]string{"type"}, // document
	)

	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "spanalign",
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses.",
		},
		[]string{"type"}, // document
	)
)

func init() {
	prometheus.MustRegister(resolutionOps)
	prometheus.MustRegister(droppedTriplets)
	prometheus.MustRegister(scoredDocuments)
	prometheus.MustRegister(documentMismatches)
	prometheus.MustRegister(stageDuration)
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
}

// RecordResolution increments the resolution counter for a strategy
func RecordResolution(strategy string, count int) {
	resolutionOps.WithLabelValues(strategy).Add(float64(count))
}

// RecordDroppedTriplets records triplets that failed every strategy
func RecordDroppedTriplets(count int) {
	droppedTriplets.Add(float64(count))
}

// RecordScoredDocument increments the scored document counter
func RecordScoredDocument() {
	scoredDocuments.Inc()
}

// RecordDocumentMismatch increments the document mismatch counter
func RecordDocumentMismatch() {
	documentMismatches.Inc()
}

// RecordStageDuration records how long one document took in a stage
func RecordStageDuration(stage, status string, seconds float64) {
	stageDuration.WithLabelValues(stage, status).Observe(seconds)
}

// RecordCacheHit increments the cache hit counter
func RecordCacheHit(cacheType string) {
	cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss increments the cache miss counter
func RecordCacheMiss(cacheType string) {
	cacheMisses.WithLabelValues(cacheType).Inc()
}

// WriteMetrics writes the default registry to path in the text exposition
// format read by the node exporter textfile collector.
func WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
