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
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordResolution(t *testing.T) {
	c := resolutionOps.WithLabelValues("text/document/exact")
	before := testutil.ToFloat64(c)
	RecordResolution("text/document/exact", 3)
	assert.InDelta(t, 3, testutil.ToFloat64(c)-before, 0)
}

func TestWriteMetrics(t *testing.T) {
	RecordScoredDocument()
	RecordStageDuration("score", "ok", 0.002)

	path := filepath.Join(t.TempDir(), "spanalign.prom")
	require.NoError(t, WriteMetrics(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "antfly_spanalign_scored_documents_total")
	assert.Contains(t, string(data), `antfly_spanalign_stage_duration_seconds_count{stage="score",status="ok"}`)

	require.Error(t, WriteMetrics(filepath.Join(t.TempDir(), "missing", "spanalign.prom")))
}
