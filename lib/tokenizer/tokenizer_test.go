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

package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBPETokenizer(t *testing.T) {
	tk, err := NewBPETokenizer("")
	require.NoError(t, err)
	assert.Equal(t, DefaultEncoding, tk.Encoding())

	assert.Equal(t, 0, tk.CountTokens(""))
	assert.Equal(t, 1, tk.CountTokens("hello"))

	short := tk.CountTokens("Kenneth er glad i dag.")
	long := tk.CountTokens("Kenneth er glad i dag. Han spiser is med sin søster.")
	assert.Greater(t, short, 0)
	assert.Greater(t, long, short)
}

func TestBPETokenizerUnknownEncoding(t *testing.T) {
	_, err := NewBPETokenizer("not_an_encoding")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `loading encoding "not_an_encoding"`)
}

func TestWhitespaceCounter(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "   ", want: 0},
		{text: "one", want: 1},
		{text: "Kenneth er  glad\ti dag.", want: 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WhitespaceCounter{}.CountTokens(tt.text), "%q", tt.text)
	}
}

func TestNewCounter(t *testing.T) {
	c, err := NewCounter("Whitespace")
	require.NoError(t, err)
	assert.IsType(t, WhitespaceCounter{}, c)

	c, err = NewCounter("")
	require.NoError(t, err)
	assert.IsType(t, &BPETokenizer{}, c)
}
