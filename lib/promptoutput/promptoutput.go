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

// Package promptoutput turns raw extraction model responses into string
// triplets. Parenthesized lines, dash separated lines, markdown table rows and
// inline role markers are understood.
package promptoutput

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/antflydb/spanalign/lib/tagparse"
	"github.com/antflydb/spanalign/lib/triplets"
)

// ErrUnknownFormat is returned for an unrecognized response format name.
var ErrUnknownFormat = errors.New("unknown response format")

// Format names a response style.
type Format string

const (
	// FormatParenthesized is one triplet per line: (subject) (predicate) (object).
	FormatParenthesized Format = "parenthesized"
	// FormatMarkdown is a table with one | subject | predicate | object | row
	// per triplet.
	FormatMarkdown Format = "markdown"
	// FormatTagged is the source text with inline role markers.
	FormatTagged Format = "tagged"
	// FormatDash is one triplet per line: subject - predicate - object.
	FormatDash Format = "dash"
)

// Formats lists the supported formats.
var Formats = []Format{FormatParenthesized, FormatMarkdown, FormatTagged, FormatDash}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Parse dispatches response to the parser for format. source is the text the
// model was asked about; it is attached to every triplet except tagged ones,
// which carry the marker-free response text instead.
func Parse(format Format, response, source string) ([]triplets.StringTriplet, error) {
	switch format {
	case FormatParenthesized:
		return ParseParenthesized(response, source), nil
	case FormatMarkdown:
		return ParseMarkdownTable(response, source), nil
	case FormatTagged:
		return ParseTagged(response), nil
	case FormatDash:
		return ParseDashed(response, source), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ParseParenthesized reads lines such as "(Kenneth) (er) (glad)". Lines that
// do not hold exactly three non-empty groups are ignored.
func ParseParenthesized(response, source string) []triplets.StringTriplet {
	var out []triplets.StringTriplet
	for _, line := range strings.Split(response, "\n") {
		var fields []string
		for _, part := range strings.Split(line, "(") {
			part = strings.TrimSpace(strings.ReplaceAll(part, ")", ""))
			if part != "" {
				fields = append(fields, part)
			}
		}
		if len(fields) == 3 {
			out = append(out, newTriplet(fields, source))
		}
	}
	return out
}

// ParseMarkdownTable reads "| subject | predicate | object |" rows. Header and
// separator rows are skipped. A four-column row means the model has started
// another example, so parsing stops there.
func ParseMarkdownTable(response, source string) []triplets.StringTriplet {
	var out []triplets.StringTriplet
	for _, row := range strings.Split(response, "\n") {
		var cells []string
		for _, cell := range strings.Split(row, "|") {
			if cell = strings.TrimSpace(cell); cell != "" {
				cells = append(cells, cell)
			}
		}
		switch len(cells) {
		case 4:
			return out
		case 3:
			if isSeparator(cells) || isHeader(cells) {
				continue
			}
			out = append(out, newTriplet(cells, source))
		}
	}
	return out
}

// ParseDashed reads lines such as "Kenneth - er - glad". A line is kept only
// when it splits on "-" into exactly three non-empty fields, so a field that
// itself contains a hyphen drops the line.
func ParseDashed(response, source string) []triplets.StringTriplet {
	var out []triplets.StringTriplet
	for _, line := range strings.Split(response, "\n") {
		parts := strings.Split(line, "-")
		if len(parts) != 3 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if slices.Contains(parts, "") {
			continue
		}
		out = append(out, newTriplet(parts, source))
	}
	return out
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

func isHeader(cells []string) bool {
	for i, c := range cells {
		if !strings.EqualFold(c, string(triplets.Roles[i])) {
			return false
		}
	}
	return true
}

// ParseTagged reads a response that repeats the source text with inline role
// markers. Triplets carry character spans into the marker-free text.
func ParseTagged(response string) []triplets.StringTriplet {
	_, ts := tagparse.Parse(strings.TrimSpace(response))
	return ts
}

func newTriplet(fields []string, source string) triplets.StringTriplet {
	return triplets.StringTriplet{
		Subject:   fields[0],
		Predicate: fields[1],
		Object:    fields[2],
		Text:      source,
	}
}
