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

// Command spanalign anchors extracted triplets to document spans and scores
// them against reference annotations.
//
// Usage:
//
//	spanalign resolve --input extractions.jsonl       # Resolve triplets to token spans
//	spanalign score --predicted a.jsonl --reference b.jsonl
//	spanalign tags parse < marked.txt                 # Read inline role markers
//	spanalign tags tag < triplets.jsonl               # Write inline role markers
//	spanalign split --max-tokens 500 < docs.jsonl     # Cut documents into token windows
package main

import (
	"github.com/antflydb/spanalign/cmd/cmd"
)

// https://goreleaser.com/cookbooks/using-main.version/
//
// By default, GoReleaser will set the following 3 ldflags:
//
// main.version: Current Git tag (the v prefix is stripped) or the name of the snapshot, if you're using the --snapshot flag
var version = "dev"

func main() {
	cmd.Version = version
	cmd.Execute()
}
