// Copyright 2025 the original author or authors.
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

package osmpq

import (
	"sync"
	"sync/atomic"
	"time"

	"m4o.io/osmpq/internal/writer"
	"m4o.io/osmpq/model"
)

// Stats summarizes a conversion.
type Stats struct {
	Header *model.Header `json:"header,omitempty"`

	Blobs        int64 `json:"blobs"`
	SkippedBlobs int64 `json:"skipped_blobs"`
	InputBytes   int64 `json:"input_bytes"`

	Elements model.ElementCount `json:"elements"`
	Files    model.ElementCount `json:"files"`
	Rows     model.ElementCount `json:"rows"`
	Bytes    int64              `json:"bytes"`

	Elapsed time.Duration `json:"elapsed"`
}

// tally collects Stats from concurrent stage workers.
type tally struct {
	blobs   atomic.Int64
	skipped atomic.Int64
	input   atomic.Int64
	bytes   atomic.Int64

	mu       sync.Mutex
	header   *model.Header
	elements model.ElementCount
	files    model.ElementCount
	rows     model.ElementCount
}

// setHeader keeps the first header seen.
func (t *tally) setHeader(h *model.Header) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.header != nil {
		return false
	}

	t.header = h

	return true
}

func (t *tally) addElements(c model.ElementCount) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.elements = t.elements.Add(c)
}

func (t *tally) addFile(f writer.File) {
	t.bytes.Add(int64(len(f.Data)))

	t.mu.Lock()
	defer t.mu.Unlock()

	switch f.Kind {
	case model.NODE:
		t.files.Nodes++
		t.rows.Nodes += f.Rows
	case model.WAY:
		t.files.Ways++
		t.rows.Ways += f.Rows
	case model.RELATION:
		t.files.Relations++
		t.rows.Relations += f.Rows
	}
}

func (t *tally) stats(elapsed time.Duration) *Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return &Stats{
		Header:       t.header,
		Blobs:        t.blobs.Load(),
		SkippedBlobs: t.skipped.Load(),
		InputBytes:   t.input.Load(),
		Elements:     t.elements,
		Files:        t.files,
		Rows:         t.rows,
		Bytes:        t.bytes.Load(),
		Elapsed:      elapsed,
	}
}
