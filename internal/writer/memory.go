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

package writer

import (
	"bytes"

	"github.com/apache/arrow-go/v18/arrow"
)

// MemoryWriter encodes each target into an in-memory buffer.
type MemoryWriter struct {
	encoder
	buf *bytes.Buffer
}

var _ StreamWriter = (*MemoryWriter)(nil)

// NewMemoryWriter returns a writer that keeps the open target in memory.
func NewMemoryWriter(schema *arrow.Schema, opts Options) *MemoryWriter {
	return &MemoryWriter{encoder: newEncoder(schema, opts)}
}

func (w *MemoryWriter) Write(rec arrow.Record) error {
	if !w.opened() {
		w.buf = new(bytes.Buffer)
		if err := w.open(w.buf); err != nil {
			return err
		}
	}

	return w.write(rec)
}

func (w *MemoryWriter) Flush() ([]byte, error) {
	if !w.opened() {
		return nil, nil
	}

	if err := w.finish(); err != nil {
		return nil, err
	}

	data := w.buf.Bytes()
	w.buf = nil

	return data, nil
}

func (w *MemoryWriter) Close() error {
	if !w.opened() {
		return nil
	}

	_, err := w.Flush()

	return err
}
