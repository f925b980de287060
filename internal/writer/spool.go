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
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
)

// SpoolWriter encodes each target into a temporary file and reads it back
// on Flush, bounding the memory held by large row groups.
type SpoolWriter struct {
	encoder
	dir  string
	file *os.File
}

var _ StreamWriter = (*SpoolWriter)(nil)

// NewSpoolWriter returns a writer spooling to temporary files in dir, or
// in the default temporary directory when dir is empty.
func NewSpoolWriter(schema *arrow.Schema, dir string, opts Options) *SpoolWriter {
	return &SpoolWriter{encoder: newEncoder(schema, opts), dir: dir}
}

func (w *SpoolWriter) Write(rec arrow.Record) error {
	if !w.opened() {
		f, err := os.CreateTemp(w.dir, "osmpq-*.parquet")
		if err != nil {
			return fmt.Errorf("failed to create spool file: %w", err)
		}

		w.file = f
		if err := w.open(f); err != nil {
			w.discard()
			return err
		}
	}

	return w.write(rec)
}

func (w *SpoolWriter) Flush() ([]byte, error) {
	if !w.opened() {
		return nil, nil
	}

	defer w.discard()

	if err := w.finish(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(w.file.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read spool file: %w", err)
	}

	return data, nil
}

func (w *SpoolWriter) Close() error {
	if !w.opened() {
		return nil
	}

	defer w.discard()

	return w.finish()
}

func (w *SpoolWriter) discard() {
	if w.file == nil {
		return
	}

	_ = w.file.Close()
	_ = os.Remove(w.file.Name())
	w.file = nil
}
