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
	"errors"

	"github.com/apache/arrow-go/v18/arrow"

	"m4o.io/osmpq/model"
)

// File is a finished Parquet file of a single element kind.
type File struct {
	Kind model.EntityType
	Rows int64
	Data []byte
}

// Rotating splits a stream of batches into files, starting a new file
// whenever the underlying writer reaches a bound. A batch that would
// exceed the row bound is sliced across files.
type Rotating struct {
	kind    model.EntityType
	w       StreamWriter
	maxRows int64
}

// NewRotating wraps w for elements of the given kind, splitting batches at
// the row bound of w.
func NewRotating(kind model.EntityType, w StreamWriter) *Rotating {
	return &Rotating{kind: kind, w: w, maxRows: w.MaxRows()}
}

// Write appends rec and returns the files completed along the way.
func (r *Rotating) Write(rec arrow.Record) ([]File, error) {
	var files []File

	n := rec.NumRows()
	for offset := int64(0); offset < n; {
		size := n - offset
		if r.maxRows > 0 {
			size = min(size, r.maxRows-r.w.NumRows())
		}

		if size <= 0 {
			f, err := r.flush()
			if err != nil {
				return files, err
			}

			files = append(files, f)

			continue
		}

		part := rec
		if size != n {
			part = rec.NewSlice(offset, offset+size)
		}

		err := r.w.Write(part)
		if part != rec {
			part.Release()
		}

		if err != nil {
			return files, err
		}

		offset += size

		if r.w.ShouldFlush() {
			f, err := r.flush()
			if err != nil {
				return files, err
			}

			files = append(files, f)
		}
	}

	return files, nil
}

// Finish flushes the remaining rows. It returns ok false when no rows are
// pending, so empty files are never produced.
func (r *Rotating) Finish() (f File, ok bool, err error) {
	if r.w.NumRows() == 0 {
		return File{}, false, r.w.Close()
	}

	f, err = r.flush()

	return f, err == nil, err
}

// Close discards any pending target.
func (r *Rotating) Close() error {
	return r.w.Close()
}

func (r *Rotating) flush() (File, error) {
	rows := r.w.NumRows()

	data, err := r.w.Flush()
	if err != nil {
		return File{}, err
	}

	return File{Kind: r.kind, Rows: rows, Data: data}, nil
}

// Set holds one rotating writer per element kind.
type Set struct {
	Nodes     *Rotating
	Ways      *Rotating
	Relations *Rotating
}

// NewSet creates a rotating writer per kind, each backed by the
// StreamWriter returned by factory.
func NewSet(factory func(kind model.EntityType) StreamWriter) *Set {
	return &Set{
		Nodes:     NewRotating(model.NODE, factory(model.NODE)),
		Ways:      NewRotating(model.WAY, factory(model.WAY)),
		Relations: NewRotating(model.RELATION, factory(model.RELATION)),
	}
}

func (s *Set) For(kind model.EntityType) *Rotating {
	switch kind {
	case model.NODE:
		return s.Nodes
	case model.WAY:
		return s.Ways
	default:
		return s.Relations
	}
}

// Write routes rec to the writer of its kind.
func (s *Set) Write(kind model.EntityType, rec arrow.Record) ([]File, error) {
	return s.For(kind).Write(rec)
}

// Finish flushes every kind in node, way, relation order.
func (s *Set) Finish() ([]File, error) {
	var files []File

	for _, kind := range model.EntityTypes {
		f, ok, err := s.For(kind).Finish()
		if err != nil {
			return files, err
		}

		if ok {
			files = append(files, f)
		}
	}

	return files, nil
}

// Close discards all pending targets.
func (s *Set) Close() error {
	return errors.Join(s.Nodes.Close(), s.Ways.Close(), s.Relations.Close())
}
