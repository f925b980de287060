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
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/util"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// countingWriter tracks bytes handed to the target. It deliberately does
// not implement io.Closer so closing the Parquet writer leaves the target
// open.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}

// encoder is the Parquet state shared by both writer implementations.
type encoder struct {
	schema *arrow.Schema
	opts   Options
	props  *parquet.WriterProperties
	fw     *pqarrow.FileWriter
	sink   *countingWriter
	rows   int64

	// buffered is the in-memory size of the records written since the
	// last row group reached the sink.
	buffered int64
}

func newEncoder(schema *arrow.Schema, opts Options) encoder {
	props := parquet.NewWriterProperties(
		parquet.WithCompression(opts.Compression),
		parquet.WithMaxRowGroupLength(opts.MaxRowGroupLength),
		parquet.WithAllocator(opts.Allocator),
		parquet.WithCreatedBy("osmpq"),
	)

	return encoder{schema: schema, opts: opts, props: props}
}

func (e *encoder) open(w io.Writer) error {
	e.sink = &countingWriter{w: w}

	fw, err := pqarrow.NewFileWriter(e.schema, e.sink, e.props,
		pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(e.opts.Allocator)))
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	e.fw = fw
	e.rows = 0
	e.buffered = 0

	return nil
}

func (e *encoder) opened() bool {
	return e.fw != nil
}

func (e *encoder) write(rec arrow.Record) error {
	written := e.sink.n

	if err := e.fw.WriteBuffered(rec); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}

	if e.sink.n != written {
		e.buffered = 0
	}

	e.buffered += recordSize(rec)
	e.rows += rec.NumRows()

	return nil
}

// numBytes is the bytes already in the sink plus the larger of the encoded
// pages and the buffered record size of the open row group.
func (e *encoder) numBytes() int64 {
	if e.fw == nil {
		return 0
	}

	return e.sink.n + max(e.fw.RowGroupTotalCompressedBytes(), e.buffered)
}

// recordSize estimates the memory held by rec. A slice shares the buffers
// of its parent, so the total is prorated over the rows the leading fixed
// width column spans.
func recordSize(rec arrow.Record) int64 {
	total := util.TotalRecordSize(rec)
	if rec.NumCols() == 0 || rec.NumRows() == 0 {
		return total
	}

	data := rec.Column(0).Data()

	fw, ok := data.DataType().(arrow.FixedWidthDataType)
	if !ok || fw.BitWidth() < 8 || len(data.Buffers()) < 2 || data.Buffers()[1] == nil {
		return total
	}

	span := int64(data.Buffers()[1].Len()) / int64(fw.BitWidth()/8)
	if span <= rec.NumRows() {
		return total
	}

	return total * rec.NumRows() / span
}

// finish writes the footer. The caller then collects the target.
func (e *encoder) finish() error {
	fw := e.fw
	e.fw = nil

	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}

	return nil
}

func (e *encoder) Schema() *arrow.Schema {
	return e.schema
}

func (e *encoder) NumRows() int64 {
	if e.fw == nil {
		return 0
	}

	return e.rows
}

func (e *encoder) MaxRows() int64 {
	return e.opts.MaxRows
}

func (e *encoder) NumBytes() int64 {
	return e.numBytes()
}

func (e *encoder) ShouldFlush() bool {
	return e.opened() && e.opts.shouldFlush(e.rows, e.numBytes())
}
