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

// Package writer encodes record batches into rotating Parquet files.
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/compress"
)

const (
	// DefaultMaxFileSize is the default size bound of a single file.
	DefaultMaxFileSize = 128 * 1024 * 1024

	// DefaultMaxRowGroupLength is the default number of rows per row group.
	DefaultMaxRowGroupLength = 1024 * 1024

	// DefaultCompression is the default column chunk codec.
	DefaultCompression = "snappy"
)

var ErrUnknownCodec = errors.New("unknown parquet compression")

// StreamWriter encodes batches of one schema into a Parquet target that is
// opened lazily on the first write.
type StreamWriter interface {
	Schema() *arrow.Schema

	// Write appends the batch to the open target.
	Write(rec arrow.Record) error

	// NumRows returns the rows written to the open target.
	NumRows() int64

	// NumBytes returns the bytes written to the open target plus the
	// estimated size of the row group still being encoded.
	NumBytes() int64

	// MaxRows returns the row bound of a target, zero when unbounded.
	MaxRows() int64

	// ShouldFlush reports whether the open target reached a bound.
	ShouldFlush() bool

	// Flush finalizes the open target and returns its bytes, or nil when
	// nothing was written. The next Write opens a new target.
	Flush() ([]byte, error)

	// Close discards the open target, if any.
	Close() error
}

// Options configures a StreamWriter. Zero bounds are unbounded.
type Options struct {
	MaxFileSize       int64
	MaxRows           int64
	MaxRowGroupLength int64
	Compression       compress.Compression
	Allocator         memory.Allocator
}

// DefaultOptions returns the default bounds with snappy compression.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:       DefaultMaxFileSize,
		MaxRowGroupLength: DefaultMaxRowGroupLength,
		Compression:       compress.Codecs.Snappy,
		Allocator:         memory.DefaultAllocator,
	}
}

func (o Options) shouldFlush(rows, bytes int64) bool {
	return (o.MaxRows > 0 && rows >= o.MaxRows) || (o.MaxFileSize > 0 && bytes > o.MaxFileSize)
}

var codecs = map[string]compress.Compression{
	"none":         compress.Codecs.Uncompressed,
	"uncompressed": compress.Codecs.Uncompressed,
	"snappy":       compress.Codecs.Snappy,
	"gzip":         compress.Codecs.Gzip,
	"brotli":       compress.Codecs.Brotli,
	"zstd":         compress.Codecs.Zstd,
	"lz4":          compress.Codecs.Lz4Raw,
}

// ParseCompression maps a codec name to its Parquet compression.
func ParseCompression(name string) (compress.Compression, error) {
	c, ok := codecs[strings.ToLower(name)]
	if !ok {
		return compress.Codecs.Uncompressed, fmt.Errorf("%w %q", ErrUnknownCodec, name)
	}

	return c, nil
}
