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
	"bufio"
	"io"
	"runtime"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"go.uber.org/zap"

	"m4o.io/osmpq/internal/columnar"
	"m4o.io/osmpq/internal/progress"
	"m4o.io/osmpq/internal/writer"
)

const (
	// DefaultQueueSize is the default capacity of the queues between stages.
	DefaultQueueSize = 64

	// DefaultBatchSize is the default number of rows per record batch.
	DefaultBatchSize = columnar.DefaultBatchSize

	// DefaultReadBufferSize is the default size of the input read buffer.
	DefaultReadBufferSize = 4 * 1024 * 1024
)

// DefaultNCpu provides the default number of workers per stage.
func DefaultNCpu() int {
	return max(runtime.GOMAXPROCS(-1)-1, 1)
}

// converterOptions provides optional configuration parameters for Converter
// construction.
type converterOptions struct {
	decoders    int // blob decompression and decoding
	encoders    int // batch building and Parquet encoding
	writers     int // hand over to the sink
	batchSize   int
	queueSize   int
	readBuffer  int
	skipCorrupt bool
	spoolDir    string
	useSpool    bool
	writer      writer.Options
	progress    progress.Reporter
	logger      *zap.Logger
}

// Option configures how we set up the converter.
type Option func(*converterOptions)

// WithDecoders sets the number of decode stage workers.
func WithDecoders(n int) Option {
	return func(o *converterOptions) {
		o.decoders = n
	}
}

// WithEncoders sets the number of batch and encode stage workers. Every
// worker owns its own set of open files.
func WithEncoders(n int) Option {
	return func(o *converterOptions) {
		o.encoders = n
	}
}

// WithWriters sets the number of write stage workers.
func WithWriters(n int) Option {
	return func(o *converterOptions) {
		o.writers = n
	}
}

// WithBatchSize sets the number of rows per record batch.
func WithBatchSize(n int) Option {
	return func(o *converterOptions) {
		o.batchSize = n
	}
}

// WithQueueSize sets the capacity of each queue between stages.
func WithQueueSize(n int) Option {
	return func(o *converterOptions) {
		o.queueSize = n
	}
}

// WithReadBufferSize sets the size of the buffer the input is read through.
func WithReadBufferSize(n int) Option {
	return func(o *converterOptions) {
		o.readBuffer = n
	}
}

// WithMaxFileSize bounds the size of a file in bytes. Zero is unbounded.
func WithMaxFileSize(n int64) Option {
	return func(o *converterOptions) {
		o.writer.MaxFileSize = n
	}
}

// WithMaxRows bounds the number of rows of a file. Zero is unbounded.
func WithMaxRows(n int64) Option {
	return func(o *converterOptions) {
		o.writer.MaxRows = n
	}
}

// WithRowGroupLength sets the maximum number of rows per row group.
func WithRowGroupLength(n int64) Option {
	return func(o *converterOptions) {
		o.writer.MaxRowGroupLength = n
	}
}

// WithCompression sets the column chunk codec.
func WithCompression(c compress.Compression) Option {
	return func(o *converterOptions) {
		o.writer.Compression = c
	}
}

// WithAllocator sets the allocator used for record batches and encoding.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *converterOptions) {
		o.writer.Allocator = mem
	}
}

// WithSkipCorrupt controls whether a blob that fails to decode is skipped
// or aborts the conversion.
func WithSkipCorrupt(skip bool) Option {
	return func(o *converterOptions) {
		o.skipCorrupt = skip
	}
}

// WithSpoolDir encodes open files into temporary files under dir instead of
// memory. An empty dir uses the default temporary directory.
func WithSpoolDir(dir string) Option {
	return func(o *converterOptions) {
		o.spoolDir = dir
		o.useSpool = true
	}
}

// WithProgress sets the reporter receiving stage counts.
func WithProgress(r progress.Reporter) Option {
	return func(o *converterOptions) {
		o.progress = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *converterOptions) {
		o.logger = l
	}
}

func defaultConverterOptions() converterOptions {
	return converterOptions{
		decoders:    DefaultNCpu(),
		encoders:    DefaultNCpu(),
		writers:     1,
		batchSize:   DefaultBatchSize,
		queueSize:   DefaultQueueSize,
		readBuffer:  DefaultReadBufferSize,
		skipCorrupt: true,
		writer:      writer.DefaultOptions(),
		progress:    progress.Nop{},
		logger:      zap.NewNop(),
	}
}

func (o *converterOptions) normalize() {
	o.decoders = max(o.decoders, 1)
	o.encoders = max(o.encoders, 1)
	o.writers = max(o.writers, 1)
	o.queueSize = max(o.queueSize, 1)

	if o.batchSize < 1 {
		o.batchSize = DefaultBatchSize
	}

	if o.readBuffer < 1 {
		o.readBuffer = DefaultReadBufferSize
	}

	if o.writer.Allocator == nil {
		o.writer.Allocator = memory.DefaultAllocator
	}

	if o.progress == nil {
		o.progress = progress.Nop{}
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}
}

// fileQueueSize is the capacity of the queue of finished files. Each entry
// may hold a whole file, so it scales with the writers, not the queue size.
func (o *converterOptions) fileQueueSize() int {
	return 2 * o.writers
}

// reader buffers r unless it already is a large enough buffered reader.
func (o *converterOptions) reader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, o.readBuffer)
}
