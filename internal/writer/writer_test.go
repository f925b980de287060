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
	"os"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/util"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmpq/internal/columnar"
	"m4o.io/osmpq/model"
)

var schemas = columnar.NewSchemas()

func nodes(t *testing.T, mem memory.Allocator, n int, start int64) arrow.Record {
	t.Helper()

	b := columnar.NewNodeBuilder(mem, schemas)
	defer b.Release()

	for i := 0; i < n; i++ {
		b.Append(model.Node{
			ID:   model.ID(start + int64(i)),
			Tags: map[string]string{"amenity": "cafe"},
			Lat:  1.5,
			Lon:  2.5,
		})
	}

	return b.NewRecord()
}

func numRows(t *testing.T, data []byte) int64 {
	t.Helper()

	r, err := file.NewParquetReader(bytes.NewReader(data))
	require.NoError(t, err)

	defer r.Close()

	return r.NumRows()
}

func memoryFactory(opts Options) func(model.EntityType) StreamWriter {
	return func(kind model.EntityType) StreamWriter {
		return NewMemoryWriter(schemas.For(kind), opts)
	}
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, compress.Codecs.Zstd, c)

	c, err = ParseCompression(DefaultCompression)
	require.NoError(t, err)
	assert.Equal(t, compress.Codecs.Snappy, c)

	_, err = ParseCompression("bzip2")
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestMemoryWriter(t *testing.T) {
	mem := memory.NewGoAllocator()
	w := NewMemoryWriter(schemas.Nodes, DefaultOptions())

	data, err := w.Flush()
	require.NoError(t, err)
	assert.Nil(t, data)

	rec := nodes(t, mem, 10, 1)
	defer rec.Release()

	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Write(rec))

	assert.Equal(t, int64(20), w.NumRows())
	assert.Positive(t, w.NumBytes())
	assert.False(t, w.ShouldFlush())

	data, err = w.Flush()
	require.NoError(t, err)
	assert.Equal(t, int64(20), numRows(t, data))
	assert.Equal(t, int64(0), w.NumRows())
}

func TestSpoolWriter(t *testing.T) {
	dir := t.TempDir()
	mem := memory.NewGoAllocator()
	w := NewSpoolWriter(schemas.Nodes, dir, DefaultOptions())

	rec := nodes(t, mem, 5, 1)
	defer rec.Release()

	require.NoError(t, w.Write(rec))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	data, err := w.Flush()
	require.NoError(t, err)
	assert.Equal(t, int64(5), numRows(t, data))

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRotatingSplitsAtRowBound(t *testing.T) {
	mem := memory.NewGoAllocator()
	opts := DefaultOptions()
	opts.MaxRows = 100

	r := NewRotating(model.NODE, NewMemoryWriter(schemas.Nodes, opts))
	defer r.Close()

	var files []File

	for i, n := range []int{250, 40, 100} {
		rec := nodes(t, mem, n, int64(i*1000))
		got, err := r.Write(rec)
		rec.Release()
		require.NoError(t, err)

		files = append(files, got...)
	}

	last, ok, err := r.Finish()
	require.NoError(t, err)
	require.True(t, ok)

	files = append(files, last)

	var rows []int64
	for _, f := range files {
		assert.Equal(t, model.NODE, f.Kind)
		assert.Equal(t, f.Rows, numRows(t, f.Data))
		rows = append(rows, f.Rows)
	}

	assert.Equal(t, []int64{100, 100, 100, 90}, rows)
}

func TestRotatingSplitsAtSizeBound(t *testing.T) {
	const (
		bound   = 256 * 1024
		batches = 40
		perRec  = 500
	)

	mem := memory.NewGoAllocator()
	opts := DefaultOptions()
	opts.MaxFileSize = bound

	r := NewRotating(model.NODE, NewMemoryWriter(schemas.Nodes, opts))
	defer r.Close()

	var (
		files []File
		batch int64
	)

	for i := 0; i < batches; i++ {
		rec := nodes(t, mem, perRec, int64(i*perRec))
		batch = max(batch, util.TotalRecordSize(rec))

		got, err := r.Write(rec)
		rec.Release()
		require.NoError(t, err)

		files = append(files, got...)
	}

	last, ok, err := r.Finish()
	require.NoError(t, err)

	if ok {
		files = append(files, last)
	}

	require.Greater(t, len(files), 1)

	var rows int64
	for _, f := range files {
		assert.LessOrEqual(t, int64(len(f.Data)), bound+batch)
		assert.Equal(t, f.Rows, numRows(t, f.Data))
		rows += f.Rows
	}

	assert.Equal(t, int64(batches*perRec), rows)
}

func TestRotatingFlushesWriterAtItsBound(t *testing.T) {
	mem := memory.NewGoAllocator()
	opts := DefaultOptions()
	opts.MaxRows = 10

	w := NewMemoryWriter(schemas.Nodes, opts)
	r := NewRotating(model.NODE, w)
	defer r.Close()

	rec := nodes(t, mem, 10, 1)
	defer rec.Release()

	// fill the writer behind the rotating writer's back
	require.NoError(t, w.Write(rec))

	files, err := r.Write(rec)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, int64(10), files[0].Rows)
	assert.Equal(t, int64(10), files[1].Rows)
}

func TestRecordSizeProratesSlices(t *testing.T) {
	mem := memory.NewGoAllocator()

	rec := nodes(t, mem, 1000, 1)
	defer rec.Release()

	half := rec.NewSlice(0, 500)
	defer half.Release()

	full := recordSize(rec)
	assert.Equal(t, util.TotalRecordSize(rec), full)
	assert.InDelta(t, full/2, recordSize(half), float64(full)/20)
}

func TestSetNeverEmitsEmptyFiles(t *testing.T) {
	mem := memory.NewGoAllocator()
	s := NewSet(memoryFactory(DefaultOptions()))
	defer s.Close()

	files, err := s.Finish()
	require.NoError(t, err)
	assert.Empty(t, files)

	rec := nodes(t, mem, 3, 1)
	defer rec.Release()

	got, err := s.Write(model.NODE, rec)
	require.NoError(t, err)
	assert.Empty(t, got)

	files, err = s.Finish()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, model.NODE, files[0].Kind)
	assert.Equal(t, int64(3), files[0].Rows)
}
