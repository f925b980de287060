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

package columnar

import (
	"maps"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"m4o.io/osmpq/model"
)

// Builder accumulates entities of one kind into Arrow columns.
type Builder[T model.Entity] struct {
	rb        *array.RecordBuilder
	infoStart int
	specific  func(rb *array.RecordBuilder, e T)
	rows      int
}

func NewNodeBuilder(mem memory.Allocator, s *Schemas) *Builder[model.Node] {
	return &Builder[model.Node]{
		rb:        array.NewRecordBuilder(mem, s.Nodes),
		infoStart: 5,
		specific: func(rb *array.RecordBuilder, n model.Node) {
			rb.Field(3).(*array.Float64Builder).Append(float64(n.Lat))
			rb.Field(4).(*array.Float64Builder).Append(float64(n.Lon))
		},
	}
}

func NewWayBuilder(mem memory.Allocator, s *Schemas) *Builder[model.Way] {
	return &Builder[model.Way]{
		rb:        array.NewRecordBuilder(mem, s.Ways),
		infoStart: 4,
		specific: func(rb *array.RecordBuilder, w model.Way) {
			lb := rb.Field(3).(*array.ListBuilder)
			vb := lb.ValueBuilder().(*array.Int64Builder)

			lb.Append(true)

			for _, id := range w.NodeIDs {
				vb.Append(int64(id))
			}
		},
	}
}

func NewRelationBuilder(mem memory.Allocator, s *Schemas) *Builder[model.Relation] {
	return &Builder[model.Relation]{
		rb:        array.NewRecordBuilder(mem, s.Relations),
		infoStart: 4,
		specific: func(rb *array.RecordBuilder, r model.Relation) {
			lb := rb.Field(3).(*array.ListBuilder)
			sb := lb.ValueBuilder().(*array.StructBuilder)
			roles := sb.FieldBuilder(0).(*array.StringBuilder)
			ids := sb.FieldBuilder(1).(*array.Int64Builder)
			types := sb.FieldBuilder(2).(*array.StringBuilder)

			lb.Append(true)

			for _, m := range r.Members {
				sb.Append(true)
				roles.Append(m.Role)
				ids.Append(int64(m.ID))
				types.Append(m.Type.String())
			}
		},
	}
}

// Append adds one row.
func (b *Builder[T]) Append(e T) {
	b.rb.Field(colID).(*array.Int64Builder).Append(int64(e.GetID()))

	info := e.GetInfo()
	appendInt32(b.rb.Field(colVersion).(*array.Int32Builder), info.Version)
	appendTags(b.rb.Field(colTags).(*array.MapBuilder), e.GetTags())

	b.specific(b.rb, e)

	appendInt64(b.rb.Field(b.infoStart).(*array.Int64Builder), info.Timestamp)
	appendInt64(b.rb.Field(b.infoStart+1).(*array.Int64Builder), info.Changeset)
	appendInt64(b.rb.Field(b.infoStart+2).(*array.Int64Builder), info.UID)
	appendString(b.rb.Field(b.infoStart+3).(*array.StringBuilder), info.User)

	b.rows++
}

// Len returns the number of rows appended since the last NewRecord.
func (b *Builder[T]) Len() int {
	return b.rows
}

// NewRecord materializes the appended rows and resets the builder. The
// caller owns the record and must Release it.
func (b *Builder[T]) NewRecord() arrow.Record {
	b.rows = 0

	return b.rb.NewRecord()
}

func (b *Builder[T]) Release() {
	b.rb.Release()
}

// zero values are absent and stored as null

func appendInt32(b *array.Int32Builder, v int32) {
	if v == 0 {
		b.AppendNull()
	} else {
		b.Append(v)
	}
}

func appendInt64(b *array.Int64Builder, v int64) {
	if v == 0 {
		b.AppendNull()
	} else {
		b.Append(v)
	}
}

func appendString(b *array.StringBuilder, v string) {
	if v == "" {
		b.AppendNull()
	} else {
		b.Append(v)
	}
}

// appendTags writes an empty tag set as a null map.
func appendTags(b *array.MapBuilder, tags map[string]string) {
	if len(tags) == 0 {
		b.AppendNull()

		return
	}

	kb := b.KeyBuilder().(*array.StringBuilder)
	ib := b.ItemBuilder().(*array.StringBuilder)

	b.Append(true)

	// sorted so identical input encodes to identical files
	for _, k := range slices.Sorted(maps.Keys(tags)) {
		kb.Append(k)
		ib.Append(tags[k])
	}
}
