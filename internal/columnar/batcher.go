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
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"m4o.io/osmpq/model"
)

// DefaultBatchSize is the default number of rows per record batch.
const DefaultBatchSize = 1000

// EmitFunc receives a finished record. The record is released after the
// call returns; retain it to keep it longer.
type EmitFunc func(t model.EntityType, rec arrow.Record) error

// Batcher groups entities of one kind into records of at most size rows.
type Batcher[T model.Entity] struct {
	kind    model.EntityType
	builder *Builder[T]
	size    int
}

func NewBatcher[T model.Entity](kind model.EntityType, builder *Builder[T], size int) *Batcher[T] {
	return &Batcher[T]{kind: kind, builder: builder, size: max(size, 1)}
}

// Add appends the entities in order, emitting every record that fills up.
func (b *Batcher[T]) Add(items []T, emit EmitFunc) error {
	for _, e := range items {
		b.builder.Append(e)

		if b.builder.Len() >= b.size {
			if err := b.emit(emit); err != nil {
				return err
			}
		}
	}

	return nil
}

// Flush emits the partial record, if any.
func (b *Batcher[T]) Flush(emit EmitFunc) error {
	if b.builder.Len() == 0 {
		return nil
	}

	return b.emit(emit)
}

func (b *Batcher[T]) Release() {
	b.builder.Release()
}

func (b *Batcher[T]) emit(fn EmitFunc) error {
	rec := b.builder.NewRecord()
	defer rec.Release()

	return fn(b.kind, rec)
}

// Batchers holds one Batcher per kind, as owned by a single worker.
type Batchers struct {
	Nodes     *Batcher[model.Node]
	Ways      *Batcher[model.Way]
	Relations *Batcher[model.Relation]
}

func NewBatchers(mem memory.Allocator, s *Schemas, size int) *Batchers {
	return &Batchers{
		Nodes:     NewBatcher(model.NODE, NewNodeBuilder(mem, s), size),
		Ways:      NewBatcher(model.WAY, NewWayBuilder(mem, s), size),
		Relations: NewBatcher(model.RELATION, NewRelationBuilder(mem, s), size),
	}
}

// Add feeds a decoded block to the batchers of each kind.
func (b *Batchers) Add(e *model.Elements, emit EmitFunc) error {
	if err := b.Nodes.Add(e.Nodes, emit); err != nil {
		return err
	}

	if err := b.Ways.Add(e.Ways, emit); err != nil {
		return err
	}

	return b.Relations.Add(e.Relations, emit)
}

// Flush emits the partial records of every kind.
func (b *Batchers) Flush(emit EmitFunc) error {
	if err := b.Nodes.Flush(emit); err != nil {
		return err
	}

	if err := b.Ways.Flush(emit); err != nil {
		return err
	}

	return b.Relations.Flush(emit)
}

func (b *Batchers) Release() {
	b.Nodes.Release()
	b.Ways.Release()
	b.Relations.Release()
}
