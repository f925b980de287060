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
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmpq/model"
)

func TestSchemas(t *testing.T) {
	s := NewSchemas()

	names := func(sc *arrow.Schema) []string {
		var n []string
		for _, f := range sc.Fields() {
			n = append(n, f.Name)
		}

		return n
	}

	assert.Equal(t, []string{"id", "version", "tags", "latitude", "longitude", "timestamp", "changeset", "uid", "user_sid"}, names(s.Nodes))
	assert.Equal(t, []string{"id", "version", "tags", "nodes", "timestamp", "changeset", "uid", "user_sid"}, names(s.Ways))
	assert.Equal(t, []string{"id", "version", "tags", "members", "timestamp", "changeset", "uid", "user_sid"}, names(s.Relations))

	assert.False(t, s.Nodes.Field(0).Nullable)
	assert.False(t, s.Nodes.Field(3).Nullable)
	assert.False(t, s.Ways.Field(3).Nullable)
	assert.True(t, s.Nodes.Field(1).Nullable)
	assert.Same(t, s.Ways, s.For(model.WAY))
}

func TestNodeBuilderNulls(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	b := NewNodeBuilder(mem, NewSchemas())
	defer b.Release()

	b.Append(model.Node{ID: 1, Lat: 1.5, Lon: 2.5})
	b.Append(model.Node{
		ID:   2,
		Tags: map[string]string{"b": "2", "a": "1"},
		Info: model.Info{Version: 3, Timestamp: 1000, Changeset: 4, UID: 5, User: "alice"},
	})
	b.Append(model.Node{ID: 3, Tags: map[string]string{}})

	assert.Equal(t, 3, b.Len())

	rec := b.NewRecord()
	defer rec.Release()

	assert.Equal(t, 0, b.Len())
	assert.Equal(t, int64(3), rec.NumRows())

	version := rec.Column(1).(*array.Int32)
	assert.True(t, version.IsNull(0))
	assert.Equal(t, int32(3), version.Value(1))

	for col := 5; col < 9; col++ {
		assert.True(t, rec.Column(col).IsNull(0), "column %d", col)
		assert.False(t, rec.Column(col).IsNull(1), "column %d", col)
	}

	assert.Equal(t, "alice", rec.Column(8).(*array.String).Value(1))
	assert.Equal(t, 1.5, rec.Column(3).(*array.Float64).Value(0))

	tags := rec.Column(2).(*array.Map)
	assert.True(t, tags.IsNull(0))
	assert.False(t, tags.IsNull(1))
	assert.True(t, tags.IsNull(2), "empty tag set is stored as null")

	start, end := tags.ValueOffsets(1)
	require.Equal(t, int64(2), end-start)

	keys := tags.Keys().(*array.String)
	items := tags.Items().(*array.String)
	assert.Equal(t, "a", keys.Value(int(start)))
	assert.Equal(t, "1", items.Value(int(start)))
	assert.Equal(t, "b", keys.Value(int(start)+1))
}

func TestWayAndRelationBuilders(t *testing.T) {
	mem := memory.NewGoAllocator()
	s := NewSchemas()

	wb := NewWayBuilder(mem, s)
	defer wb.Release()

	wb.Append(model.Way{ID: 10, NodeIDs: []model.ID{1, 2}})
	wb.Append(model.Way{ID: 11})

	ways := wb.NewRecord()
	defer ways.Release()

	nodes := ways.Column(3).(*array.List)
	start, end := nodes.ValueOffsets(0)
	assert.Equal(t, int64(2), end-start)
	assert.Equal(t, int64(2), nodes.ListValues().(*array.Int64).Value(int(start)+1))
	assert.False(t, nodes.IsNull(1))

	start, end = nodes.ValueOffsets(1)
	assert.Equal(t, start, end)

	rb := NewRelationBuilder(mem, s)
	defer rb.Release()

	rb.Append(model.Relation{ID: 20, Members: []model.Member{{ID: 10, Type: model.WAY, Role: "outer"}}})

	rels := rb.NewRecord()
	defer rels.Release()

	members := rels.Column(3).(*array.List)
	start, end = members.ValueOffsets(0)
	require.Equal(t, int64(1), end-start)

	st := members.ListValues().(*array.Struct)
	assert.Equal(t, "outer", st.Field(0).(*array.String).Value(0))
	assert.Equal(t, int64(10), st.Field(1).(*array.Int64).Value(0))
	assert.Equal(t, "way", st.Field(2).(*array.String).Value(0))
}

func TestBatcher(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	b := NewBatcher(model.NODE, NewNodeBuilder(mem, NewSchemas()), 10)
	defer b.Release()

	var sizes []int64

	emit := func(kind model.EntityType, rec arrow.Record) error {
		assert.Equal(t, model.NODE, kind)
		sizes = append(sizes, rec.NumRows())

		return nil
	}

	nodes := make([]model.Node, 25)
	for i := range nodes {
		nodes[i].ID = model.ID(i + 1)
	}

	require.NoError(t, b.Add(nodes[:7], emit))
	require.NoError(t, b.Add(nodes[7:], emit))
	assert.Equal(t, []int64{10, 10}, sizes)

	require.NoError(t, b.Flush(emit))
	require.NoError(t, b.Flush(emit))

	assert.Equal(t, []int64{10, 10, 5}, sizes)
}

func TestBatchersPreserveOrder(t *testing.T) {
	b := NewBatchers(memory.NewGoAllocator(), NewSchemas(), 1)
	defer b.Release()

	var ids []int64

	emit := func(kind model.EntityType, rec arrow.Record) error {
		ids = append(ids, rec.Column(0).(*array.Int64).Value(0))

		return nil
	}

	e := &model.Elements{
		Nodes:     []model.Node{{ID: 1}, {ID: 2}},
		Ways:      []model.Way{{ID: 3}},
		Relations: []model.Relation{{ID: 4}},
	}

	require.NoError(t, b.Add(e, emit))
	require.NoError(t, b.Flush(emit))

	assert.Equal(t, []int64{1, 2, 3, 4}, ids)
}
