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

package decoder

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmpq/internal/encoder"
	"m4o.io/osmpq/internal/pb"
	"m4o.io/osmpq/model"
)

func table(s ...string) [][]byte {
	b := make([][]byte, len(s))
	for i, v := range s {
		b[i] = []byte(v)
	}

	return b
}

func TestDeltaDecode(t *testing.T) {
	assert.Nil(t, deltaDecode[int64](nil))
	assert.Equal(t, []int64{5, 3, 3, 10}, deltaDecode([]int64{5, -2, 0, 7}))

	rnd := rand.New(rand.NewSource(7))

	for range 100 {
		deltas := make([]int64, rnd.Intn(50)+1)
		for i := range deltas {
			deltas[i] = rnd.Int63n(1<<40) - 1<<39
		}

		values := deltaDecode(deltas)

		reencoded := make([]int64, len(values))
		prev := int64(0)

		for i, v := range values {
			reencoded[i] = v - prev
			prev = v
		}

		assert.Equal(t, deltas, reencoded)
	}
}

func TestGeoFormula(t *testing.T) {
	c := newBlockContext(&pb.PrimitiveBlock{})

	nodes, err := c.decodeNodes([]*pb.Node{{ID: 1, Lat: 473086626, Lon: -1}})
	require.NoError(t, err)

	assert.InDelta(t, 47.3086626, float64(nodes[0].Lat), 1e-12)
	assert.InDelta(t, -0.0000001, float64(nodes[0].Lon), 1e-15)

	offset := int64(1_000_000_000)
	granularity := int32(1000)
	c = newBlockContext(&pb.PrimitiveBlock{LatOffset: &offset, Granularity: &granularity})

	nodes, err = c.decodeNodes([]*pb.Node{{ID: 1, Lat: 5, Lon: 5}})
	require.NoError(t, err)

	assert.InDelta(t, 1.000005, float64(nodes[0].Lat), 1e-12)
	assert.InDelta(t, 0.000005, float64(nodes[0].Lon), 1e-12)
}

func TestDecodeDenseTags(t *testing.T) {
	c := newBlockContext(&pb.PrimitiveBlock{StringTable: table("", "a", "b", "k3", "c", "v5", "d", "k7")})

	tags, err := c.decodeDenseTags([]int32{3, 5, 0, 0, 7, 2}, 3)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"k3": "v5"}, tags[0])
	assert.Empty(t, tags[1])
	assert.Equal(t, map[string]string{"k7": "b"}, tags[2])

	tags, err = c.decodeDenseTags(nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{nil, nil}, tags)

	_, err = c.decodeDenseTags([]int32{1, 2, 0, 1, 2}, 1)
	assert.ErrorIs(t, err, ErrMalformedBlock)

	_, err = c.decodeDenseTags([]int32{1}, 1)
	assert.ErrorIs(t, err, ErrMalformedBlock)

	_, err = c.decodeDenseTags([]int32{1, 99}, 1)
	assert.ErrorIs(t, err, ErrMalformedBlock)
}

func TestDecodeDenseNodes(t *testing.T) {
	dateGranularity := int32(1000)
	c := newBlockContext(&pb.PrimitiveBlock{
		StringTable:     table("", "alice", "bob"),
		DateGranularity: &dateGranularity,
	})

	nodes, err := c.decodeDenseNodes(&pb.DenseNodes{
		ID:  []int64{100, 1, 1},
		Lat: []int64{10, 10, -5},
		Lon: []int64{20, 0, 0},
		DenseInfo: &pb.DenseInfo{
			Version:   []int32{2, 2, 0},
			Timestamp: []int64{1_600_000_000, 60, 0},
			Changeset: []int64{50, 1, -51},
			UID:       []int32{7, 0, -7},
			UserSID:   []int32{1, 1, -2},
		},
	})
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	assert.Equal(t, []model.ID{100, 101, 102}, []model.ID{nodes[0].ID, nodes[1].ID, nodes[2].ID})
	assert.InDelta(t, 0.000002, float64(nodes[1].Lat), 1e-15)
	assert.InDelta(t, 0.0000015, float64(nodes[2].Lat), 1e-15)

	assert.Equal(t, model.Info{Version: 2, Timestamp: 1_600_000_000_000, Changeset: 50, UID: 7, User: "alice"}, nodes[0].Info)
	assert.Equal(t, model.Info{Version: 2, Timestamp: 1_600_000_060_000, Changeset: 51, UID: 7, User: "bob"}, nodes[1].Info)
	assert.Equal(t, model.Info{Timestamp: 1_600_000_060_000}, nodes[2].Info)
}

func TestDecodeDenseNodesMismatch(t *testing.T) {
	c := newBlockContext(&pb.PrimitiveBlock{StringTable: table("")})

	_, err := c.decodeDenseNodes(&pb.DenseNodes{ID: []int64{1, 1}, Lat: []int64{1}, Lon: []int64{1, 1}})
	assert.ErrorIs(t, err, ErrMalformedBlock)

	_, err = c.decodeDenseNodes(&pb.DenseNodes{
		ID: []int64{1}, Lat: []int64{1}, Lon: []int64{1},
		DenseInfo: &pb.DenseInfo{Version: []int32{1, 2}},
	})
	assert.ErrorIs(t, err, ErrMalformedBlock)

	nodes, err := c.decodeDenseNodes(&pb.DenseNodes{ID: []int64{1}, Lat: []int64{1}, Lon: []int64{1}})
	require.NoError(t, err)
	assert.Equal(t, model.Info{}, nodes[0].Info)
}

func TestDecodeInfoTimestampScaled(t *testing.T) {
	dateGranularity := int32(500)
	c := newBlockContext(&pb.PrimitiveBlock{StringTable: table("", "u"), DateGranularity: &dateGranularity})

	info, err := c.decodeInfo(&pb.Info{Version: 1, Timestamp: 4, UID: 9, UserSID: 1})
	require.NoError(t, err)
	assert.Equal(t, model.Info{Version: 1, Timestamp: 2000, UID: 9, User: "u"}, info)

	_, err = c.decodeInfo(&pb.Info{UserSID: 5})
	assert.ErrorIs(t, err, ErrMalformedBlock)
}

func TestDecodeWaysAndRelations(t *testing.T) {
	c := newBlockContext(&pb.PrimitiveBlock{StringTable: table("", "highway", "primary", "outer")})

	ways, err := c.decodeWays([]*pb.Way{{ID: 7, Keys: []uint32{1}, Vals: []uint32{2}, Refs: []int64{10, 5, -12}}})
	require.NoError(t, err)
	assert.Equal(t, []model.ID{10, 15, 3}, ways[0].NodeIDs)
	assert.Equal(t, map[string]string{"highway": "primary"}, ways[0].Tags)

	rels, err := c.decodeRelations([]*pb.Relation{{
		ID:       8,
		RolesSID: []int32{3, 0, 0},
		MemIDs:   []int64{7, -6, 100},
		Types:    []pb.MemberType{pb.MemberWay, pb.MemberNode, pb.MemberRelation},
	}})
	require.NoError(t, err)
	assert.Nil(t, rels[0].Tags)
	assert.Equal(t, []model.Member{
		{ID: 7, Type: model.WAY, Role: "outer"},
		{ID: 1, Type: model.NODE, Role: ""},
		{ID: 101, Type: model.RELATION, Role: ""},
	}, rels[0].Members)
}

func TestDecodeRelationErrors(t *testing.T) {
	c := newBlockContext(&pb.PrimitiveBlock{StringTable: table("")})

	_, err := c.decodeRelations([]*pb.Relation{{ID: 1, RolesSID: []int32{0}, MemIDs: []int64{1}, Types: []pb.MemberType{3}}})
	assert.ErrorIs(t, err, ErrUnknownMemberType)

	_, err = c.decodeRelations([]*pb.Relation{{ID: 1, RolesSID: []int32{0}, MemIDs: []int64{1, 2}, Types: []pb.MemberType{0}}})
	assert.ErrorIs(t, err, ErrMalformedBlock)

	_, err = c.decodeWays([]*pb.Way{{ID: 1, Keys: []uint32{0}}})
	assert.ErrorIs(t, err, ErrMalformedBlock)
}

func TestDecodeRoundTrip(t *testing.T) {
	e := &model.Elements{
		Nodes: []model.Node{
			{ID: 1, Lat: 47.3086626, Lon: 8.5404, Info: model.Info{Version: 1, Timestamp: 1_644_784_822_000, Changeset: 3, UID: 4, User: "alice"}},
			{ID: 5, Lat: -33.8568, Lon: 151.2153, Tags: map[string]string{"name": "Opera", "tourism": "attraction"}},
		},
		Ways: []model.Way{
			{ID: 10, NodeIDs: []model.ID{1, 5, 1}, Tags: map[string]string{"area": "yes"}, Info: model.Info{Version: 2}},
		},
		Relations: []model.Relation{
			{ID: 20, Members: []model.Member{{ID: 10, Type: model.WAY, Role: "outer"}, {ID: 5, Type: model.NODE, Role: "label"}}},
		},
	}

	for _, dense := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, encoder.SaveBlock(&buf, e, dense, encoder.ZLIB))

		frames, err := collect(t, buf.Bytes())
		require.NoError(t, err)
		require.Len(t, frames, 1)

		blk, err := Decode(frames[0])
		require.NoError(t, err)
		require.Nil(t, blk.Header)

		got := blk.Elements
		require.Len(t, got.Nodes, 2)

		for i := range e.Nodes {
			assert.Equal(t, e.Nodes[i].ID, got.Nodes[i].ID)
			assert.Equal(t, e.Nodes[i].Tags, got.Nodes[i].Tags)
			assert.Equal(t, e.Nodes[i].Info, got.Nodes[i].Info)
			assert.True(t, e.Nodes[i].Lat.EqualWithin(got.Nodes[i].Lat, model.E7))
			assert.True(t, e.Nodes[i].Lon.EqualWithin(got.Nodes[i].Lon, model.E7))
		}

		assert.Equal(t, e.Ways, got.Ways)
		assert.Equal(t, e.Relations, got.Relations)
	}
}

func TestDecodeUnknownBlobType(t *testing.T) {
	blob, err := encoder.Pack(&pb.HeaderBlock{}, encoder.RAW)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, encoder.WriteFrame(&buf, "OSMChangeset", blob))

	frames, err := collect(t, buf.Bytes())
	require.NoError(t, err)

	_, err = Decode(frames[0])
	assert.ErrorIs(t, err, ErrUnknownBlobType)

	var be *BlobError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, int64(0), be.Seq)
}
