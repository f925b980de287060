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

package encoder

import (
	"fmt"
	"io"
	"slices"

	"golang.org/x/exp/constraints"

	"m4o.io/osmpq/internal/pb"
	"m4o.io/osmpq/model"
)

const (
	DateGranularityMs = 1000
	Granularity       = 100
	LatOffset         = 0
	LonOffset         = 0

	// EntityLimit is the max number of entities in a pb.PrimitiveBlock.
	// Certain programs (e.g. osmosis 0.38) limit the number of entities in
	// each block to 8000 when writing PBF format.
	EntityLimit = 8000
)

// SaveBlock writes the elements as one OSMData blob. Nodes are written as
// dense nodes when dense is set.
func SaveBlock(w io.Writer, e *model.Elements, dense bool, c BlobCompression) error {
	if err := writeBlob(w, pb.TypeData, EncodeBlock(e, dense), c); err != nil {
		return fmt.Errorf("could not write block: %w", err)
	}

	return nil
}

// EncodeBlock builds a primitive block holding one group per non-empty kind.
func EncodeBlock(e *model.Elements, dense bool) *pb.PrimitiveBlock {
	bc := newBlockContext(e)

	var groups []*pb.PrimitiveGroup

	if len(e.Nodes) > 0 {
		if dense {
			groups = append(groups, &pb.PrimitiveGroup{Dense: bc.extractDenseNodes()})
		} else {
			groups = append(groups, &pb.PrimitiveGroup{Nodes: bc.extractNodes()})
		}
	}

	if len(e.Ways) > 0 {
		groups = append(groups, &pb.PrimitiveGroup{Ways: bc.extractWays()})
	}

	if len(e.Relations) > 0 {
		groups = append(groups, &pb.PrimitiveGroup{Relations: bc.extractRelations()})
	}

	granularity := int32(Granularity)
	dateGranularity := int32(DateGranularityMs)

	return &pb.PrimitiveBlock{
		StringTable:     bc.table.AsBytes(),
		PrimitiveGroup:  groups,
		Granularity:     &granularity,
		DateGranularity: &dateGranularity,
	}
}

type blockContext struct {
	table *Table
	e     *model.Elements
}

func newBlockContext(e *model.Elements) *blockContext {
	strings := NewStrings()

	for _, n := range e.Nodes {
		extractTagsAndInfo(strings, n)
	}

	for _, w := range e.Ways {
		extractTagsAndInfo(strings, w)
	}

	for _, r := range e.Relations {
		extractTagsAndInfo(strings, r)

		for _, m := range r.Members {
			strings.Add(m.Role)
		}
	}

	return &blockContext{table: strings.CalcTable(), e: e}
}

func (bc *blockContext) extractNodes() []*pb.Node {
	nodes := make([]*pb.Node, len(bc.e.Nodes))

	for i, n := range bc.e.Nodes {
		keyIDs, valIDs := calcTagIDs(n.Tags, bc.table)

		nodes[i] = &pb.Node{
			ID:   int64(n.ID),
			Keys: keyIDs,
			Vals: valIDs,
			Info: toInfoPb(n.Info, bc.table),
			Lat:  model.ToCoordinate(LatOffset, Granularity, n.Lat),
			Lon:  model.ToCoordinate(LonOffset, Granularity, n.Lon),
		}
	}

	return nodes
}

func (bc *blockContext) extractDenseNodes() *pb.DenseNodes {
	n := len(bc.e.Nodes)
	ids := make([]int64, n)
	lats := make([]int64, n)
	lons := make([]int64, n)
	versions := make([]int32, n)
	ts := make([]int64, n)
	cs := make([]int64, n)
	uids := make([]int32, n)
	usids := make([]int32, n)

	var keyVals []int32

	for i, node := range bc.e.Nodes {
		ids[i] = int64(node.ID)
		lats[i] = model.ToCoordinate(LatOffset, Granularity, node.Lat)
		lons[i] = model.ToCoordinate(LonOffset, Granularity, node.Lon)

		versions[i] = node.Info.Version
		ts[i] = node.Info.Timestamp / DateGranularityMs
		cs[i] = node.Info.Changeset
		uids[i] = int32(node.Info.UID)
		usids[i] = bc.table.IndexOf(node.Info.User)

		kIDs, vIDs := calcTagIDs(node.Tags, bc.table)
		for j, k := range kIDs {
			keyVals = append(keyVals, int32(k), int32(vIDs[j]))
		}

		keyVals = append(keyVals, 0)
	}

	return &pb.DenseNodes{
		ID: calcDeltas(ids),
		DenseInfo: &pb.DenseInfo{
			Version:   versions,
			Timestamp: calcDeltas(ts),
			Changeset: calcDeltas(cs),
			UID:       calcDeltas(uids),
			UserSID:   calcDeltas(usids),
		},
		Lat:      calcDeltas(lats),
		Lon:      calcDeltas(lons),
		KeysVals: keyVals,
	}
}

func (bc *blockContext) extractWays() []*pb.Way {
	ways := make([]*pb.Way, len(bc.e.Ways))

	for i, w := range bc.e.Ways {
		refs := make([]int64, len(w.NodeIDs))
		for j, r := range w.NodeIDs {
			refs[j] = int64(r)
		}

		keyIDs, valIDs := calcTagIDs(w.Tags, bc.table)

		ways[i] = &pb.Way{
			ID:   int64(w.ID),
			Keys: keyIDs,
			Vals: valIDs,
			Info: toInfoPb(w.Info, bc.table),
			Refs: calcDeltas(refs),
		}
	}

	return ways
}

func (bc *blockContext) extractRelations() []*pb.Relation {
	relations := make([]*pb.Relation, len(bc.e.Relations))

	for i, r := range bc.e.Relations {
		keyIDs, valIDs := calcTagIDs(r.Tags, bc.table)
		memids := make([]int64, len(r.Members))
		roleids := make([]int32, len(r.Members))
		types := make([]pb.MemberType, len(r.Members))

		for j, m := range r.Members {
			memids[j] = int64(m.ID)
			roleids[j] = bc.table.IndexOf(m.Role)
			types[j] = pb.MemberType(m.Type)
		}

		relations[i] = &pb.Relation{
			ID:       int64(r.ID),
			Keys:     keyIDs,
			Vals:     valIDs,
			Info:     toInfoPb(r.Info, bc.table),
			RolesSID: roleids,
			MemIDs:   calcDeltas(memids),
			Types:    types,
		}
	}

	return relations
}

func extractTagsAndInfo(strings *Strings, e model.Entity) {
	for k, v := range e.GetTags() {
		strings.Add(k)
		strings.Add(v)
	}

	strings.Add(e.GetInfo().User)
}

// calcDeltas calculates the delta-encoding of the values.
func calcDeltas[T constraints.Integer | constraints.Float](values []T) []T {
	prev := T(0)
	deltas := make([]T, len(values))

	for i, v := range values {
		deltas[i] = v - prev
		prev = v
	}

	return deltas
}

// calcTagIDs returns the key and value indexes in key order.
func calcTagIDs(tags map[string]string, table *Table) (keyIDs []uint32, valIDs []uint32) {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	for _, k := range keys {
		keyIDs = append(keyIDs, uint32(table.IndexOf(k)))
		valIDs = append(valIDs, uint32(table.IndexOf(tags[k])))
	}

	return keyIDs, valIDs
}

func toInfoPb(info model.Info, table *Table) *pb.Info {
	if info == (model.Info{}) {
		return nil
	}

	return &pb.Info{
		Version:   info.Version,
		Timestamp: info.Timestamp / DateGranularityMs,
		Changeset: info.Changeset,
		UID:       int32(info.UID),
		UserSID:   uint32(table.IndexOf(info.User)),
	}
}
