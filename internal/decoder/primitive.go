// Copyright 2017-25 the original author or authors.
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
	"fmt"

	"golang.org/x/exp/constraints"

	"m4o.io/osmpq/internal/pb"
	"m4o.io/osmpq/model"
)

func parsePrimitiveBlock(buf []byte) (*model.Elements, error) {
	blk := &pb.PrimitiveBlock{}
	if err := blk.Unmarshal(buf); err != nil {
		return nil, fmt.Errorf("%w: unable to unmarshal primitive block: %w", ErrMalformedBlock, err)
	}

	return decodePrimitiveBlock(blk)
}

func decodePrimitiveBlock(blk *pb.PrimitiveBlock) (*model.Elements, error) {
	c := newBlockContext(blk)
	e := &model.Elements{}

	for _, pg := range blk.PrimitiveGroup {
		nodes, err := c.decodeNodes(pg.Nodes)
		if err != nil {
			return nil, err
		}

		e.Nodes = append(e.Nodes, nodes...)

		if pg.Dense != nil {
			dense, err := c.decodeDenseNodes(pg.Dense)
			if err != nil {
				return nil, err
			}

			e.Nodes = append(e.Nodes, dense...)
		}

		ways, err := c.decodeWays(pg.Ways)
		if err != nil {
			return nil, err
		}

		e.Ways = append(e.Ways, ways...)

		relations, err := c.decodeRelations(pg.Relations)
		if err != nil {
			return nil, err
		}

		e.Relations = append(e.Relations, relations...)
	}

	return e, nil
}

// blockContext carries the string table and scale constants of one block.
// The strings are copies, so nothing decoded references the block buffer.
type blockContext struct {
	strings         []string
	granularity     int32
	latOffset       int64
	lonOffset       int64
	dateGranularity int64
}

func newBlockContext(blk *pb.PrimitiveBlock) *blockContext {
	strings := make([]string, len(blk.StringTable))
	for i, s := range blk.StringTable {
		strings[i] = string(s)
	}

	return &blockContext{
		strings:         strings,
		granularity:     blk.GetGranularity(),
		latOffset:       blk.GetLatOffset(),
		lonOffset:       blk.GetLonOffset(),
		dateGranularity: int64(blk.GetDateGranularity()),
	}
}

func (c *blockContext) str(i int64) (string, error) {
	if i < 0 || i >= int64(len(c.strings)) {
		return "", malformed("string index %d outside table of %d", i, len(c.strings))
	}

	return c.strings[i], nil
}

func (c *blockContext) decodeNodes(nodes []*pb.Node) ([]model.Node, error) {
	entities := make([]model.Node, len(nodes))

	for i, node := range nodes {
		tags, err := c.decodeTags(node.Keys, node.Vals)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", node.ID, err)
		}

		info, err := c.decodeInfo(node.Info)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", node.ID, err)
		}

		entities[i] = model.Node{
			ID:   model.ID(node.ID),
			Tags: tags,
			Info: info,
			Lat:  model.ToDegrees(c.latOffset, c.granularity, node.Lat),
			Lon:  model.ToDegrees(c.lonOffset, c.granularity, node.Lon),
		}
	}

	return entities, nil
}

func (c *blockContext) decodeDenseNodes(nodes *pb.DenseNodes) ([]model.Node, error) {
	n := len(nodes.ID)
	if len(nodes.Lat) != n || len(nodes.Lon) != n {
		return nil, malformed("dense nodes with %d ids, %d lats and %d lons", n, len(nodes.Lat), len(nodes.Lon))
	}

	tags, err := c.decodeDenseTags(nodes.KeysVals, n)
	if err != nil {
		return nil, err
	}

	dic, err := c.newDenseInfoContext(nodes.DenseInfo, n)
	if err != nil {
		return nil, err
	}

	ids := deltaDecode(nodes.ID)
	lats := deltaDecode(nodes.Lat)
	lons := deltaDecode(nodes.Lon)

	entities := make([]model.Node, n)

	for i := range ids {
		info, err := dic.decodeInfo(i)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", ids[i], err)
		}

		entities[i] = model.Node{
			ID:   model.ID(ids[i]),
			Tags: tags[i],
			Info: info,
			Lat:  model.ToDegrees(c.latOffset, c.granularity, lats[i]),
			Lon:  model.ToDegrees(c.lonOffset, c.granularity, lons[i]),
		}
	}

	return entities, nil
}

func (c *blockContext) decodeWays(ways []*pb.Way) ([]model.Way, error) {
	entities := make([]model.Way, len(ways))

	for i, way := range ways {
		tags, err := c.decodeTags(way.Keys, way.Vals)
		if err != nil {
			return nil, fmt.Errorf("way %d: %w", way.ID, err)
		}

		info, err := c.decodeInfo(way.Info)
		if err != nil {
			return nil, fmt.Errorf("way %d: %w", way.ID, err)
		}

		refs := deltaDecode(way.Refs)
		nodeIDs := make([]model.ID, len(refs))

		for j, ref := range refs {
			nodeIDs[j] = model.ID(ref)
		}

		entities[i] = model.Way{
			ID:      model.ID(way.ID),
			Tags:    tags,
			Info:    info,
			NodeIDs: nodeIDs,
		}
	}

	return entities, nil
}

func (c *blockContext) decodeRelations(relations []*pb.Relation) ([]model.Relation, error) {
	entities := make([]model.Relation, len(relations))

	for i, rel := range relations {
		tags, err := c.decodeTags(rel.Keys, rel.Vals)
		if err != nil {
			return nil, fmt.Errorf("relation %d: %w", rel.ID, err)
		}

		info, err := c.decodeInfo(rel.Info)
		if err != nil {
			return nil, fmt.Errorf("relation %d: %w", rel.ID, err)
		}

		members, err := c.decodeMembers(rel)
		if err != nil {
			return nil, fmt.Errorf("relation %d: %w", rel.ID, err)
		}

		entities[i] = model.Relation{
			ID:      model.ID(rel.ID),
			Tags:    tags,
			Info:    info,
			Members: members,
		}
	}

	return entities, nil
}

func (c *blockContext) decodeMembers(rel *pb.Relation) ([]model.Member, error) {
	n := len(rel.MemIDs)
	if len(rel.RolesSID) != n || len(rel.Types) != n {
		return nil, malformed("%d member ids, %d roles and %d types", n, len(rel.RolesSID), len(rel.Types))
	}

	memids := deltaDecode(rel.MemIDs)
	members := make([]model.Member, n)

	for i, id := range memids {
		role, err := c.str(int64(rel.RolesSID[i]))
		if err != nil {
			return nil, err
		}

		t, err := decodeMemberType(rel.Types[i])
		if err != nil {
			return nil, err
		}

		members[i] = model.Member{
			ID:   model.ID(id),
			Type: t,
			Role: role,
		}
	}

	return members, nil
}

// decodeTags pairs parallel key and value indexes. An element without tags
// gets a nil map.
func (c *blockContext) decodeTags(keyIDs, valIDs []uint32) (map[string]string, error) {
	if len(keyIDs) != len(valIDs) {
		return nil, malformed("%d tag keys but %d values", len(keyIDs), len(valIDs))
	}

	if len(keyIDs) == 0 {
		return nil, nil
	}

	tags := make(map[string]string, len(keyIDs))

	for i, keyID := range keyIDs {
		k, err := c.str(int64(keyID))
		if err != nil {
			return nil, err
		}

		v, err := c.str(int64(valIDs[i]))
		if err != nil {
			return nil, err
		}

		tags[k] = v
	}

	return tags, nil
}

// decodeDenseTags splits the flattened key/value index list of n dense
// nodes. A 0 advances to the next node; anything else starts a key/value
// pair for the current node.
func (c *blockContext) decodeDenseTags(keyVals []int32, n int) ([]map[string]string, error) {
	tags := make([]map[string]string, n)
	node := 0

	for i := 0; i < len(keyVals); {
		if keyVals[i] == 0 {
			node++
			i++

			continue
		}

		if node >= n {
			return nil, malformed("dense tags beyond node %d", n)
		}

		if i+1 >= len(keyVals) {
			return nil, malformed("dense tag key %d without value", keyVals[i])
		}

		k, err := c.str(int64(keyVals[i]))
		if err != nil {
			return nil, err
		}

		v, err := c.str(int64(keyVals[i+1]))
		if err != nil {
			return nil, err
		}

		if tags[node] == nil {
			tags[node] = make(map[string]string)
		}

		tags[node][k] = v
		i += 2
	}

	return tags, nil
}

func (c *blockContext) decodeInfo(info *pb.Info) (model.Info, error) {
	if info == nil {
		return model.Info{}, nil
	}

	user, err := c.str(int64(info.UserSID))
	if err != nil {
		return model.Info{}, err
	}

	return model.Info{
		Version:   info.Version,
		UID:       int64(info.UID),
		Timestamp: info.Timestamp * c.dateGranularity,
		Changeset: info.Changeset,
		User:      user,
	}, nil
}

// denseInfoContext holds the decoded dense info columns. Empty columns
// decode as zero for every node.
type denseInfoContext struct {
	c          *blockContext
	versions   []int32
	timestamps []int64
	changesets []int64
	uids       []int32
	userSids   []int32
}

func (c *blockContext) newDenseInfoContext(di *pb.DenseInfo, n int) (*denseInfoContext, error) {
	dic := &denseInfoContext{c: c}
	if di == nil {
		return dic, nil
	}

	for name, l := range map[string]int{
		"version":   len(di.Version),
		"timestamp": len(di.Timestamp),
		"changeset": len(di.Changeset),
		"uid":       len(di.UID),
		"user_sid":  len(di.UserSID),
	} {
		if l != 0 && l != n {
			return nil, malformed("dense info %s has %d entries for %d nodes", name, l, n)
		}
	}

	// version is stored as is; the other columns are delta coded
	dic.versions = di.Version
	dic.timestamps = deltaDecode(di.Timestamp)
	dic.changesets = deltaDecode(di.Changeset)
	dic.uids = deltaDecode(di.UID)
	dic.userSids = deltaDecode(di.UserSID)

	return dic, nil
}

func (dic *denseInfoContext) decodeInfo(i int) (model.Info, error) {
	var info model.Info

	if dic.versions != nil {
		info.Version = dic.versions[i]
	}

	if dic.timestamps != nil {
		info.Timestamp = dic.timestamps[i] * dic.c.dateGranularity
	}

	if dic.changesets != nil {
		info.Changeset = dic.changesets[i]
	}

	if dic.uids != nil {
		info.UID = int64(dic.uids[i])
	}

	if dic.userSids != nil {
		user, err := dic.c.str(int64(dic.userSids[i]))
		if err != nil {
			return model.Info{}, err
		}

		info.User = user
	}

	return info, nil
}

// deltaDecode returns the running sum of deltas, seeded at zero.
func deltaDecode[T constraints.Integer](deltas []T) []T {
	if len(deltas) == 0 {
		return nil
	}

	values := make([]T, len(deltas))

	var acc T
	for i, d := range deltas {
		acc += d
		values[i] = acc
	}

	return values
}

// decodeMemberType converts a wire member type code to an EntityType.
func decodeMemberType(mt pb.MemberType) (model.EntityType, error) {
	switch mt {
	case pb.MemberNode:
		return model.NODE, nil
	case pb.MemberWay:
		return model.WAY, nil
	case pb.MemberRelation:
		return model.RELATION, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownMemberType, mt)
	}
}
