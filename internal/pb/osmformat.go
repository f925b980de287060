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

package pb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	DefaultGranularity     = 100
	DefaultDateGranularity = 1000
)

// MemberType is the referenced kind of a relation member.
type MemberType int32

const (
	MemberNode     MemberType = 0
	MemberWay      MemberType = 1
	MemberRelation MemberType = 2
)

// HeaderBBox is a bounding box in nanodegrees.
type HeaderBBox struct {
	Left   int64
	Right  int64
	Top    int64
	Bottom int64
}

func (m *HeaderBBox) Unmarshal(b []byte) error {
	*m = HeaderBBox{}
	r := reader{b: b}

	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return err
		}

		var dst *int64

		switch num {
		case 1:
			dst = &m.Left
		case 2:
			dst = &m.Right
		case 3:
			dst = &m.Top
		case 4:
			dst = &m.Bottom
		default:
			if err := r.skip(num, typ); err != nil {
				return err
			}

			continue
		}

		v, err := r.varint(num, typ)
		if err != nil {
			return err
		}

		*dst = sint64(v)
	}

	return nil
}

func (m *HeaderBBox) Marshal() []byte {
	b := appendVarint(nil, 1, zigzag(m.Left))
	b = appendVarint(b, 2, zigzag(m.Right))
	b = appendVarint(b, 3, zigzag(m.Top))

	return appendVarint(b, 4, zigzag(m.Bottom))
}

// HeaderBlock is the payload of an OSMHeader blob.
type HeaderBlock struct {
	BBox                             *HeaderBBox
	RequiredFeatures                 []string
	OptionalFeatures                 []string
	WritingProgram                   string
	Source                           string
	OsmosisReplicationTimestamp      int64
	OsmosisReplicationSequenceNumber int64
	OsmosisReplicationBaseURL        string
}

func (m *HeaderBlock) Unmarshal(b []byte) error {
	*m = HeaderBlock{}
	r := reader{b: b}

	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			v, err := r.bytes(num, typ)
			if err != nil {
				return err
			}

			m.BBox = &HeaderBBox{}
			if err := m.BBox.Unmarshal(v); err != nil {
				return err
			}
		case 4, 5, 16, 17, 34:
			v, err := r.bytes(num, typ)
			if err != nil {
				return err
			}

			switch num {
			case 4:
				m.RequiredFeatures = append(m.RequiredFeatures, string(v))
			case 5:
				m.OptionalFeatures = append(m.OptionalFeatures, string(v))
			case 16:
				m.WritingProgram = string(v)
			case 17:
				m.Source = string(v)
			case 34:
				m.OsmosisReplicationBaseURL = string(v)
			}
		case 32, 33:
			v, err := r.varint(num, typ)
			if err != nil {
				return err
			}

			if num == 32 {
				m.OsmosisReplicationTimestamp = int64(v)
			} else {
				m.OsmosisReplicationSequenceNumber = int64(v)
			}
		default:
			if err := r.skip(num, typ); err != nil {
				return err
			}
		}
	}

	return nil
}

func (m *HeaderBlock) Marshal() []byte {
	var b []byte

	if m.BBox != nil {
		b = appendMessage(b, 1, m.BBox)
	}

	for _, f := range m.RequiredFeatures {
		b = appendBytes(b, 4, []byte(f))
	}

	for _, f := range m.OptionalFeatures {
		b = appendBytes(b, 5, []byte(f))
	}

	if m.WritingProgram != "" {
		b = appendBytes(b, 16, []byte(m.WritingProgram))
	}

	if m.Source != "" {
		b = appendBytes(b, 17, []byte(m.Source))
	}

	if m.OsmosisReplicationTimestamp != 0 {
		b = appendVarint(b, 32, uint64(m.OsmosisReplicationTimestamp))
	}

	if m.OsmosisReplicationSequenceNumber != 0 {
		b = appendVarint(b, 33, uint64(m.OsmosisReplicationSequenceNumber))
	}

	if m.OsmosisReplicationBaseURL != "" {
		b = appendBytes(b, 34, []byte(m.OsmosisReplicationBaseURL))
	}

	return b
}

// PrimitiveBlock is the payload of an OSMData blob. Nil scale fields take
// their protocol defaults through the getters.
type PrimitiveBlock struct {
	StringTable     [][]byte
	PrimitiveGroup  []*PrimitiveGroup
	Granularity     *int32
	LatOffset       *int64
	LonOffset       *int64
	DateGranularity *int32
}

func (m *PrimitiveBlock) GetGranularity() int32 {
	if m == nil || m.Granularity == nil {
		return DefaultGranularity
	}

	return *m.Granularity
}

func (m *PrimitiveBlock) GetLatOffset() int64 {
	if m == nil || m.LatOffset == nil {
		return 0
	}

	return *m.LatOffset
}

func (m *PrimitiveBlock) GetLonOffset() int64 {
	if m == nil || m.LonOffset == nil {
		return 0
	}

	return *m.LonOffset
}

func (m *PrimitiveBlock) GetDateGranularity() int32 {
	if m == nil || m.DateGranularity == nil {
		return DefaultDateGranularity
	}

	return *m.DateGranularity
}

func (m *PrimitiveBlock) Unmarshal(b []byte) error {
	*m = PrimitiveBlock{}
	r := reader{b: b}

	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			v, err := r.bytes(num, typ)
			if err != nil {
				return err
			}

			if m.StringTable, err = unmarshalStringTable(v); err != nil {
				return err
			}
		case 2:
			v, err := r.bytes(num, typ)
			if err != nil {
				return err
			}

			g := &PrimitiveGroup{}
			if err := g.Unmarshal(v); err != nil {
				return err
			}

			m.PrimitiveGroup = append(m.PrimitiveGroup, g)
		case 17, 18, 19, 20:
			v, err := r.varint(num, typ)
			if err != nil {
				return err
			}

			switch num {
			case 17:
				g := int32(v)
				m.Granularity = &g
			case 18:
				g := int32(v)
				m.DateGranularity = &g
			case 19:
				o := int64(v)
				m.LatOffset = &o
			case 20:
				o := int64(v)
				m.LonOffset = &o
			}
		default:
			if err := r.skip(num, typ); err != nil {
				return err
			}
		}
	}

	return nil
}

func (m *PrimitiveBlock) Marshal() []byte {
	var st []byte
	for _, s := range m.StringTable {
		st = appendBytes(st, 1, s)
	}

	b := appendBytes(nil, 1, st)

	for _, g := range m.PrimitiveGroup {
		b = appendMessage(b, 2, g)
	}

	if m.Granularity != nil {
		b = appendVarint(b, 17, uint64(int64(*m.Granularity)))
	}

	if m.DateGranularity != nil {
		b = appendVarint(b, 18, uint64(int64(*m.DateGranularity)))
	}

	if m.LatOffset != nil {
		b = appendVarint(b, 19, uint64(*m.LatOffset))
	}

	if m.LonOffset != nil {
		b = appendVarint(b, 20, uint64(*m.LonOffset))
	}

	return b
}

func unmarshalStringTable(b []byte) ([][]byte, error) {
	var s [][]byte

	r := reader{b: b}
	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return nil, err
		}

		if num != 1 {
			if err := r.skip(num, typ); err != nil {
				return nil, err
			}

			continue
		}

		v, err := r.bytes(num, typ)
		if err != nil {
			return nil, err
		}

		s = append(s, v)
	}

	return s, nil
}

// PrimitiveGroup holds elements of a single kind, although decoders accept
// groups mixing them.
type PrimitiveGroup struct {
	Nodes     []*Node
	Dense     *DenseNodes
	Ways      []*Way
	Relations []*Relation
}

func (m *PrimitiveGroup) Unmarshal(b []byte) error {
	*m = PrimitiveGroup{}
	r := reader{b: b}

	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return err
		}

		if num < 1 || num > 4 {
			if err := r.skip(num, typ); err != nil {
				return err
			}

			continue
		}

		v, err := r.bytes(num, typ)
		if err != nil {
			return err
		}

		switch num {
		case 1:
			n := &Node{}
			err = n.Unmarshal(v)
			m.Nodes = append(m.Nodes, n)
		case 2:
			m.Dense = &DenseNodes{}
			err = m.Dense.Unmarshal(v)
		case 3:
			w := &Way{}
			err = w.Unmarshal(v)
			m.Ways = append(m.Ways, w)
		case 4:
			rel := &Relation{}
			err = rel.Unmarshal(v)
			m.Relations = append(m.Relations, rel)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (m *PrimitiveGroup) Marshal() []byte {
	var b []byte

	for _, n := range m.Nodes {
		b = appendMessage(b, 1, n)
	}

	if m.Dense != nil {
		b = appendMessage(b, 2, m.Dense)
	}

	for _, w := range m.Ways {
		b = appendMessage(b, 3, w)
	}

	for _, r := range m.Relations {
		b = appendMessage(b, 4, r)
	}

	return b
}

// Info is the non-dense authorship metadata.
type Info struct {
	Version   int32
	Timestamp int64
	Changeset int64
	UID       int32
	UserSID   uint32
	Visible   *bool
}

func (m *Info) Unmarshal(b []byte) error {
	*m = Info{}
	r := reader{b: b}

	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return err
		}

		if num < 1 || num > 6 {
			if err := r.skip(num, typ); err != nil {
				return err
			}

			continue
		}

		v, err := r.varint(num, typ)
		if err != nil {
			return err
		}

		switch num {
		case 1:
			m.Version = int32(v)
		case 2:
			m.Timestamp = int64(v)
		case 3:
			m.Changeset = int64(v)
		case 4:
			m.UID = int32(v)
		case 5:
			m.UserSID = uint32(v)
		case 6:
			visible := protowire.DecodeBool(v)
			m.Visible = &visible
		}
	}

	return nil
}

func (m *Info) Marshal() []byte {
	b := appendVarint(nil, 1, uint64(int64(m.Version)))
	b = appendVarint(b, 2, uint64(m.Timestamp))
	b = appendVarint(b, 3, uint64(m.Changeset))
	b = appendVarint(b, 4, uint64(int64(m.UID)))
	b = appendVarint(b, 5, uint64(m.UserSID))

	if m.Visible != nil {
		b = appendVarint(b, 6, protowire.EncodeBool(*m.Visible))
	}

	return b
}

// DenseInfo holds parallel metadata arrays for dense nodes. Every array but
// Version is delta coded.
type DenseInfo struct {
	Version   []int32
	Timestamp []int64
	Changeset []int64
	UID       []int32
	UserSID   []int32
	Visible   []bool
}

func (m *DenseInfo) Unmarshal(b []byte) error {
	*m = DenseInfo{}
	r := reader{b: b}

	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			err = r.packed(num, typ, func(v uint64) { m.Version = append(m.Version, int32(v)) })
		case 2:
			err = r.packed(num, typ, func(v uint64) { m.Timestamp = append(m.Timestamp, sint64(v)) })
		case 3:
			err = r.packed(num, typ, func(v uint64) { m.Changeset = append(m.Changeset, sint64(v)) })
		case 4:
			err = r.packed(num, typ, func(v uint64) { m.UID = append(m.UID, sint32(v)) })
		case 5:
			err = r.packed(num, typ, func(v uint64) { m.UserSID = append(m.UserSID, sint32(v)) })
		case 6:
			err = r.packed(num, typ, func(v uint64) { m.Visible = append(m.Visible, protowire.DecodeBool(v)) })
		default:
			err = r.skip(num, typ)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (m *DenseInfo) Marshal() []byte {
	b := appendPacked(nil, 1, m.Version, plain[int32])
	b = appendPacked(b, 2, m.Timestamp, zigzag[int64])
	b = appendPacked(b, 3, m.Changeset, zigzag[int64])
	b = appendPacked(b, 4, m.UID, zigzag[int32])
	b = appendPacked(b, 5, m.UserSID, zigzag[int32])

	if len(m.Visible) > 0 {
		var payload []byte
		for _, v := range m.Visible {
			payload = protowire.AppendVarint(payload, protowire.EncodeBool(v))
		}

		b = appendBytes(b, 6, payload)
	}

	return b
}

// Node is a plain, non-dense node.
type Node struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Info *Info
	Lat  int64
	Lon  int64
}

func (m *Node) Unmarshal(b []byte) error {
	*m = Node{}
	r := reader{b: b}

	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return err
		}

		switch num {
		case 1, 8, 9:
			v, err := r.varint(num, typ)
			if err != nil {
				return err
			}

			switch num {
			case 1:
				m.ID = sint64(v)
			case 8:
				m.Lat = sint64(v)
			case 9:
				m.Lon = sint64(v)
			}
		case 2:
			err = r.packed(num, typ, func(v uint64) { m.Keys = append(m.Keys, uint32(v)) })
		case 3:
			err = r.packed(num, typ, func(v uint64) { m.Vals = append(m.Vals, uint32(v)) })
		case 4:
			m.Info, err = unmarshalInfo(&r, num, typ)
		default:
			err = r.skip(num, typ)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (m *Node) Marshal() []byte {
	b := appendVarint(nil, 1, zigzag(m.ID))
	b = appendPacked(b, 2, m.Keys, plain[uint32])
	b = appendPacked(b, 3, m.Vals, plain[uint32])

	if m.Info != nil {
		b = appendMessage(b, 4, m.Info)
	}

	b = appendVarint(b, 8, zigzag(m.Lat))

	return appendVarint(b, 9, zigzag(m.Lon))
}

// DenseNodes holds nodes as parallel delta coded arrays. KeysVals is the
// flattened tag list with 0 separating consecutive nodes.
type DenseNodes struct {
	ID        []int64
	DenseInfo *DenseInfo
	Lat       []int64
	Lon       []int64
	KeysVals  []int32
}

func (m *DenseNodes) Unmarshal(b []byte) error {
	*m = DenseNodes{}
	r := reader{b: b}

	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			err = r.packed(num, typ, func(v uint64) { m.ID = append(m.ID, sint64(v)) })
		case 5:
			var v []byte
			if v, err = r.bytes(num, typ); err == nil {
				m.DenseInfo = &DenseInfo{}
				err = m.DenseInfo.Unmarshal(v)
			}
		case 8:
			err = r.packed(num, typ, func(v uint64) { m.Lat = append(m.Lat, sint64(v)) })
		case 9:
			err = r.packed(num, typ, func(v uint64) { m.Lon = append(m.Lon, sint64(v)) })
		case 10:
			err = r.packed(num, typ, func(v uint64) { m.KeysVals = append(m.KeysVals, int32(v)) })
		default:
			err = r.skip(num, typ)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (m *DenseNodes) Marshal() []byte {
	b := appendPacked(nil, 1, m.ID, zigzag[int64])

	if m.DenseInfo != nil {
		b = appendMessage(b, 5, m.DenseInfo)
	}

	b = appendPacked(b, 8, m.Lat, zigzag[int64])
	b = appendPacked(b, 9, m.Lon, zigzag[int64])

	return appendPacked(b, 10, m.KeysVals, plain[int32])
}

// Way is an ordered list of delta coded node references.
type Way struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Info *Info
	Refs []int64
}

func (m *Way) Unmarshal(b []byte) error {
	*m = Way{}
	r := reader{b: b}

	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			var v uint64
			if v, err = r.varint(num, typ); err == nil {
				m.ID = int64(v)
			}
		case 2:
			err = r.packed(num, typ, func(v uint64) { m.Keys = append(m.Keys, uint32(v)) })
		case 3:
			err = r.packed(num, typ, func(v uint64) { m.Vals = append(m.Vals, uint32(v)) })
		case 4:
			m.Info, err = unmarshalInfo(&r, num, typ)
		case 8:
			err = r.packed(num, typ, func(v uint64) { m.Refs = append(m.Refs, sint64(v)) })
		default:
			err = r.skip(num, typ)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (m *Way) Marshal() []byte {
	b := appendVarint(nil, 1, uint64(m.ID))
	b = appendPacked(b, 2, m.Keys, plain[uint32])
	b = appendPacked(b, 3, m.Vals, plain[uint32])

	if m.Info != nil {
		b = appendMessage(b, 4, m.Info)
	}

	return appendPacked(b, 8, m.Refs, zigzag[int64])
}

// Relation members are three parallel arrays; MemIDs is delta coded.
type Relation struct {
	ID       int64
	Keys     []uint32
	Vals     []uint32
	Info     *Info
	RolesSID []int32
	MemIDs   []int64
	Types    []MemberType
}

func (m *Relation) Unmarshal(b []byte) error {
	*m = Relation{}
	r := reader{b: b}

	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			var v uint64
			if v, err = r.varint(num, typ); err == nil {
				m.ID = int64(v)
			}
		case 2:
			err = r.packed(num, typ, func(v uint64) { m.Keys = append(m.Keys, uint32(v)) })
		case 3:
			err = r.packed(num, typ, func(v uint64) { m.Vals = append(m.Vals, uint32(v)) })
		case 4:
			m.Info, err = unmarshalInfo(&r, num, typ)
		case 8:
			err = r.packed(num, typ, func(v uint64) { m.RolesSID = append(m.RolesSID, int32(v)) })
		case 9:
			err = r.packed(num, typ, func(v uint64) { m.MemIDs = append(m.MemIDs, sint64(v)) })
		case 10:
			err = r.packed(num, typ, func(v uint64) { m.Types = append(m.Types, MemberType(int32(v))) })
		default:
			err = r.skip(num, typ)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (m *Relation) Marshal() []byte {
	b := appendVarint(nil, 1, uint64(m.ID))
	b = appendPacked(b, 2, m.Keys, plain[uint32])
	b = appendPacked(b, 3, m.Vals, plain[uint32])

	if m.Info != nil {
		b = appendMessage(b, 4, m.Info)
	}

	b = appendPacked(b, 8, m.RolesSID, plain[int32])
	b = appendPacked(b, 9, m.MemIDs, zigzag[int64])

	return appendPacked(b, 10, m.Types, plain[MemberType])
}

func unmarshalInfo(r *reader, num protowire.Number, typ protowire.Type) (*Info, error) {
	v, err := r.bytes(num, typ)
	if err != nil {
		return nil, err
	}

	info := &Info{}
	if err := info.Unmarshal(v); err != nil {
		return nil, err
	}

	return info, nil
}
