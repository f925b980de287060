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

package model

import (
	"time"
)

// ID is the identifier of an OSM element.
type ID int64

// Info carries the optional authorship metadata of an element. A zero value
// in any field means the attribute is absent.
type Info struct {
	Version   int32
	UID       int64
	Timestamp int64 // milliseconds since the epoch
	Changeset int64
	User      string
}

// Time returns the timestamp as a UTC time, or the zero time when absent.
func (i Info) Time() time.Time {
	if i.Timestamp == 0 {
		return time.Time{}
	}

	return time.UnixMilli(i.Timestamp).UTC()
}

// Entity is the common interface of nodes, ways and relations.
type Entity interface {
	isEntity() // prevents extensions

	GetID() ID

	GetTags() map[string]string

	GetInfo() Info

	Type() EntityType
}

type Node struct {
	ID   ID
	Tags map[string]string
	Info Info
	Lat  Degrees
	Lon  Degrees
}

var _ Entity = Node{}

func (n Node) isEntity() {}

func (n Node) GetID() ID {
	return n.ID
}

func (n Node) GetTags() map[string]string {
	return n.Tags
}

func (n Node) GetInfo() Info {
	return n.Info
}

func (n Node) Type() EntityType {
	return NODE
}

type Way struct {
	ID      ID
	Tags    map[string]string
	Info    Info
	NodeIDs []ID
}

var _ Entity = Way{}

func (w Way) isEntity() {}

func (w Way) GetID() ID {
	return w.ID
}

func (w Way) GetTags() map[string]string {
	return w.Tags
}

func (w Way) GetInfo() Info {
	return w.Info
}

func (w Way) Type() EntityType {
	return WAY
}

type Member struct {
	ID   ID
	Type EntityType
	Role string
}

type Relation struct {
	ID      ID
	Tags    map[string]string
	Info    Info
	Members []Member
}

var _ Entity = Relation{}

func (r Relation) isEntity() {}

func (r Relation) GetID() ID {
	return r.ID
}

func (r Relation) GetTags() map[string]string {
	return r.Tags
}

func (r Relation) GetInfo() Info {
	return r.Info
}

func (r Relation) Type() EntityType {
	return RELATION
}

// Elements holds the entities decoded from one primitive block, each kind in
// source order.
type Elements struct {
	Nodes     []Node
	Ways      []Way
	Relations []Relation
}

// Count returns the number of entities of each kind.
func (e *Elements) Count() ElementCount {
	return ElementCount{
		Nodes:     int64(len(e.Nodes)),
		Ways:      int64(len(e.Ways)),
		Relations: int64(len(e.Relations)),
	}
}

// Empty reports whether the block held no entities.
func (e *Elements) Empty() bool {
	return len(e.Nodes) == 0 && len(e.Ways) == 0 && len(e.Relations) == 0
}
