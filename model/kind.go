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
	"fmt"
)

// EntityType identifies one of the three kinds of OSM element.
type EntityType int32

const (
	// NODE denotes that the member is a node.
	NODE EntityType = iota

	// WAY denotes that the member is a way.
	WAY

	// RELATION denotes that the member is a relation.
	RELATION
)

// EntityTypes lists every kind in output order.
var EntityTypes = []EntityType{NODE, WAY, RELATION}

// String returns the singular lower case name used in relation member
// columns.
func (t EntityType) String() string {
	switch t {
	case NODE:
		return "node"
	case WAY:
		return "way"
	case RELATION:
		return "relation"
	default:
		return fmt.Sprintf("EntityType(%d)", int32(t))
	}
}

// Plural returns the name used for output directories and file prefixes.
func (t EntityType) Plural() string {
	return t.String() + "s"
}

// ElementCount aggregates per kind counters for progress accounting.
type ElementCount struct {
	Nodes     int64 `json:"nodes"`
	Ways      int64 `json:"ways"`
	Relations int64 `json:"relations"`
}

// Add returns the sum of both counts.
func (c ElementCount) Add(o ElementCount) ElementCount {
	return ElementCount{
		Nodes:     c.Nodes + o.Nodes,
		Ways:      c.Ways + o.Ways,
		Relations: c.Relations + o.Relations,
	}
}

func (c ElementCount) Total() int64 {
	return c.Nodes + c.Ways + c.Relations
}

func (c ElementCount) String() string {
	return fmt.Sprintf("nodes=%d ways=%d relations=%d", c.Nodes, c.Ways, c.Relations)
}
