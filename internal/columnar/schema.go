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

// Package columnar maps decoded OSM entities onto Arrow record batches.
package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"

	"m4o.io/osmpq/model"
)

// column positions shared by every schema
const (
	colID = iota
	colVersion
	colTags
)

// Schemas holds the immutable output schemas. Build it once with
// NewSchemas and share it between workers.
type Schemas struct {
	Nodes     *arrow.Schema
	Ways      *arrow.Schema
	Relations *arrow.Schema
}

func NewSchemas() *Schemas {
	return &Schemas{
		Nodes: schema(
			arrow.Field{Name: "latitude", Type: arrow.PrimitiveTypes.Float64},
			arrow.Field{Name: "longitude", Type: arrow.PrimitiveTypes.Float64},
		),
		Ways: schema(
			arrow.Field{Name: "nodes", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64)},
		),
		Relations: schema(
			arrow.Field{Name: "members", Type: arrow.ListOf(MemberType), Nullable: true},
		),
	}
}

// For returns the schema of the kind.
func (s *Schemas) For(t model.EntityType) *arrow.Schema {
	switch t {
	case model.NODE:
		return s.Nodes
	case model.WAY:
		return s.Ways
	default:
		return s.Relations
	}
}

// TagsType is a map of string keys to nullable string values.
var TagsType = arrow.MapOf(arrow.BinaryTypes.String, arrow.BinaryTypes.String)

// MemberType is the element type of the relation members list.
var MemberType = arrow.StructOf(
	arrow.Field{Name: "role", Type: arrow.BinaryTypes.String},
	arrow.Field{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	arrow.Field{Name: "type", Type: arrow.BinaryTypes.String},
)

// schema lays out id, version and tags, then the kind specific columns, then
// the authorship columns.
func schema(specific ...arrow.Field) *arrow.Schema {
	fields := []arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "version", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "tags", Type: TagsType, Nullable: true},
	}

	fields = append(fields, specific...)
	fields = append(fields,
		arrow.Field{Name: "timestamp", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		arrow.Field{Name: "changeset", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		arrow.Field{Name: "uid", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		arrow.Field{Name: "user_sid", Type: arrow.BinaryTypes.String, Nullable: true},
	)

	return arrow.NewSchema(fields, nil)
}
