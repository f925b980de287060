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

package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"m4o.io/osmpq/model"
)

func TestInitialBoundingBox(t *testing.T) {
	initial := model.InitialBoundingBox()
	assert.Equal(t, model.MinLat, initial.Top)
	assert.Equal(t, model.MaxLat, initial.Bottom)
	assert.Equal(t, model.MinLon, initial.Right)
	assert.Equal(t, model.MaxLon, initial.Left)
}

func TestBoundingBoxEqualWithin(t *testing.T) {
	london := &model.BoundingBox{Top: 51.69344, Left: -0.511482, Bottom: 51.28554, Right: 0.335437}
	nudged := &model.BoundingBox{
		Top:    london.Top + 1e-8,
		Left:   london.Left + 1e-8,
		Bottom: london.Bottom + 1e-8,
		Right:  london.Right + 1e-8,
	}
	shifted := &model.BoundingBox{
		Top:    london.Top + 1e-6,
		Left:   london.Left + 1e-6,
		Bottom: london.Bottom + 1e-6,
		Right:  london.Right + 1e-6,
	}

	assert.True(t, london.EqualWithin(london, model.E7))
	assert.True(t, london.EqualWithin(nudged, model.E7))
	assert.False(t, london.EqualWithin(shifted, model.E7))
}

func TestBoundingBoxContains(t *testing.T) {
	bbox := &model.BoundingBox{Top: 51.69344, Left: -0.511482, Bottom: 51.28554, Right: 0.335437}

	tests := []struct {
		name     string
		lat      model.Degrees
		lng      model.Degrees
		expected bool
	}{
		{"bottom/left", bbox.Bottom, bbox.Left, true},
		{"top/right", bbox.Top, bbox.Right, true},
		{"west of left", bbox.Bottom, bbox.Left - 1e-5, false},
		{"south of bottom", bbox.Bottom - 1e-5, bbox.Left, false},
		{"east of right", bbox.Top, bbox.Right + 1e-5, false},
		{"inside", bbox.Top - 1e-5, bbox.Right - 1e-5, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, bbox.Contains(tc.lat, tc.lng))
		})
	}
}

func TestBoundingBoxExpandWithLatLng(t *testing.T) {
	bbox := model.InitialBoundingBox()
	bbox.ExpandWithLatLng(-45, 90)
	bbox.ExpandWithLatLng(45, -90)

	assert.True(t, bbox.Contains(-45, 90))
	assert.True(t, bbox.Contains(45, -90))
	assert.True(t, bbox.Contains(0, 0))
	assert.False(t, bbox.Contains(46, 0))
}

func TestBoundingBoxString(t *testing.T) {
	bbox := &model.BoundingBox{Top: 51.69344, Left: -0.511482, Bottom: 51.28554, Right: 0.335437}
	assert.Equal(t, "[(51.69344, -0.511482) (51.28554, 0.335437)]", bbox.String())
}
