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
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmpq/model"
)

func TestHeaderJSON(t *testing.T) {
	ts, _ := time.Parse(time.RFC3339, "2024-10-28T14:21:30Z")
	h := model.Header{
		BoundingBox: &model.BoundingBox{
			Top:    51.69344,
			Left:   -0.511482,
			Bottom: 51.28554,
			Right:  0.335437,
		},
		RequiredFeatures:                 []string{"OsmSchema-V0.6", "DenseNodes"},
		WritingProgram:                   "osmium/1.14.0",
		OsmosisReplicationTimestamp:      ts,
		OsmosisReplicationSequenceNumber: 4221,
	}

	b, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"bounding_box":{"top":51.69344,"left":-0.511482,"bottom":51.28554,"right":0.335437},
		"required_features":["OsmSchema-V0.6","DenseNodes"],
		"writing_program":"osmium/1.14.0",
		"osmosis_replication_timestamp":"2024-10-28T14:21:30Z",
		"osmosis_replication_sequence_number":4221
	}`, string(b))
}

func TestHeaderUnsupportedFeatures(t *testing.T) {
	h := model.Header{RequiredFeatures: []string{"OsmSchema-V0.6", "DenseNodes", "LocationsOnWays"}}
	assert.Equal(t, []string{"LocationsOnWays"}, h.UnsupportedFeatures())

	h.RequiredFeatures = []string{"OsmSchema-V0.6", "HistoricalInformation"}
	assert.Empty(t, h.UnsupportedFeatures())
}
