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

package info

import (
	"bytes"
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmpq/internal/encoder"
	"m4o.io/osmpq/model"
)

var (
	bbox = model.BoundingBox{Left: -0.511482, Right: 0.335437, Top: 51.69344, Bottom: 51.28554}
	ts   = time.Date(2014, 3, 24, 21, 55, 2, 0, time.UTC)
)

func header() model.Header {
	b := bbox

	return model.Header{
		BoundingBox:                 &b,
		RequiredFeatures:            []string{"OsmSchema-V0.6", "DenseNodes"},
		WritingProgram:              "osmpq-test",
		OsmosisReplicationTimestamp: ts,
	}
}

func fixture(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer

	require.NoError(t, encoder.SaveHeader(&buf, header(), encoder.ZLIB))

	for i := 0; i < 3; i++ {
		base := model.ID(i * 10)
		e := &model.Elements{
			Nodes: []model.Node{{ID: base + 1, Lat: 51.5, Lon: -0.1}, {ID: base + 2, Lat: 51.6, Lon: -0.2}},
			Ways:  []model.Way{{ID: base + 3, NodeIDs: []model.ID{base + 1, base + 2}}},
		}
		require.NoError(t, encoder.SaveBlock(&buf, e, true, encoder.ZSTD))
	}

	e := &model.Elements{
		Relations: []model.Relation{{ID: 99, Members: []model.Member{{ID: 3, Type: model.WAY}}}},
	}
	require.NoError(t, encoder.SaveBlock(&buf, e, false, encoder.RAW))

	return buf.Bytes()
}

func TestRunInfo(t *testing.T) {
	data := fixture(t)

	info, err := runInfo(context.Background(), bytes.NewReader(data), 2, false)
	require.NoError(t, err)

	require.NotNil(t, info.BoundingBox)
	assert.True(t, info.BoundingBox.EqualWithin(&bbox, model.E7))
	assert.Equal(t, []string{"OsmSchema-V0.6", "DenseNodes"}, info.RequiredFeatures)
	assert.Equal(t, "osmpq-test", info.WritingProgram)
	assert.Equal(t, ts, info.OsmosisReplicationTimestamp.UTC())
	assert.Zero(t, info.NodeCount)

	info, err = runInfo(context.Background(), bytes.NewReader(data), 2, true)
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.NodeCount)
	assert.Equal(t, int64(3), info.WayCount)
	assert.Equal(t, int64(1), info.RelationCount)

	require.NotNil(t, info.Extent)
	assert.True(t, info.Extent.EqualWithin(&model.BoundingBox{Top: 51.6, Left: -0.2, Bottom: 51.5, Right: -0.1}, model.E7))
	assert.Zero(t, info.NodesOutside)
	assert.False(t, info.ExtentMatches())
}

func TestRunInfoExtent(t *testing.T) {
	stream := func(blocks ...*model.Elements) []byte {
		var buf bytes.Buffer

		require.NoError(t, encoder.SaveHeader(&buf, header(), encoder.ZLIB))

		for _, e := range blocks {
			require.NoError(t, encoder.SaveBlock(&buf, e, true, encoder.ZLIB))
		}

		return buf.Bytes()
	}

	corners := &model.Elements{
		Nodes: []model.Node{
			{ID: 1, Lat: bbox.Top, Lon: bbox.Left},
			{ID: 2, Lat: bbox.Bottom, Lon: bbox.Right},
		},
	}
	paris := &model.Elements{Nodes: []model.Node{{ID: 3, Lat: 48.8566, Lon: 2.3522}}}

	info, err := runInfo(context.Background(), bytes.NewReader(stream(corners)), 2, true)
	require.NoError(t, err)
	assert.Zero(t, info.NodesOutside)
	assert.True(t, info.ExtentMatches())

	info, err = runInfo(context.Background(), bytes.NewReader(stream(corners, paris)), 2, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.NodesOutside)
	assert.False(t, info.ExtentMatches())
	assert.True(t, info.Extent.EqualWithin(&model.BoundingBox{Top: bbox.Top, Left: bbox.Left, Bottom: 48.8566, Right: 2.3522}, model.E7))
}

func TestRunInfoTruncated(t *testing.T) {
	data := fixture(t)

	_, err := runInfo(context.Background(), bytes.NewReader(data[:len(data)-1]), 2, true)
	assert.Error(t, err)

	_, err = runInfo(context.Background(), bytes.NewReader(nil), 2, false)
	assert.Error(t, err)
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()

	buf := new(bytes.Buffer)
	saved := out
	out = buf

	t.Cleanup(func() { out = saved })

	return buf
}

func TestRenderJSON(t *testing.T) {
	buf := capture(t)

	eh := &extendedHeader{Header: header(), NodeCount: 2729006, WayCount: 459055, RelationCount: 12833}
	require.NoError(t, renderJSON(eh, true))

	info := &extendedHeader{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), info))

	assert.True(t, info.BoundingBox.EqualWithin(&bbox, model.E7))
	assert.Equal(t, "osmpq-test", info.WritingProgram)
	assert.Equal(t, ts, info.OsmosisReplicationTimestamp.UTC())
	assert.Equal(t, int64(2729006), info.NodeCount)
	assert.Equal(t, int64(459055), info.WayCount)
	assert.Equal(t, int64(12833), info.RelationCount)

	buf.Reset()
	require.NoError(t, renderJSON(eh, false))
	assert.NotContains(t, buf.String(), "node_count")
}

func TestRenderText(t *testing.T) {
	buf := capture(t)

	h := header()
	h.OptionalFeatures = []string{"Sort.Type_then_ID"}
	h.RequiredFeatures = append(h.RequiredFeatures, "LocationsOnWays")
	h.Source = "pbf"
	h.OsmosisReplicationBaseURL = "https://planet.openstreetmap.org/replication/minute"

	renderTxt(&extendedHeader{Header: h, NodeCount: 2729006, WayCount: 459055, RelationCount: 12833}, true)

	assert.Equal(t, `BoundingBox: [(51.69344, -0.511482) (51.28554, 0.335437)]
RequiredFeatures: OsmSchema-V0.6, DenseNodes, LocationsOnWays
OptionalFeatures: Sort.Type_then_ID
WritingProgram: osmpq-test
Source: pbf
OsmosisReplicationTimestamp: 2014-03-24T21:55:02Z
OsmosisReplicationSequenceNumber: 0
OsmosisReplicationBaseURL: https://planet.openstreetmap.org/replication/minute
UnsupportedFeatures: LocationsOnWays
NodeCount: 2,729,006
WayCount: 459,055
RelationCount: 12,833
`, buf.String())

	buf.Reset()

	extent := bbox
	renderTxt(&extendedHeader{Header: header(), NodeCount: 2, Extent: &extent}, true)
	assert.Contains(t, buf.String(), "Extent: [(51.69344, -0.511482) (51.28554, 0.335437)]\n")
	assert.Contains(t, buf.String(), "ExtentMatchesBoundingBox: true\n")
	assert.Contains(t, buf.String(), "NodesOutsideBoundingBox: 0\n")
}
