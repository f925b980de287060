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
	"errors"
	"fmt"
	"io"
	"time"

	"m4o.io/osmpq/internal/pb"
	"m4o.io/osmpq/model"
)

// LoadHeader reads the first frame of reader, which must be an OSMHeader
// blob, and decodes it.
func LoadHeader(reader io.Reader) (model.Header, error) {
	f, err := readFrame(reader)
	if errors.Is(err, io.EOF) {
		return model.Header{}, fmt.Errorf("empty stream: %w", ErrTruncated)
	} else if err != nil {
		return model.Header{}, err
	}

	blk, err := Decode(f)
	if err != nil {
		return model.Header{}, err
	}

	if blk.Header == nil {
		return model.Header{}, fmt.Errorf("%w: expected %s but got %s", ErrUnknownBlobType, pb.TypeHeader, f.Header.GetType())
	}

	return *blk.Header, nil
}

func parseHeaderBlock(buf []byte) (*model.Header, error) {
	hb := &pb.HeaderBlock{}
	if err := hb.Unmarshal(buf); err != nil {
		return nil, fmt.Errorf("%w: unable to unmarshal header block: %w", ErrMalformedBlock, err)
	}

	h := &model.Header{
		RequiredFeatures:                 hb.RequiredFeatures,
		OptionalFeatures:                 hb.OptionalFeatures,
		WritingProgram:                   hb.WritingProgram,
		Source:                           hb.Source,
		OsmosisReplicationSequenceNumber: hb.OsmosisReplicationSequenceNumber,
		OsmosisReplicationBaseURL:        hb.OsmosisReplicationBaseURL,
	}

	if hb.OsmosisReplicationTimestamp != 0 {
		h.OsmosisReplicationTimestamp = time.Unix(hb.OsmosisReplicationTimestamp, 0).UTC()
	}

	if bb := hb.BBox; bb != nil {
		h.BoundingBox = &model.BoundingBox{
			Top:    model.ToDegrees(0, 1, bb.Top),
			Left:   model.ToDegrees(0, 1, bb.Left),
			Bottom: model.ToDegrees(0, 1, bb.Bottom),
			Right:  model.ToDegrees(0, 1, bb.Right),
		}
	}

	return h, nil
}
