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
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"

	"m4o.io/osmpq/internal/core"
	"m4o.io/osmpq/internal/pb"
)

const (
	// MaxBlobHeaderSize is the largest BlobHeader a conforming writer emits.
	MaxBlobHeaderSize = 64 * 1024

	// MaxBlobSize is the largest Blob a conforming writer emits.
	MaxBlobSize = 32 * 1024 * 1024
)

// Frame is one (BlobHeader, Blob) pair read off the stream.
type Frame struct {
	// Seq is the zero based position of the frame in the stream.
	Seq    int64
	Header *pb.BlobHeader
	Blob   *pb.Blob

	// Size is the number of stream bytes the frame occupied.
	Size int64
}

// GenerateBlobReader creates an iterator over the frames read off of the
// reader. A clean end of stream on a frame boundary ends the sequence; any
// other failure is yielded once as the final element.
func GenerateBlobReader(ctx context.Context, reader io.Reader) iter.Seq2[*Frame, error] {
	return func(yield func(*Frame, error) bool) {
		var seq int64

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)

				return
			}

			f, err := readFrame(reader)
			if errors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				yield(nil, fmt.Errorf("blob %d: %w", seq, err))

				return
			}

			f.Seq = seq
			seq++

			if !yield(f, nil) {
				return
			}
		}
	}
}

// readFrame reads a length prefixed BlobHeader and the Blob that follows it.
// It returns io.EOF only when the stream ends before the length prefix.
func readFrame(rdr io.Reader) (*Frame, error) {
	var size uint32

	if err := binary.Read(rdr, binary.BigEndian, &size); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("error reading blob header size: %w", ErrTruncated)
		}

		return nil, err
	}

	if size == 0 || size > MaxBlobHeaderSize {
		return nil, fmt.Errorf("%w: blob header size %d", ErrMalformedFrame, size)
	}

	h, err := readBlobHeader(rdr, size)
	if err != nil {
		return nil, err
	}

	datasize := h.GetDataSize()
	if datasize < 0 || datasize > MaxBlobSize {
		return nil, fmt.Errorf("%w: blob size %d", ErrMalformedFrame, datasize)
	}

	b, err := readBlobData(rdr, datasize)
	if err != nil {
		return nil, err
	}

	return &Frame{
		Header: h,
		Blob:   b,
		Size:   4 + int64(size) + int64(datasize),
	}, nil
}

// readBlobHeader unmarshals a header from size protobuf encoded bytes.
func readBlobHeader(rdr io.Reader, size uint32) (*pb.BlobHeader, error) {
	buf := core.NewPooledBuffer()
	defer buf.Close()

	if _, err := io.CopyN(buf, rdr, int64(size)); err != nil {
		return nil, fmt.Errorf("error reading blob header: %w", truncated(err))
	}

	header := &pb.BlobHeader{}

	if err := header.Unmarshal(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: error unmarshalling blob header: %w", ErrMalformedFrame, err)
	}

	// the header's index data aliases the pooled buffer
	header.IndexData = nil

	return header, nil
}

// readBlobData unmarshals a blob. The blob still needs to be decompressed
// and decoded into OSM elements, which happens on another goroutine, so its
// payload owns a fresh buffer.
func readBlobData(rdr io.Reader, size int32) (*pb.Blob, error) {
	buf := make([]byte, size)

	if _, err := io.ReadFull(rdr, buf); err != nil {
		return nil, fmt.Errorf("error reading blob: %w", truncated(err))
	}

	blob := &pb.Blob{}

	if err := blob.Unmarshal(buf); err != nil {
		return nil, fmt.Errorf("%w: error unmarshalling blob: %w", ErrMalformedFrame, err)
	}

	return blob, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}

	return err
}
