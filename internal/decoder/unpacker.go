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

package decoder

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz/lzma"

	"m4o.io/osmpq/internal/core"
	"m4o.io/osmpq/internal/pb"
)

// unpack uncompresses the blob into buf and returns the payload. The result
// aliases buf for compressed blobs and the blob itself for raw ones.
//
// This method is not "buried" within the frame reader so that decompression
// of blobs can be performed concurrently.
func unpack(buf *core.PooledBuffer, blob *pb.Blob) ([]byte, error) {
	var factory func(data []byte) (io.ReadCloser, error)

	switch blob.Compression {
	case pb.CompressionRaw:
		return blob.Data, nil
	case pb.CompressionZlib:
		factory = func(data []byte) (io.ReadCloser, error) {
			return zlib.NewReader(bytes.NewReader(data))
		}
	case pb.CompressionLzma:
		factory = func(data []byte) (io.ReadCloser, error) {
			r, err := lzma.NewReader2(bytes.NewReader(data))
			if err != nil {
				return nil, err
			}

			return io.NopCloser(r), nil
		}
	case pb.CompressionLz4:
		factory = func(data []byte) (io.ReadCloser, error) {
			return io.NopCloser(lz4.NewReader(bytes.NewReader(data))), nil
		}
	case pb.CompressionZstd:
		factory = func(data []byte) (io.ReadCloser, error) {
			d, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
			if err != nil {
				return nil, err
			}

			return d.IOReadCloser(), nil
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, blob.Compression)
	}

	if blob.RawSize == nil {
		return nil, fmt.Errorf("%w: %s blob", ErrMissingRawSize, blob.Compression)
	}

	rawSize := int(blob.GetRawSize())
	if rawSize < 0 || rawSize > MaxBlobSize {
		return nil, fmt.Errorf("%w: raw size %d", ErrMalformedFrame, rawSize)
	}

	buf.Reset()
	buf.Grow(rawSize + bytes.MinRead)

	rdr, err := factory(blob.Data)
	if err != nil {
		return nil, fmt.Errorf("unpacker factory error: %w", err)
	}
	defer rdr.Close()

	// read one byte past the declared size so overlong payloads are caught
	if _, err := buf.ReadFrom(io.LimitReader(rdr, int64(rawSize)+1)); err != nil {
		return nil, fmt.Errorf("unpacker read error: %w", err)
	}

	if buf.Len() != rawSize {
		return nil, fmt.Errorf("%w: got %d bytes but expected %d", ErrRawSizeMismatch, buf.Len(), rawSize)
	}

	return buf.Bytes(), nil
}
