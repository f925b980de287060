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
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedCompression is returned for blobs whose payload variant
	// is unset or not one of raw, zlib, lz4, lzma and zstd.
	ErrUnsupportedCompression = errors.New("unsupported compression")

	// ErrMissingRawSize is returned for compressed blobs that do not declare
	// their uncompressed size.
	ErrMissingRawSize = errors.New("compressed blob missing raw size")

	// ErrRawSizeMismatch is returned when a blob decompresses to a different
	// length than it declared.
	ErrRawSizeMismatch = errors.New("decompressed size does not match raw size")

	// ErrUnknownBlobType is returned for blob headers that are neither
	// OSMHeader nor OSMData.
	ErrUnknownBlobType = errors.New("unknown blob type")

	// ErrTruncated is returned when the stream ends inside a frame.
	ErrTruncated = errors.New("truncated blob frame")

	// ErrMalformedFrame is returned when a frame declares an impossible size
	// or its header cannot be decoded.
	ErrMalformedFrame = errors.New("malformed blob frame")

	// ErrMalformedBlock is returned when a block's parallel arrays disagree
	// or reference strings outside the string table.
	ErrMalformedBlock = errors.New("malformed primitive block")

	// ErrUnknownMemberType is returned for relation members whose type code
	// is not node, way or relation.
	ErrUnknownMemberType = errors.New("unknown relation member type")
)

// BlobError ties a decode failure to the position of the blob in the stream.
type BlobError struct {
	Seq int64
	Err error
}

func (e *BlobError) Error() string {
	return fmt.Sprintf("blob %d: %v", e.Seq, e.Err)
}

func (e *BlobError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedBlock, fmt.Sprintf(format, args...))
}
