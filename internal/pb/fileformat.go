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

package pb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// TypeHeader tags a blob holding a HeaderBlock.
	TypeHeader = "OSMHeader"

	// TypeData tags a blob holding a PrimitiveBlock.
	TypeData = "OSMData"
)

// Compression identifies which payload field of a Blob is populated.
type Compression int

const (
	CompressionUnset Compression = iota
	CompressionRaw
	CompressionZlib
	CompressionLzma
	CompressionBzip2
	CompressionLz4
	CompressionZstd
)

var compressionNames = map[Compression]string{
	CompressionUnset: "unset",
	CompressionRaw:   "raw",
	CompressionZlib:  "zlib",
	CompressionLzma:  "lzma",
	CompressionBzip2: "bzip2",
	CompressionLz4:   "lz4",
	CompressionZstd:  "zstd",
}

func (c Compression) String() string {
	if s, ok := compressionNames[c]; ok {
		return s
	}

	return fmt.Sprintf("Compression(%d)", int(c))
}

// field numbers of each payload variant
var compressionFields = map[Compression]protowire.Number{
	CompressionRaw:   1,
	CompressionZlib:  3,
	CompressionLzma:  4,
	CompressionBzip2: 5,
	CompressionLz4:   6,
	CompressionZstd:  7,
}

// BlobHeader precedes every Blob in a PBF stream.
type BlobHeader struct {
	Type      string
	IndexData []byte
	DataSize  int32
}

func (m *BlobHeader) GetType() string {
	if m == nil {
		return ""
	}

	return m.Type
}

func (m *BlobHeader) GetDataSize() int32 {
	if m == nil {
		return 0
	}

	return m.DataSize
}

func (m *BlobHeader) Unmarshal(b []byte) error {
	*m = BlobHeader{}
	r := reader{b: b}

	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			v, err := r.bytes(num, typ)
			if err != nil {
				return err
			}

			m.Type = string(v)
		case 2:
			v, err := r.bytes(num, typ)
			if err != nil {
				return err
			}

			m.IndexData = v
		case 3:
			v, err := r.varint(num, typ)
			if err != nil {
				return err
			}

			m.DataSize = int32(v)
		default:
			if err := r.skip(num, typ); err != nil {
				return err
			}
		}
	}

	return nil
}

func (m *BlobHeader) Marshal() []byte {
	b := appendBytes(nil, 1, []byte(m.Type))
	if len(m.IndexData) > 0 {
		b = appendBytes(b, 2, m.IndexData)
	}

	return appendVarint(b, 3, uint64(int64(m.DataSize)))
}

// Blob is a possibly compressed payload. RawSize is nil when the stream did
// not declare the uncompressed size.
type Blob struct {
	RawSize     *int32
	Compression Compression
	Data        []byte
}

func (m *Blob) GetRawSize() int32 {
	if m == nil || m.RawSize == nil {
		return 0
	}

	return *m.RawSize
}

func (m *Blob) Unmarshal(b []byte) error {
	*m = Blob{}
	r := reader{b: b}

	for r.more() {
		num, typ, err := r.next()
		if err != nil {
			return err
		}

		switch num {
		case 2:
			v, err := r.varint(num, typ)
			if err != nil {
				return err
			}

			size := int32(v)
			m.RawSize = &size
		case 1, 3, 4, 5, 6, 7:
			v, err := r.bytes(num, typ)
			if err != nil {
				return err
			}

			m.Data = v
			m.Compression = compressionOf(num)
		default:
			if err := r.skip(num, typ); err != nil {
				return err
			}
		}
	}

	return nil
}

func (m *Blob) Marshal() []byte {
	var b []byte

	if f, ok := compressionFields[m.Compression]; ok {
		b = appendBytes(b, f, m.Data)
	}

	if m.RawSize != nil {
		b = appendVarint(b, 2, uint64(int64(*m.RawSize)))
	}

	return b
}

func compressionOf(field protowire.Number) Compression {
	for c, f := range compressionFields {
		if f == field {
			return c
		}
	}

	return CompressionUnset
}
