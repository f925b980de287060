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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmpq/internal/core"
	"m4o.io/osmpq/internal/encoder"
	"m4o.io/osmpq/internal/pb"
)

func payload(n int) []byte {
	rnd := rand.New(rand.NewSource(int64(n)))
	b := make([]byte, n)

	// half random, half repetitive so every codec has something to squeeze
	rnd.Read(b[:n/2])

	for i := n / 2; i < n; i++ {
		b[i] = byte(i % 7)
	}

	return b
}

func TestUnpackRoundTrip(t *testing.T) {
	for _, c := range encoder.Compressions {
		for _, size := range []int{0, 1, 4096, 1 << 20} {
			t.Run(c.String(), func(t *testing.T) {
				raw := payload(size)

				blob, err := encoder.PackBlob(raw, c)
				require.NoError(t, err)

				buf := core.NewPooledBuffer()
				defer buf.Close()

				got, err := unpack(buf, blob)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(raw, got))
			})
		}
	}
}

func TestUnpackErrors(t *testing.T) {
	size := int32(3)
	zlibbed, err := encoder.PackBlob([]byte("abc"), encoder.ZLIB)
	require.NoError(t, err)

	tests := []struct {
		name     string
		blob     *pb.Blob
		expected error
	}{
		{"unset", &pb.Blob{RawSize: &size}, ErrUnsupportedCompression},
		{"bzip2", &pb.Blob{RawSize: &size, Compression: pb.CompressionBzip2, Data: []byte("x")}, ErrUnsupportedCompression},
		{"missing raw size", &pb.Blob{Compression: pb.CompressionZlib, Data: zlibbed.Data}, ErrMissingRawSize},
		{"short", &pb.Blob{RawSize: ptr(int32(4)), Compression: pb.CompressionZlib, Data: zlibbed.Data}, ErrRawSizeMismatch},
		{"long", &pb.Blob{RawSize: ptr(int32(2)), Compression: pb.CompressionZlib, Data: zlibbed.Data}, ErrRawSizeMismatch},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := core.NewPooledBuffer()
			defer buf.Close()

			_, err := unpack(buf, tc.blob)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestUnpackCorrupt(t *testing.T) {
	for _, c := range []pb.Compression{pb.CompressionZlib, pb.CompressionLzma, pb.CompressionLz4, pb.CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			buf := core.NewPooledBuffer()
			defer buf.Close()

			_, err := unpack(buf, &pb.Blob{RawSize: ptr(int32(16)), Compression: c, Data: []byte("definitely not compressed")})
			assert.Error(t, err)
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
