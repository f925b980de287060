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
	"fmt"

	"m4o.io/osmpq/internal/core"
	"m4o.io/osmpq/internal/pb"
	"m4o.io/osmpq/model"
)

// Block is a decoded frame. Exactly one of Header and Elements is set.
type Block struct {
	Seq      int64
	Header   *model.Header
	Elements *model.Elements
}

// Decode decompresses a frame and decodes its payload according to the
// blob type. Errors are wrapped in a *BlobError.
func Decode(f *Frame) (*Block, error) {
	blk, err := decode(f)
	if err != nil {
		return nil, &BlobError{Seq: f.Seq, Err: err}
	}

	return blk, nil
}

func decode(f *Frame) (*Block, error) {
	t := f.Header.GetType()
	if t != pb.TypeHeader && t != pb.TypeData {
		return nil, fmt.Errorf("%w %q", ErrUnknownBlobType, t)
	}

	buf := core.NewPooledBuffer()
	defer buf.Close()

	data, err := unpack(buf, f.Blob)
	if err != nil {
		return nil, err
	}

	blk := &Block{Seq: f.Seq}

	if t == pb.TypeHeader {
		blk.Header, err = parseHeaderBlock(data)
	} else {
		blk.Elements, err = parsePrimitiveBlock(data)
	}

	if err != nil {
		return nil, err
	}

	return blk, nil
}
