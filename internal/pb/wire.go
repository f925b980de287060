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

// Package pb holds the OSM PBF wire messages and their protobuf encoding.
package pb

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrWireType is returned when a field is encoded with a wire type that
// does not match its declaration.
var ErrWireType = errors.New("unexpected wire type")

// Message is implemented by every wire message in this package.
type Message interface {
	Unmarshal(b []byte) error
	Marshal() []byte
}

type reader struct {
	b []byte
}

func (r *reader) more() bool {
	return len(r.b) > 0
}

func (r *reader) next() (protowire.Number, protowire.Type, error) {
	num, typ, n := protowire.ConsumeTag(r.b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}

	r.b = r.b[n:]

	return num, typ, nil
}

func (r *reader) varint(num protowire.Number, typ protowire.Type) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("field %d: %w", num, ErrWireType)
	}

	v, n := protowire.ConsumeVarint(r.b)
	if n < 0 {
		return 0, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
	}

	r.b = r.b[n:]

	return v, nil
}

func (r *reader) bytes(num protowire.Number, typ protowire.Type) ([]byte, error) {
	if typ != protowire.BytesType {
		return nil, fmt.Errorf("field %d: %w", num, ErrWireType)
	}

	v, n := protowire.ConsumeBytes(r.b)
	if n < 0 {
		return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
	}

	r.b = r.b[n:]

	return v, nil
}

// packed reads a repeated varint field in either packed or unpacked form.
func (r *reader) packed(num protowire.Number, typ protowire.Type, fn func(uint64)) error {
	if typ == protowire.VarintType {
		v, err := r.varint(num, typ)
		if err != nil {
			return err
		}

		fn(v)

		return nil
	}

	b, err := r.bytes(num, typ)
	if err != nil {
		return err
	}

	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}

		fn(v)
		b = b[n:]
	}

	return nil
}

func (r *reader) skip(num protowire.Number, typ protowire.Type) error {
	n := protowire.ConsumeFieldValue(num, typ, r.b)
	if n < 0 {
		return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
	}

	r.b = r.b[n:]

	return nil
}

func sint64(v uint64) int64 {
	return protowire.DecodeZigZag(v)
}

func sint32(v uint64) int32 {
	return int32(protowire.DecodeZigZag(v & 0xFFFFFFFF))
}

func zigzag[T constraints.Signed](v T) uint64 {
	return protowire.EncodeZigZag(int64(v))
}

func plain[T constraints.Integer](v T) uint64 {
	return uint64(v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, v)
}

func appendPacked[T constraints.Integer](b []byte, num protowire.Number, values []T, enc func(T) uint64) []byte {
	if len(values) == 0 {
		return b
	}

	var payload []byte
	for _, v := range values {
		payload = protowire.AppendVarint(payload, enc(v))
	}

	return appendBytes(b, num, payload)
}

func appendMessage(b []byte, num protowire.Number, m Message) []byte {
	return appendBytes(b, num, m.Marshal())
}
