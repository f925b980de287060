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

package encoder

import (
	"encoding/binary"
	"fmt"
	"io"

	"m4o.io/osmpq/internal/pb"
)

// WriteFrame writes a length prefixed BlobHeader of type typ followed by
// the encoded blob.
func WriteFrame(w io.Writer, typ string, blob []byte) error {
	hdr := &pb.BlobHeader{
		Type:     typ,
		DataSize: int32(len(blob)),
	}

	hb := hdr.Marshal()

	if err := binary.Write(w, binary.BigEndian, uint32(len(hb))); err != nil {
		return fmt.Errorf("could not write header size: %w", err)
	}

	if _, err := w.Write(hb); err != nil {
		return fmt.Errorf("could not write blob header: %w", err)
	}

	if _, err := w.Write(blob); err != nil {
		return fmt.Errorf("could not write blob data: %w", err)
	}

	return nil
}

// writeBlob packs msg and writes it as a frame of type typ.
func writeBlob(w io.Writer, typ string, msg pb.Message, c BlobCompression) error {
	bb, err := Pack(msg, c)
	if err != nil {
		return fmt.Errorf("could not marshal blob data: %w", err)
	}

	return WriteFrame(w, typ, bb)
}
