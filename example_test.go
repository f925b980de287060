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

package osmpq_test

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"

	"m4o.io/osmpq"
	"m4o.io/osmpq/internal/encoder"
	"m4o.io/osmpq/internal/sink"
	"m4o.io/osmpq/model"
)

func Example() {
	var in bytes.Buffer

	if err := encoder.SaveHeader(&in, model.Header{WritingProgram: "example"}, encoder.ZLIB); err != nil {
		log.Fatal(err)
	}

	e := &model.Elements{
		Nodes: []model.Node{
			{ID: 1, Lat: 51.5007, Lon: -0.1246, Tags: map[string]string{"name": "Big Ben"}},
			{ID: 2, Lat: 51.5014, Lon: -0.1419},
		},
		Ways: []model.Way{{ID: 3, NodeIDs: []model.ID{1, 2}}},
	}
	if err := encoder.SaveBlock(&in, e, true, encoder.ZLIB); err != nil {
		log.Fatal(err)
	}

	root, err := os.MkdirTemp("", "osmpq-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(root)

	out := sink.NewLocal(root)
	if err := out.Prepare(false); err != nil {
		log.Fatal(err)
	}

	stats, err := osmpq.Convert(context.Background(), &in, out, osmpq.WithDecoders(2))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Nodes: %d, Ways: %d, Relations: %d\n", stats.Rows.Nodes, stats.Rows.Ways, stats.Rows.Relations)
	fmt.Printf("Files: %s\n", stats.Files)
	// Output:
	// Nodes: 2, Ways: 1, Relations: 0
	// Files: nodes=1 ways=1 relations=0
}
