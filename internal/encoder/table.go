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
	"slices"
)

// Strings collects the distinct strings of a block before their indexes are
// fixed.
type Strings struct {
	set map[string]struct{}
}

// Table is a sorted string table. Index 0 always holds the empty string,
// which dense nodes use as the tag separator and info uses for no user.
type Table struct {
	index   map[string]int32
	strings []string
}

func NewStrings() *Strings {
	return &Strings{set: make(map[string]struct{})}
}

func (s *Strings) Add(value string) {
	s.set[value] = struct{}{}
}

func (s *Strings) CalcTable() *Table {
	strings := make([]string, 0, len(s.set)+1)
	strings = append(strings, "")

	for k := range s.set {
		if k != "" {
			strings = append(strings, k)
		}
	}

	slices.Sort(strings[1:])

	index := make(map[string]int32, len(strings))
	for i, k := range strings {
		index[k] = int32(i)
	}

	return &Table{index: index, strings: strings}
}

// IndexOf returns the position of value. Values never added map to 0.
func (t *Table) IndexOf(value string) int32 {
	return t.index[value]
}

// AsBytes returns the table in wire form.
func (t *Table) AsBytes() [][]byte {
	b := make([][]byte, len(t.strings))
	for i, s := range t.strings {
		b[i] = []byte(s)
	}

	return b
}
