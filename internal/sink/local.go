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

package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"m4o.io/osmpq/model"
)

// Local writes files below a root directory.
type Local struct {
	named
	root string
}

var _ Sink = (*Local)(nil)

func NewLocal(root string) *Local {
	l := &Local{root: root}
	l.named = named{namer: &Namer{}, put: l.put}

	return l
}

func (l *Local) Root() string {
	return l.root
}

// Prepare creates an empty directory per element kind below the root.
// Existing files are removed only when overwrite is set.
func (l *Local) Prepare(overwrite bool) error {
	for _, kind := range model.EntityTypes {
		dir := filepath.Join(l.root, kind.Plural())

		entries, err := os.ReadDir(dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", dir, err)
		}

		if len(entries) > 0 {
			if !overwrite {
				return fmt.Errorf("%w: %s", ErrNotEmpty, dir)
			}

			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("failed to clear %s: %w", dir, err)
			}
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	return nil
}

func (l *Local) put(_ context.Context, name string, data []byte) error {
	path := filepath.Join(l.root, filepath.FromSlash(name))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func (l *Local) Close() error {
	return nil
}
