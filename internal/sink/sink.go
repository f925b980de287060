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

// Package sink persists finished Parquet files.
package sink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"m4o.io/osmpq/model"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported output scheme")
	ErrNotEmpty          = errors.New("output directory is not empty")
)

// Sink accepts finished files of each element kind. Worker is the index of
// the write stage worker handing over the file and is part of its name.
type Sink interface {
	WriteNodes(ctx context.Context, worker int, data []byte) error
	WriteWays(ctx context.Context, worker int, data []byte) error
	WriteRelations(ctx context.Context, worker int, data []byte) error
	Close() error
}

// Write hands data to the method of s matching kind.
func Write(ctx context.Context, s Sink, kind model.EntityType, worker int, data []byte) error {
	switch kind {
	case model.NODE:
		return s.WriteNodes(ctx, worker, data)
	case model.WAY:
		return s.WriteWays(ctx, worker, data)
	default:
		return s.WriteRelations(ctx, worker, data)
	}
}

// Namer hands out unique file names. Indices start at 1 and are counted per
// kind across all workers.
type Namer struct {
	next [3]atomic.Int64
}

// Next returns the name of the next file of kind written by worker, relative
// to the output root.
func (n *Namer) Next(kind model.EntityType, worker int) string {
	idx := n.next[kind].Add(1)
	dir := kind.Plural()

	return fmt.Sprintf("%s/%s_%02d_%06d.parquet", dir, dir, worker, idx)
}

type putFunc func(ctx context.Context, name string, data []byte) error

// named implements the kind methods of Sink on top of a single put.
type named struct {
	namer *Namer
	put   putFunc
}

func (n named) WriteNodes(ctx context.Context, worker int, data []byte) error {
	return n.write(ctx, model.NODE, worker, data)
}

func (n named) WriteWays(ctx context.Context, worker int, data []byte) error {
	return n.write(ctx, model.WAY, worker, data)
}

func (n named) WriteRelations(ctx context.Context, worker int, data []byte) error {
	return n.write(ctx, model.RELATION, worker, data)
}

func (n named) write(ctx context.Context, kind model.EntityType, worker int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := n.namer.Next(kind, worker)
	if err := n.put(ctx, name, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return nil
}

// Options configures Open.
type Options struct {
	// Overwrite allows clearing a non-empty local output directory.
	Overwrite bool

	// CredentialsFile is used by the gs scheme when set.
	CredentialsFile string
}

// Open selects a sink by the scheme of target: s3://bucket/prefix,
// gs://bucket/prefix, or a local path. Local outputs are prepared before
// returning.
func Open(ctx context.Context, target string, opts Options) (Sink, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		l := NewLocal(target)
		if err := l.Prepare(opts.Overwrite); err != nil {
			return nil, err
		}

		return l, nil
	}

	prefix := strings.Trim(u.Path, "/")

	switch u.Scheme {
	case "file":
		l := NewLocal(u.Path)
		if err := l.Prepare(opts.Overwrite); err != nil {
			return nil, err
		}

		return l, nil
	case "s3":
		return NewS3(ctx, u.Host, prefix)
	case "gs":
		return NewGCS(ctx, u.Host, prefix, opts.CredentialsFile)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
	}
}
