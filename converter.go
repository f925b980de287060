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

// Package osmpq converts OpenStreetMap PBF streams into Parquet files, one
// directory per element kind.
//
// The conversion runs as four stages connected by bounded queues: a single
// reader frames blobs off the stream, a pool of decoders decompresses and
// decodes them, a pool of encoders batches elements into records and
// encodes them into rotating Parquet files, and a pool of writers hands the
// finished files to a sink. The first fatal error cancels every stage.
package osmpq

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"m4o.io/osmpq/internal/columnar"
	"m4o.io/osmpq/internal/decoder"
	"m4o.io/osmpq/internal/progress"
	"m4o.io/osmpq/internal/sink"
	"m4o.io/osmpq/internal/writer"
	"m4o.io/osmpq/model"
)

// Converter converts PBF streams into Parquet files.
type Converter struct {
	opts    converterOptions
	schemas *columnar.Schemas
}

// NewConverter returns a converter configured with opts.
func NewConverter(opts ...Option) *Converter {
	cfg := defaultConverterOptions()

	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.normalize()

	return &Converter{opts: cfg, schemas: columnar.NewSchemas()}
}

// Convert is shorthand for NewConverter(opts...).Convert(ctx, r, s).
func Convert(ctx context.Context, r io.Reader, s sink.Sink, opts ...Option) (*Stats, error) {
	return NewConverter(opts...).Convert(ctx, r, s)
}

// Convert reads the PBF stream r to its end and writes every element to s.
// The returned Stats are valid even when an error is returned.
func (c *Converter) Convert(ctx context.Context, r io.Reader, s sink.Sink) (*Stats, error) {
	start := time.Now()
	t := &tally{}
	log := c.opts.logger

	defer c.opts.progress.Finish()

	g, ctx := errgroup.WithContext(ctx)

	frames := make(chan *decoder.Frame, c.opts.queueSize)
	blocks := make(chan *model.Elements, c.opts.queueSize)
	files := make(chan writer.File, c.opts.fileQueueSize())

	g.Go(func() error {
		defer close(frames)

		return c.read(ctx, c.opts.reader(r), frames, t)
	})

	pool(g, c.opts.decoders, func(int) error {
		for f := range frames {
			if err := c.decode(ctx, f, blocks, t); err != nil {
				return err
			}
		}

		return nil
	}, func() { close(blocks) })

	pool(g, c.opts.encoders, func(int) error {
		return c.encode(ctx, blocks, files)
	}, func() { close(files) })

	pool(g, c.opts.writers, func(worker int) error {
		return c.write(ctx, worker, files, s, t)
	}, nil)

	err := g.Wait()
	stats := t.stats(time.Since(start))

	if err != nil {
		log.Error("conversion failed", zap.Error(err))

		return stats, err
	}

	log.Info("conversion finished",
		zap.Int64("blobs", stats.Blobs),
		zap.Int64("skipped", stats.SkippedBlobs),
		zap.Int64("input", stats.InputBytes),
		zap.Stringer("elements", stats.Elements),
		zap.Stringer("files", stats.Files),
		zap.Int64("bytes", stats.Bytes),
		zap.Duration("elapsed", stats.Elapsed))

	return stats, nil
}

// pool runs n workers in g and calls done, when not nil, once all of them
// have returned. Closing a stage's output in done guarantees no worker is
// still sending on it.
func pool(g *errgroup.Group, n int, work func(worker int) error, done func()) {
	var wg sync.WaitGroup

	wg.Add(n)

	for i := range n {
		g.Go(func() error {
			defer wg.Done()

			return work(i)
		})
	}

	if done != nil {
		g.Go(func() error {
			wg.Wait()
			done()

			return nil
		})
	}
}

// send blocks until v is queued or ctx is done.
func send[T any](ctx context.Context, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Converter) read(ctx context.Context, r io.Reader, out chan<- *decoder.Frame, t *tally) error {
	for f, err := range decoder.GenerateBlobReader(ctx, r) {
		if err != nil {
			return err
		}

		t.blobs.Add(1)
		t.input.Add(f.Size)
		c.opts.progress.Inc(progress.Blobs, 1)

		if err := send(ctx, out, f); err != nil {
			return err
		}
	}

	return nil
}

func (c *Converter) decode(ctx context.Context, f *decoder.Frame, out chan<- *model.Elements, t *tally) error {
	blk, err := decoder.Decode(f)
	if err != nil {
		if !c.opts.skipCorrupt {
			return err
		}

		t.skipped.Add(1)
		c.opts.logger.Warn("skipping blob", zap.Int64("seq", f.Seq), zap.Error(err))

		return nil
	}

	if blk.Header != nil {
		c.header(blk.Header, t)

		return nil
	}

	counts := blk.Elements.Count()
	t.addElements(counts)

	c.opts.progress.Inc(progress.Nodes, counts.Nodes)
	c.opts.progress.Inc(progress.Ways, counts.Ways)
	c.opts.progress.Inc(progress.Relations, counts.Relations)

	if blk.Elements.Empty() {
		return nil
	}

	return send(ctx, out, blk.Elements)
}

func (c *Converter) header(h *model.Header, t *tally) {
	if !t.setHeader(h) {
		c.opts.logger.Warn("ignoring additional header block")

		return
	}

	fields := []zap.Field{
		zap.Strings("required", h.RequiredFeatures),
		zap.Strings("optional", h.OptionalFeatures),
		zap.String("program", h.WritingProgram),
		zap.String("source", h.Source),
	}

	if h.BoundingBox != nil {
		fields = append(fields, zap.Stringer("bbox", h.BoundingBox))
	}

	c.opts.logger.Info("header", fields...)

	if unsupported := h.UnsupportedFeatures(); len(unsupported) > 0 {
		c.opts.logger.Warn("unsupported required features", zap.Strings("features", unsupported))
	}
}

// encode batches elements into records and records into files. Each
// worker owns one rotating file per kind, flushed when its input closes.
func (c *Converter) encode(ctx context.Context, in <-chan *model.Elements, out chan<- writer.File) error {
	batchers := columnar.NewBatchers(c.opts.writer.Allocator, c.schemas, c.opts.batchSize)
	defer batchers.Release()

	set := writer.NewSet(c.newStreamWriter)
	defer set.Close()

	emit := func(kind model.EntityType, rec arrow.Record) error {
		done, err := set.Write(kind, rec)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", kind.Plural(), err)
		}

		for _, f := range done {
			if err := send(ctx, out, f); err != nil {
				return err
			}
		}

		return nil
	}

	for e := range in {
		if err := batchers.Add(e, emit); err != nil {
			return err
		}
	}

	// input also closes when an upstream stage failed
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := batchers.Flush(emit); err != nil {
		return err
	}

	rest, err := set.Finish()
	if err != nil {
		return err
	}

	for _, f := range rest {
		if err := send(ctx, out, f); err != nil {
			return err
		}
	}

	return nil
}

func (c *Converter) newStreamWriter(kind model.EntityType) writer.StreamWriter {
	schema := c.schemas.For(kind)

	if c.opts.useSpool {
		return writer.NewSpoolWriter(schema, c.opts.spoolDir, c.opts.writer)
	}

	return writer.NewMemoryWriter(schema, c.opts.writer)
}

func (c *Converter) write(ctx context.Context, worker int, in <-chan writer.File, s sink.Sink, t *tally) error {
	for f := range in {
		if err := sink.Write(ctx, s, f.Kind, worker, f.Data); err != nil {
			return err
		}

		t.addFile(f)
		c.opts.progress.Inc(progress.Files, 1)
		c.opts.progress.Inc(progress.Bytes, int64(len(f.Data)))

		c.opts.logger.Debug("wrote file",
			zap.Stringer("kind", f.Kind),
			zap.Int("worker", worker),
			zap.Int64("rows", f.Rows),
			zap.Int("bytes", len(f.Data)))
	}

	return nil
}
