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

// Package progress reports pipeline throughput.
package progress

import (
	"sync/atomic"
)

// Stage identifies a monotonic counter of the conversion pipeline.
type Stage int

const (
	Blobs Stage = iota
	Nodes
	Ways
	Relations
	Files
	Bytes

	numStages
)

// Stages lists every stage in display order.
var Stages = []Stage{Blobs, Nodes, Ways, Relations, Files, Bytes}

func (s Stage) String() string {
	switch s {
	case Blobs:
		return "blobs"
	case Nodes:
		return "nodes"
	case Ways:
		return "ways"
	case Relations:
		return "relations"
	case Files:
		return "files"
	case Bytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Reporter receives increments from every stage and a final Finish.
// Implementations must be safe for concurrent use.
type Reporter interface {
	Inc(stage Stage, n int64)
	Finish()
}

// Nop discards every report.
type Nop struct{}

func (Nop) Inc(Stage, int64) {}

func (Nop) Finish() {}

// Counter accumulates reports in memory.
type Counter struct {
	counts   [numStages]atomic.Int64
	finished atomic.Bool
}

func (c *Counter) Inc(stage Stage, n int64) {
	c.counts[stage].Add(n)
}

func (c *Counter) Finish() {
	c.finished.Store(true)
}

// Get returns the accumulated count of stage.
func (c *Counter) Get(stage Stage) int64 {
	return c.counts[stage].Load()
}

func (c *Counter) Finished() bool {
	return c.finished.Load()
}

// Tee fans reports out to several reporters.
type Tee []Reporter

func (t Tee) Inc(stage Stage, n int64) {
	for _, r := range t {
		r.Inc(stage, n)
	}
}

func (t Tee) Finish() {
	for _, r := range t {
		r.Finish()
	}
}
