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

package progress

import (
	"bytes"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageNames(t *testing.T) {
	var names []string
	for _, s := range Stages {
		names = append(names, s.String())
	}

	assert.Equal(t, []string{"blobs", "nodes", "ways", "relations", "files", "bytes"}, names)
	assert.Equal(t, "unknown", Stage(42).String())
}

func TestCounter(t *testing.T) {
	var (
		c  Counter
		wg sync.WaitGroup
	)

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				c.Inc(Nodes, 2)
				c.Inc(Ways, 1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(2000), c.Get(Nodes))
	assert.Equal(t, int64(1000), c.Get(Ways))
	assert.Zero(t, c.Get(Relations))
	assert.False(t, c.Finished())

	c.Finish()
	assert.True(t, c.Finished())
}

func TestTee(t *testing.T) {
	var a, b Counter

	r := Tee{&a, Nop{}, &b}
	r.Inc(Files, 3)
	r.Finish()

	assert.Equal(t, int64(3), a.Get(Files))
	assert.Equal(t, int64(3), b.Get(Files))
	assert.True(t, a.Finished())
	assert.True(t, b.Finished())
}

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()

	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	p.Inc(Blobs, 4)
	p.Inc(Bytes, 1024)
	p.Inc(Blobs, 1)

	assert.InDelta(t, 5, testutil.ToFloat64(p.counters[Blobs]), 0)
	assert.InDelta(t, 1024, testutil.ToFloat64(p.counters[Bytes]), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(p.finished), 0)

	p.Finish()
	assert.InDelta(t, 1, testutil.ToFloat64(p.finished), 0)

	_, err = NewPrometheus(reg)
	assert.Error(t, err)
}

func TestBars(t *testing.T) {
	var out bytes.Buffer

	b, err := NewBars(&out)
	if err != nil {
		t.Skipf("terminal not available: %v", err)
	}

	b.Inc(Nodes, 10)
	assert.Equal(t, int64(10), b.bars[Nodes].Get())

	b.Finish()
	b.Finish()
}
