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

package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSample(t *testing.T) {
	c := NewCollector(0, zap.NewNop())
	assert.Equal(t, time.Second, c.interval)
	assert.Zero(t, c.Last().Goroutines)

	s := c.Sample()
	assert.Positive(t, s.Goroutines)
	assert.Positive(t, s.HeapInUse)
	assert.Equal(t, s, c.Last())
}

func TestRegister(t *testing.T) {
	c := NewCollector(time.Second, zap.NewNop())
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, c.Register(reg))

	s := c.Sample()
	assert.InDelta(t, float64(s.ProcessRSS), testutil.ToFloat64(c.rss), 0)

	assert.Error(t, c.Register(reg))
}

func TestRunLogsUntilCancelled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c := NewCollector(time.Second, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("system metrics").Len() > 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
