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
	"fmt"
	"io"
	"sync"

	pb "gopkg.in/cheggaaa/pb.v1"
)

// Bars renders one counter line per stage on a terminal.
type Bars struct {
	once sync.Once
	pool *pb.Pool
	bars [numStages]*pb.ProgressBar
}

var _ Reporter = (*Bars)(nil)

// NewBars starts a pool of counters writing to w.
func NewBars(w io.Writer) (*Bars, error) {
	b := &Bars{}

	all := make([]*pb.ProgressBar, 0, numStages)
	for _, s := range Stages {
		bar := pb.New64(0).Prefix(fmt.Sprintf("%-10s", s))
		bar.ShowBar = false
		bar.ShowPercent = false
		bar.ShowTimeLeft = false
		bar.ShowSpeed = true

		if s == Bytes {
			bar.SetUnits(pb.U_BYTES_DEC)
		}

		b.bars[s] = bar
		all = append(all, bar)
	}

	b.pool = pb.NewPool(all...)
	b.pool.Output = w

	if err := b.pool.Start(); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *Bars) Inc(stage Stage, n int64) {
	b.bars[stage].Add64(n)
}

// Finish stops the pool once every bar has finished. Later calls are
// ignored.
func (b *Bars) Finish() {
	b.once.Do(func() {
		for _, bar := range b.bars {
			bar.Finish()
		}

		_ = b.pool.Stop()
	})
}
