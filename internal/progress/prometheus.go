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
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exposes stage counters as metrics.
type Prometheus struct {
	counters [numStages]prometheus.Counter
	finished prometheus.Gauge
}

var _ Reporter = (*Prometheus)(nil)

// NewPrometheus registers the pipeline metrics with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "osmpq",
		Name:      "pipeline_total",
		Help:      "Items processed per pipeline stage.",
	}, []string{"stage"})

	finished := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "osmpq",
		Name:      "finished",
		Help:      "Set to 1 once the conversion has finished.",
	})

	for _, c := range []prometheus.Collector{vec, finished} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	p := &Prometheus{finished: finished}
	for _, s := range Stages {
		p.counters[s] = vec.WithLabelValues(s.String())
	}

	return p, nil
}

func (p *Prometheus) Inc(stage Stage, n int64) {
	p.counters[stage].Add(float64(n))
}

func (p *Prometheus) Finish() {
	p.finished.Set(1)
}
