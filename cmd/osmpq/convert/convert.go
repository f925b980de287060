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

package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"m4o.io/osmpq"
	"m4o.io/osmpq/cmd/osmpq/cli"
	"m4o.io/osmpq/internal/config"
	"m4o.io/osmpq/internal/metrics"
	"m4o.io/osmpq/internal/progress"
	"m4o.io/osmpq/internal/sink"
)

// ErrSkipped is returned when the conversion succeeded but some blobs
// could not be decoded.
var ErrSkipped = errors.New("blobs were skipped")

var out io.Writer = os.Stdout

var input *os.File

func init() {
	cli.RootCmd.AddCommand(convertCmd)

	flags := convertCmd.Flags()
	flags.VarP(cli.NewReaderValue(os.Stdin, &input, "file"), "input", "i", "OSM file to convert (- for stdin)")
	flags.StringP("output", "o", "", "output directory, s3://bucket/prefix or gs://bucket/prefix")
	config.RegisterFlags(flags, config.Default())

	_ = convertCmd.MarkFlagRequired("output")
}

var convertCmd = &cobra.Command{
	Use:   "convert [<OSM file>] --output <target>",
	Short: "Convert an OSM file to Parquet",
	Long:  "Convert an OSM file into Parquet files below nodes/, ways/ and relations/ of the target",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.Settings(cmd)
		if err != nil {
			return err
		}

		target, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}

		f, err := cli.Input(args, input)
		if err != nil {
			return err
		}
		defer f.Close()

		log := cfg.Logger()
		defer func() { _ = log.Sync() }()

		return run(cmd.Context(), cfg, f, target, log)
	},
}

func run(ctx context.Context, cfg config.Config, in io.Reader, target string, log *zap.Logger) error {
	s, err := sink.Open(ctx, target, sink.Options{
		Overwrite:       cfg.Overwrite,
		CredentialsFile: cfg.GCSCredentials,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	reporters := progress.Tee{}

	if cfg.Progress {
		bars, err := progress.NewBars(os.Stderr)
		if err != nil {
			log.Warn("progress disabled", zap.Error(err))
		} else {
			reporters = append(reporters, bars)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collector := metrics.NewCollector(cfg.MetricsInterval, log)

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()

		prom, err := progress.NewPrometheus(reg)
		if err != nil {
			return err
		}

		if err := collector.Register(reg); err != nil {
			return err
		}

		reporters = append(reporters, prom)

		srv := serveMetrics(cfg.MetricsAddr, reg, log)
		defer shutdown(srv)
	}

	if cfg.MetricsInterval > 0 {
		go collector.Run(ctx)
	}

	stats, err := osmpq.Convert(ctx, in, s, cfg.Options(log, reporters)...)
	if err != nil {
		return err
	}

	summarize(stats)

	if stats.SkippedBlobs > 0 {
		return fmt.Errorf("%w: %d of %d", ErrSkipped, stats.SkippedBlobs, stats.Blobs)
	}

	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
}

func summarize(stats *osmpq.Stats) {
	fmt.Fprintf(out, "Blobs: %s (%s skipped)\n", humanize.Comma(stats.Blobs), humanize.Comma(stats.SkippedBlobs))
	fmt.Fprintf(out, "Read: %s\n", humanize.Bytes(uint64(stats.InputBytes)))
	fmt.Fprintf(out, "Nodes: %s in %d files\n", humanize.Comma(stats.Rows.Nodes), stats.Files.Nodes)
	fmt.Fprintf(out, "Ways: %s in %d files\n", humanize.Comma(stats.Rows.Ways), stats.Files.Ways)
	fmt.Fprintf(out, "Relations: %s in %d files\n", humanize.Comma(stats.Rows.Relations), stats.Files.Relations)
	fmt.Fprintf(out, "Written: %s in %s\n", humanize.Bytes(uint64(stats.Bytes)), stats.Elapsed.Round(time.Millisecond))
}
