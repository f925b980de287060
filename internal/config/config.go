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

// Package config holds the settings of a conversion run, read from flags,
// environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"m4o.io/osmpq"
	"m4o.io/osmpq/internal/logger"
	"m4o.io/osmpq/internal/progress"
	"m4o.io/osmpq/internal/writer"
)

// EnvPrefix prefixes environment overrides, e.g. OSMPQ_BATCH_SIZE.
const EnvPrefix = "OSMPQ"

var ErrInvalid = errors.New("invalid configuration")

// Config holds the global configuration for a conversion.
type Config struct {
	// Pipeline
	Decoders  int `mapstructure:"decoders" yaml:"decoders"`
	Encoders  int `mapstructure:"encoders" yaml:"encoders"`
	Writers   int `mapstructure:"writers" yaml:"writers"`
	BatchSize int `mapstructure:"batch-size" yaml:"batch-size"`
	QueueSize int `mapstructure:"queue-size" yaml:"queue-size"`

	// Input
	ReadBuffer string `mapstructure:"read-buffer" yaml:"read-buffer"`

	// Output files
	MaxFileSize    string `mapstructure:"max-file-size" yaml:"max-file-size"`
	MaxRows        int64  `mapstructure:"max-rows" yaml:"max-rows"`
	RowGroupLength int64  `mapstructure:"row-group-length" yaml:"row-group-length"`
	Compression    string `mapstructure:"compression" yaml:"compression"`
	SpoolDir       string `mapstructure:"spool-dir" yaml:"spool-dir"`
	Overwrite      bool   `mapstructure:"overwrite" yaml:"overwrite"`

	// Error handling
	SkipCorrupt bool `mapstructure:"skip-corrupt" yaml:"skip-corrupt"`

	// Object stores
	GCSCredentials string `mapstructure:"gcs-credentials" yaml:"gcs-credentials"`

	// Logging and metrics
	Progress        bool          `mapstructure:"progress" yaml:"progress"`
	Debug           bool          `mapstructure:"debug" yaml:"debug"`
	LogFile         string        `mapstructure:"log-file" yaml:"log-file"`
	MetricsInterval time.Duration `mapstructure:"metrics-interval" yaml:"metrics-interval"`
	MetricsAddr     string        `mapstructure:"metrics-addr" yaml:"metrics-addr"`
}

// Default returns a configuration with sensible defaults.
func Default() Config {
	return Config{
		Decoders:        osmpq.DefaultNCpu(),
		Encoders:        osmpq.DefaultNCpu(),
		Writers:         1,
		BatchSize:       osmpq.DefaultBatchSize,
		QueueSize:       osmpq.DefaultQueueSize,
		ReadBuffer:      "4MiB",
		MaxFileSize:     "128MiB",
		RowGroupLength:  writer.DefaultMaxRowGroupLength,
		Compression:     writer.DefaultCompression,
		SkipCorrupt:     true,
		Progress:        true,
		MetricsInterval: 0,
	}
}

// RegisterFlags defines a flag per setting on fs, defaulting to d.
func RegisterFlags(fs *pflag.FlagSet, d Config) {
	fs.Int("decoders", d.Decoders, "number of blob decoding workers")
	fs.Int("encoders", d.Encoders, "number of batching and encoding workers")
	fs.Int("writers", d.Writers, "number of output writing workers")
	fs.Int("batch-size", d.BatchSize, "rows per record batch")
	fs.Int("queue-size", d.QueueSize, "capacity of the queues between stages")
	fs.String("read-buffer", d.ReadBuffer, "size of the input read buffer, e.g. 8MiB")
	fs.String("max-file-size", d.MaxFileSize, "rotate output files past this size, e.g. 256MB (0 for unbounded)")
	fs.Int64("max-rows", d.MaxRows, "rotate output files at this many rows (0 for unbounded)")
	fs.Int64("row-group-length", d.RowGroupLength, "maximum rows per parquet row group")
	fs.String("compression", d.Compression, "parquet compression: snappy, zstd, gzip, brotli, lz4 or none")
	fs.String("spool-dir", d.SpoolDir, "encode open files into temporary files in this directory")
	fs.Bool("overwrite", d.Overwrite, "clear existing output directories")
	fs.Bool("skip-corrupt", d.SkipCorrupt, "skip blobs that fail to decode instead of aborting")
	fs.String("gcs-credentials", d.GCSCredentials, "credentials file for gs:// outputs")
	fs.Bool("progress", d.Progress, "show progress counters")
	fs.Bool("debug", d.Debug, "enable debug logging")
	fs.String("log-file", d.LogFile, "also log JSON to this rotated file")
	fs.Duration("metrics-interval", d.MetricsInterval, "log system metrics at this interval (0 disables)")
	fs.String("metrics-addr", d.MetricsAddr, "serve prometheus metrics on this address")
}

// Load reads the configuration from fs, OSMPQ_* environment variables and,
// when file is not empty, a YAML file, in decreasing precedence.
func Load(v *viper.Viper, fs *pflag.FlagSet, file string) (Config, error) {
	cfg := Default()

	if err := v.BindPFlags(fs); err != nil {
		return cfg, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	var errs []error

	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Decoders >= 1, "decoders must be at least 1")
	check(c.Encoders >= 1, "encoders must be at least 1")
	check(c.Writers >= 1, "writers must be at least 1")
	check(c.BatchSize >= 1, "batch size must be at least 1")
	check(c.QueueSize >= 1, "queue size must be at least 1")
	check(c.MaxRows >= 0, "max rows must not be negative")
	check(c.RowGroupLength >= 1, "row group length must be at least 1")
	check(c.MetricsInterval >= 0, "metrics interval must not be negative")

	if _, err := c.MaxFileSizeBytes(); err != nil {
		check(false, "max file size %q: %v", c.MaxFileSize, err)
	}

	if n, err := c.ReadBufferBytes(); err != nil {
		check(false, "read buffer %q: %v", c.ReadBuffer, err)
	} else {
		check(n >= 1, "read buffer must not be empty")
	}

	if _, err := writer.ParseCompression(c.Compression); err != nil {
		check(false, "%v", err)
	}

	return errors.Join(errs...)
}

// MaxFileSizeBytes parses MaxFileSize. An empty size is unbounded.
func (c Config) MaxFileSizeBytes() (int64, error) {
	return parseSize(c.MaxFileSize)
}

// ReadBufferBytes parses ReadBuffer.
func (c Config) ReadBufferBytes() (int64, error) {
	return parseSize(c.ReadBuffer)
}

func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}

	return int64(n), nil
}

// Options converts a validated configuration into converter options.
func (c Config) Options(log *zap.Logger, reporter progress.Reporter) []osmpq.Option {
	size, _ := c.MaxFileSizeBytes()
	buffer, _ := c.ReadBufferBytes()
	codec, _ := writer.ParseCompression(c.Compression)

	opts := []osmpq.Option{
		osmpq.WithDecoders(c.Decoders),
		osmpq.WithEncoders(c.Encoders),
		osmpq.WithWriters(c.Writers),
		osmpq.WithBatchSize(c.BatchSize),
		osmpq.WithQueueSize(c.QueueSize),
		osmpq.WithReadBufferSize(int(buffer)),
		osmpq.WithMaxFileSize(size),
		osmpq.WithMaxRows(c.MaxRows),
		osmpq.WithRowGroupLength(c.RowGroupLength),
		osmpq.WithCompression(codec),
		osmpq.WithSkipCorrupt(c.SkipCorrupt),
		osmpq.WithLogger(log),
		osmpq.WithProgress(reporter),
	}

	if c.SpoolDir != "" {
		opts = append(opts, osmpq.WithSpoolDir(c.SpoolDir))
	}

	return opts
}

// Logger builds the logger described by the configuration.
func (c Config) Logger() *zap.Logger {
	return logger.New(logger.Options{Debug: c.Debug, File: c.LogFile})
}

// YAML renders the configuration as a YAML document.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
