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
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS writes files to a Cloud Storage bucket below an object prefix.
type GCS struct {
	named
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

var _ Sink = (*GCS)(nil)

// NewGCS returns a sink for bucket using application default credentials,
// or credentialsFile when it is not empty.
func NewGCS(ctx context.Context, bucket, prefix, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	g := &GCS{client: client, bucket: client.Bucket(bucket), prefix: prefix}
	g.named = named{namer: &Namer{}, put: g.put}

	return g, nil
}

func (g *GCS) put(ctx context.Context, name string, data []byte) error {
	w := g.bucket.Object(path.Join(g.prefix, name)).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

func (g *GCS) Close() error {
	return g.client.Close()
}
