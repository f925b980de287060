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

package info

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/destel/rill"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"m4o.io/osmpq/cmd/osmpq/cli"
	"m4o.io/osmpq/internal/decoder"
	"m4o.io/osmpq/model"
)

var out io.Writer = os.Stdout

type extendedHeader struct {
	model.Header

	NodeCount     int64 `json:"node_count"`
	WayCount      int64 `json:"way_count"`
	RelationCount int64 `json:"relation_count"`

	// Extent is the box spanned by the nodes actually present.
	Extent       *model.BoundingBox `json:"extent,omitempty"`
	NodesOutside int64              `json:"nodes_outside_bbox"`
}

// ExtentMatches reports whether the node extent equals the declared
// bounding box at the coordinate precision of the default granularity.
func (h *extendedHeader) ExtentMatches() bool {
	return h.BoundingBox != nil && h.Extent != nil && h.BoundingBox.EqualWithin(h.Extent, model.E7)
}

type scanResult struct {
	counts  model.ElementCount
	extent  *model.BoundingBox
	outside int64
}

func init() {
	cli.RootCmd.AddCommand(infoCmd)

	flags := infoCmd.Flags()
	flags.BoolP("json", "j", false, "format information in JSON")
	flags.IntP("cpu", "c", runtime.GOMAXPROCS(-1), "number of CPUs to use for scanning")
	flags.BoolP("extended", "e", false, "provide extended information (scans entire file)")
	flags.Bool("progress", true, "show a progress bar while scanning a file")
}

var infoCmd = &cobra.Command{
	Use:   "info [<OSM file>]",
	Short: "Print information about an OSM file",
	Long:  "Print information about an OSM file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()

		ncpu, err := flags.GetInt("cpu")
		if err != nil {
			return err
		}

		extended, err := flags.GetBool("extended")
		if err != nil {
			return err
		}

		jsonfmt, err := flags.GetBool("json")
		if err != nil {
			return err
		}

		progress, err := flags.GetBool("progress")
		if err != nil {
			return err
		}

		f, err := cli.Input(args, os.Stdin)
		if err != nil {
			return err
		}

		var in io.ReadCloser = f
		if progress && extended {
			if in, err = cli.WrapInputFile(f); err != nil {
				return err
			}
		}

		info, err := runInfo(cmd.Context(), in, ncpu, extended)

		if cerr := in.Close(); err == nil {
			err = cerr
		}

		if err != nil {
			return err
		}

		if jsonfmt {
			return renderJSON(info, extended)
		}

		renderTxt(info, extended)

		return nil
	},
}

func runInfo(ctx context.Context, in io.Reader, ncpu int, extended bool) (*extendedHeader, error) {
	hdr, err := decoder.LoadHeader(in)
	if err != nil {
		return nil, err
	}

	info := &extendedHeader{Header: hdr}

	if extended {
		res, err := scan(ctx, in, ncpu, hdr.BoundingBox)
		if err != nil {
			return nil, err
		}

		info.NodeCount = res.counts.Nodes
		info.WayCount = res.counts.Ways
		info.RelationCount = res.counts.Relations
		info.Extent = res.extent
		info.NodesOutside = res.outside
	}

	return info, nil
}

// scan decodes the remaining blobs of in with ncpu workers, counting their
// elements and the nodes falling outside of declared, when not nil.
func scan(ctx context.Context, in io.Reader, ncpu int, declared *model.BoundingBox) (scanResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan rill.Try[*decoder.Frame])

	go func() {
		defer close(frames)

		for f, err := range decoder.GenerateBlobReader(ctx, in) {
			select {
			case frames <- rill.Try[*decoder.Frame]{Value: f, Error: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		nodes, ways, relations, outside atomic.Int64

		mu     sync.Mutex
		extent *model.BoundingBox
	)

	err := rill.ForEach(frames, max(ncpu, 1), func(f *decoder.Frame) error {
		blk, err := decoder.Decode(f)
		if err != nil {
			return err
		}

		if blk.Elements == nil {
			return nil
		}

		c := blk.Elements.Count()
		nodes.Add(c.Nodes)
		ways.Add(c.Ways)
		relations.Add(c.Relations)

		if len(blk.Elements.Nodes) == 0 {
			return nil
		}

		box := model.InitialBoundingBox()

		var stray int64
		for _, n := range blk.Elements.Nodes {
			box.ExpandWithLatLng(n.Lat, n.Lon)

			if declared != nil && !declared.Contains(n.Lat, n.Lon) {
				stray++
			}
		}

		outside.Add(stray)

		mu.Lock()
		defer mu.Unlock()

		if extent == nil {
			extent = model.InitialBoundingBox()
		}

		extent.ExpandWithLatLng(box.Top, box.Left)
		extent.ExpandWithLatLng(box.Bottom, box.Right)

		return nil
	})
	if err != nil {
		return scanResult{}, err
	}

	return scanResult{
		counts: model.ElementCount{
			Nodes:     nodes.Load(),
			Ways:      ways.Load(),
			Relations: relations.Load(),
		},
		extent:  extent,
		outside: outside.Load(),
	}, nil
}

func renderJSON(info *extendedHeader, extended bool) error {
	// marshall the smallest struct needed
	var v any
	if extended {
		v = info
	} else {
		v = info.Header
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, string(b))

	return err
}

func renderTxt(info *extendedHeader, extended bool) {
	if info.BoundingBox != nil {
		fmt.Fprintf(out, "BoundingBox: %s\n", info.BoundingBox)
	}
	fmt.Fprintf(out, "RequiredFeatures: %s\n", strings.Join(info.RequiredFeatures, ", "))
	fmt.Fprintf(out, "OptionalFeatures: %s\n", strings.Join(info.OptionalFeatures, ", "))
	fmt.Fprintf(out, "WritingProgram: %s\n", info.WritingProgram)
	fmt.Fprintf(out, "Source: %s\n", info.Source)
	fmt.Fprintf(out, "OsmosisReplicationTimestamp: %s\n", info.OsmosisReplicationTimestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "OsmosisReplicationSequenceNumber: %d\n", info.OsmosisReplicationSequenceNumber)
	fmt.Fprintf(out, "OsmosisReplicationBaseURL: %s\n", info.OsmosisReplicationBaseURL)
	if unsupported := info.UnsupportedFeatures(); len(unsupported) > 0 {
		fmt.Fprintf(out, "UnsupportedFeatures: %s\n", strings.Join(unsupported, ", "))
	}
	if extended {
		fmt.Fprintf(out, "NodeCount: %s\n", humanize.Comma(info.NodeCount))
		fmt.Fprintf(out, "WayCount: %s\n", humanize.Comma(info.WayCount))
		fmt.Fprintf(out, "RelationCount: %s\n", humanize.Comma(info.RelationCount))

		if info.Extent != nil {
			fmt.Fprintf(out, "Extent: %s\n", info.Extent)
		}

		if info.BoundingBox != nil && info.Extent != nil {
			fmt.Fprintf(out, "ExtentMatchesBoundingBox: %t\n", info.ExtentMatches())
			fmt.Fprintf(out, "NodesOutsideBoundingBox: %s\n", humanize.Comma(info.NodesOutside))
		}
	}
}
