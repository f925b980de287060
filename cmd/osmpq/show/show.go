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

package show

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"m4o.io/osmpq/cmd/osmpq/cli"
	"m4o.io/osmpq/internal/config"
)

var out io.Writer = os.Stdout

func init() {
	cli.RootCmd.AddCommand(configCmd)

	config.RegisterFlags(configCmd.Flags(), config.Default())
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Print the configuration merged from flags, OSMPQ_* environment variables and --config as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := cli.Settings(cmd)
		if err != nil {
			return err
		}

		b, err := cfg.YAML()
		if err != nil {
			return err
		}

		_, err = out.Write(b)

		return err
	},
}
