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

// Package cli holds the root command and helpers shared by the osmpq
// subcommands.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"m4o.io/osmpq/internal/config"
)

// RootCmd is the osmpq command every subcommand registers with.
var RootCmd = &cobra.Command{
	Use:           "osmpq",
	Short:         "Convert OpenStreetMap PBF files to Parquet",
	Long:          "Convert OpenStreetMap PBF files into Parquet files partitioned by element kind",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "YAML configuration file")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}

// Settings loads the configuration of cmd, whose flags must have been
// registered with config.RegisterFlags.
func Settings(cmd *cobra.Command) (config.Config, error) {
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}

	return config.Load(viper.New(), cmd.Flags(), file)
}
