// Copyright 2020 dfuse Platform Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/streamingfast/derr"
	"github.com/streamingfast/logging"
	"go.uber.org/zap"

	"github.com/dfuse-io/wasmql/driver"
)

var zlog = zap.NewNop()

func init() {
	logging.Register("github.com/dfuse-io/wasmql/cmd/wasmql-host", &zlog)
}

var rootCmd = &cobra.Command{Use: "wasmql-host", Short: "Run the range-query host over a guest module and column store", RunE: runRootE}

func main() {
	cobra.OnInitialize(func() { bindFlags(rootCmd, "WASMQL") })

	rootCmd.PersistentFlags().String("wasm-dir", "./wasm", "Directory holding <short_name>-server.wasm and legacy-server.wasm guest modules")
	rootCmd.PersistentFlags().String("store-dsn", "", "Connection string for the underlying column store")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug-level logging")
	rootCmd.PersistentFlags().Duration("graceful-shutdown-delay", 0, "Delay before shutting down, after a termination signal is received")

	derr.Check("running wasmql-host", rootCmd.Execute())
}

func runRootE(cmd *cobra.Command, args []string) error {
	setupLogging(viper.GetBool("global-verbose"))

	wasmDir := viper.GetString("global-wasm-dir")
	storeDSN := viper.GetString("global-store-dsn")
	if storeDSN == "" {
		zlog.Warn("no store-dsn configured, the host cannot open query sessions until a column store implementation is wired in")
	}

	zlog.Info("wasmql-host configured",
		zap.String("wasm_dir", wasmDir),
		zap.String("store_dsn", storeDSN),
	)

	// The column store and the guest interpreter are external collaborators
	// (consumed through store.ColumnStore and driver.ModuleLoader); a real
	// deployment supplies both when constructing driver.Driver. This binary
	// only owns process lifecycle, flags, and logging.
	_ = driver.MaxAttempts

	select {
	case sig := <-derr.SetupSignalHandler(viper.GetDuration("global-graceful-shutdown-delay")):
		zlog.Info("terminating through system signal", zap.Reflect("sig", sig))
	}

	return nil
}

func setupLogging(verbose bool) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	logging.Set(logger)
}
