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
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlags mirrors every persistent flag of root into viper under
// "global-<flag>" and enables prefix-matched environment overrides, the
// same shape as the fleet's multi-app AutoBind, scaled down for a
// single-command binary.
func bindFlags(root *cobra.Command, envPrefix string) {
	viper.SetEnvPrefix(strings.ToUpper(envPrefix))
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	root.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		viper.BindPFlag("global-"+f.Name, f)
	})
}
