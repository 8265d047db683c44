// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/consensys/go-kestrel/pkg/explore"
	"github.com/consensys/go-kestrel/pkg/rewrite"
	"github.com/consensys/go-kestrel/pkg/term"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [flags] program_file ruleset_file(s)",
	Short: "Execute a configuration to termination.",
	Long: `Execute a configuration concretely, applying the unique highest
	priority rule at each step until no rule fires.  The program file holds a
	single S-expression configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		// Parse program
		config := readProgramFile(args[0])
		// Parse rulesets
		database := readRulesetFiles(args[1:])
		activation := activateModules(database, GetStringSlice(cmd, "lemmas"))
		//
		var (
			rewriter = rewrite.NewRewriter(activation)
			explorer = explore.NewExplorer(rewriter, 1)
		)
		// Go!
		final, trace, err := explorer.Run(context.Background(), config, GetUint(cmd, "max-steps"))
		//
		if GetFlag(cmd, "trace") {
			for i, step := range trace {
				fmt.Printf("%4d: %s\n", i+1, step)
			}
		}
		//
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		fmt.Println(final.String())
	},
}

// Parse a program file holding a single S-expression configuration, exiting
// on failure.
func readProgramFile(filename string) term.Configuration {
	data, err := os.ReadFile(filename)
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	config, err := term.ParseConfig(string(data))
	//
	if err != nil {
		fmt.Printf("%s: %s\n", filename, err)
		os.Exit(2)
	}
	//
	return config
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringSlice("lemmas", []string{}, "comma-separated lemma modules to activate")
	runCmd.Flags().Uint("max-steps", 10000, "bound on execution steps")
	runCmd.Flags().Bool("trace", false, "print the applied rules")
}
