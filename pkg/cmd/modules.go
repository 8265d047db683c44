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
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consensys/go-kestrel/pkg/rule"
)

// modulesCmd represents the modules command
var modulesCmd = &cobra.Command{
	Use:   "modules [flags] ruleset_file(s)",
	Short: "List the modules of a rule database.",
	Long: `List every module of one or more ruleset files, along with its rules,
	lemmas, strictness declarations and value constructors.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		database := readRulesetFiles(args)
		width := terminalWidth()
		//
		for _, m := range database.Modules() {
			listModule(m, width)
		}
	},
}

func listModule(m rule.Module, width int) {
	claimStyle.Printf("module %s", m.Name)
	fmt.Printf(" (%d rules, %d lemmas)\n", len(m.Rules), len(m.Lemmas))
	//
	if len(m.Values) > 0 {
		fmt.Printf("  values: %s\n", strings.Join(m.Values, ", "))
	}
	//
	if len(m.Strict) > 0 {
		fmt.Printf("  strict: %s\n", strings.Join(strictDecls(m.Strict), ", "))
	}
	//
	for _, r := range m.Rules {
		fmt.Printf("  rule %s: %s\n", r.ID, truncated(r.LHS.String(), width-len(r.ID)-10))
	}
	//
	for _, l := range m.Lemmas {
		fmt.Printf("  lemma %s: %s\n", l.ID, truncated(l.LHS.String(), width-len(l.ID)-11))
	}
}

// Render strictness declarations in a stable order.
func strictDecls(strict map[string][]uint) []string {
	decls := make([]string, 0, len(strict))
	//
	for op, positions := range strict {
		if positions == nil {
			decls = append(decls, op)
		} else {
			decls = append(decls, fmt.Sprintf("%s%v", op, positions))
		}
	}
	//
	sort.Strings(decls)
	//
	return decls
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}
