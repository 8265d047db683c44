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
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/consensys/go-kestrel/pkg/rule"
	"github.com/consensys/go-kestrel/pkg/sexp"
)

// GetFlag reads an expected boolean flag, or exits if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetInt reads an expected int flag, or exits if an error arises.
func GetInt(cmd *cobra.Command, flag string) int {
	r, err := cmd.Flags().GetInt(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetUint reads an expected uint flag, or exits if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString reads an expected string flag, or exits if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetStringSlice reads an expected string slice flag, or exits if an error
// arises.
func GetStringSlice(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringSlice(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetDuration reads an expected duration flag, or exits if an error arises.
func GetDuration(cmd *cobra.Command, flag string) time.Duration {
	r, err := cmd.Flags().GetDuration(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Read one or more YAML ruleset files into a single database, exiting on
// failure.
func readRulesetFiles(paths []string) *rule.Database {
	database, err := rule.LoadDatabase(paths...)
	//
	if err != nil {
		var syntax *sexp.SyntaxError
		//
		if errors.As(err, &syntax) {
			fmt.Printf("syntax error at offset %d: %s\n", syntax.Index(), syntax.Message())
		} else {
			fmt.Println(err)
		}
		//
		os.Exit(2)
	}
	//
	return database
}

// Activate every module carrying stepping rules or declarations, plus any
// lemma modules selected by name.  Lemma-only modules are inert unless
// selected, so optional facts never leak into a session by accident.
func activateModules(database *rule.Database, lemmas []string) *rule.Activation {
	var names []string
	//
	selected := make(map[string]bool)
	//
	for _, name := range lemmas {
		selected[name] = true
	}
	//
	for _, m := range database.Modules() {
		if selected[m.Name] || len(m.Rules) > 0 || len(m.Strict) > 0 || len(m.Values) > 0 {
			names = append(names, m.Name)
		}
	}
	//
	activation, err := database.Activate(names...)
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return activation
}

// Determine the width of the enclosing terminal, falling back to a sensible
// default when stdout is not a terminal.
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	//
	return 80
}

// Truncate a single-line rendering to the terminal width.
func truncated(line string, width int) string {
	if len(line) <= width || width < 4 {
		return line
	}
	//
	return line[:width-3] + "..."
}
