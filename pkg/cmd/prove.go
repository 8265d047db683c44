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
	"strings"

	"github.com/fatih/color"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/consensys/go-kestrel/pkg/explore"
	"github.com/consensys/go-kestrel/pkg/prove"
	"github.com/consensys/go-kestrel/pkg/rewrite"
	"github.com/consensys/go-kestrel/pkg/smt"
)

var (
	provedStyle       = color.New(color.FgGreen, color.Bold)
	disprovedStyle    = color.New(color.FgRed, color.Bold)
	inconclusiveStyle = color.New(color.FgYellow, color.Bold)
	claimStyle        = color.New(color.FgCyan)
)

// proveCmd represents the prove command
var proveCmd = &cobra.Command{
	Use:   "prove [flags] claims_file ruleset_file(s)",
	Short: "Prove a set of claims against a rule database.",
	Long: `Prove a set of reachability claims by symbolic execution.  Claims are
	given as a YAML file; rules and lemmas as one or more YAML ruleset files.
	Lemma modules are inert unless selected with --lemmas.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		opts := prove.DefaultOptions()
		opts.MaxSteps = GetUint(cmd, "max-steps")
		opts.MaxBranches = GetUint(cmd, "max-branches")
		opts.Workers = GetInt(cmd, "workers")
		opts.Exhaustive = GetFlag(cmd, "exhaustive")
		opts.SolverTimeout = GetDuration(cmd, "timeout")
		// Parse claims
		claims, err := prove.LoadClaims(args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		// Parse rulesets
		database := readRulesetFiles(args[1:])
		activation := activateModules(database, GetStringSlice(cmd, "lemmas"))
		// Assemble the engine
		var (
			rewriter = rewrite.NewRewriter(activation)
			explorer = explore.NewExplorer(rewriter, opts.Workers)
			oracle   = smt.NewCache(smt.NewEvalOracle(rewrite.NewSimplifier(activation)))
			prover   = prove.NewProver(explorer, oracle, opts)
		)
		// Go!
		outcomes := prover.ProveAll(context.Background(), claims)
		//
		if !reportOutcomes(outcomes) {
			os.Exit(1)
		}
	},
}

// Print one line per claim, plus counterexample details for disproofs.
// Returns true if every claim was proved.
func reportOutcomes(outcomes []prove.Outcome) bool {
	proved := 0
	//
	for _, outcome := range outcomes {
		reportOutcome(outcome)
		//
		if outcome.Verdict == prove.Proved {
			proved++
		}
	}
	//
	fmt.Printf("%d / %d claims proved\n", proved, len(outcomes))
	//
	return proved == len(outcomes)
}

func reportOutcome(outcome prove.Outcome) {
	claimStyle.Printf("%s: ", outcome.Claim)
	//
	switch outcome.Verdict {
	case prove.Proved:
		provedStyle.Print("proved")
		fmt.Printf(" (%d steps, %d branches)\n", outcome.Steps, outcome.Branches)
	case prove.Disproved:
		disprovedStyle.Print("disproved")
		fmt.Printf(" (%s)\n", outcome.Reason)
		//
		for _, node := range outcome.Counterexamples {
			reportCounterexample(node)
		}
	default:
		inconclusiveStyle.Print("inconclusive")
		fmt.Printf(" (%s)\n", outcome.Reason)
	}
}

// Print the rule trace leading to a counterexample, the path condition under
// which it is reached, and a character-level diff from the predecessor state
// to the final one.
func reportCounterexample(node *explore.Node) {
	width := terminalWidth()
	//
	fmt.Printf("  trace: %s\n", strings.Join(node.History, ", "))
	//
	for _, atom := range node.Path {
		fmt.Printf("  given: %s\n", truncated(atom.String(), width-9))
	}
	//
	if node.Parent != nil {
		var (
			dmp   = diffpatch.New()
			diffs = dmp.DiffMain(node.Parent.Config.String(), node.Config.String(), false)
		)
		//
		fmt.Printf("  state: %s\n", dmp.DiffPrettyText(diffs))
	} else {
		fmt.Printf("  state: %s\n", truncated(node.Config.String(), width-9))
	}
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(proveCmd)
	proveCmd.Flags().StringSlice("lemmas", []string{}, "comma-separated lemma modules to activate")
	proveCmd.Flags().Uint("max-steps", prove.DefaultOptions().MaxSteps, "bound on node expansions per claim")
	proveCmd.Flags().Uint("max-branches", prove.DefaultOptions().MaxBranches, "bound on exploration width per claim")
	proveCmd.Flags().Int("workers", prove.DefaultOptions().Workers, "bound on concurrent branch expansion")
	proveCmd.Flags().Bool("exhaustive", false, "report every counterexample, not just the first")
	proveCmd.Flags().Duration("timeout", prove.DefaultOptions().SolverTimeout, "per-query solver timeout")
}
