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
package prove

import (
	"context"
	"strings"
	"testing"

	"github.com/consensys/go-kestrel/pkg/explore"
	"github.com/consensys/go-kestrel/pkg/rewrite"
	"github.com/consensys/go-kestrel/pkg/rule"
	"github.com/consensys/go-kestrel/pkg/smt"
	"github.com/consensys/go-kestrel/pkg/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Straight-line proofs
// ============================================================================

func Test_Prove_Increment(t *testing.T) {
	outcome := attemptClaim(t, `
- id: increment
  lhs: "(config (k (local.set 0 (i32.add (local.get 0) (i32.const 1)))) (locals (#map (0 (i32.const N)))))"
  rhs: "(config (k) (locals (#map (0 (i32.const (#wrap 32 (+ N 1)))))))"
`)
	//
	assert.Equal(t, Proved, outcome.Verdict, outcome.Reason)
	assert.Equal(t, uint(3), outcome.Steps)
}

func Test_Prove_Increment_Deterministic(t *testing.T) {
	const claim = `
- id: increment
  lhs: "(config (k (local.set 0 (i32.add (local.get 0) (i32.const 1)))) (locals (#map (0 (i32.const N)))))"
  rhs: "(config (k) (locals (#map (0 (i32.const (#wrap 32 (+ N 1)))))))"
`
	//
	first := attemptClaim(t, claim)
	//
	for i := 0; i < 5; i++ {
		next := attemptClaim(t, claim)
		//
		assert.Equal(t, first.Verdict, next.Verdict)
		assert.Equal(t, first.Steps, next.Steps)
		assert.Equal(t, first.Branches, next.Branches)
	}
}

func Test_Prove_LocalRoundTrip(t *testing.T) {
	// Writing a local's own value back leaves the configuration unchanged.
	outcome := attemptClaim(t, `
- id: roundtrip
  lhs: "(config (k (local.set 0 (local.get 0))) (locals (#map (0 (i32.const V)))))"
  rhs: "(config (k) (locals (#map (0 (i32.const V)))))"
`)
	//
	assert.Equal(t, Proved, outcome.Verdict, outcome.Reason)
}

func Test_Prove_WrongTarget(t *testing.T) {
	outcome := attemptClaim(t, `
- id: wrong
  lhs: "(config (k (i32.add (i32.const 1) (i32.const 1))))"
  rhs: "(config (k (i32.const 3)))"
`)
	//
	assert.Equal(t, Disproved, outcome.Verdict)
	require.Len(t, outcome.Counterexamples, 1)
	assert.Equal(t, []string{"i32.add"}, outcome.Counterexamples[0].History)
}

func Test_Prove_Vacuous(t *testing.T) {
	// Contradictory requirements make every branch unreachable.
	outcome := attemptClaim(t, `
- id: vacuous
  lhs: "(config (k (i32.const 7)))"
  rhs: "(config (k (i32.const 8)))"
  requires: ["(== 1 2)"]
`)
	//
	assert.Equal(t, Proved, outcome.Verdict)
}

func Test_Prove_UndecidedEnsures(t *testing.T) {
	// An undecidable ensured condition must surface as inconclusive, never as
	// a truth value.
	outcome := attemptClaim(t, `
- id: undecided
  lhs: "(config (k (i32.const X)))"
  rhs: "(config (k (i32.const X)))"
  ensures: ["(#byteMap X)"]
`)
	//
	assert.Equal(t, Inconclusive, outcome.Verdict)
}

func Test_Prove_NarrowedEnsures(t *testing.T) {
	// An ensured condition refuted by the requirements must never be taken as
	// established, even when the requirement's witness lies outside the
	// oracle's model search.
	outcome := attemptClaim(t, `
- id: narrowed
  lhs: "(config (k (i32.const N)))"
  rhs: "(config (k (i32.const N)))"
  requires: ["(== N 12345)"]
  ensures: ["(== N 6)"]
`)
	//
	assert.NotEqual(t, Proved, outcome.Verdict)
}

func Test_Prove_StepBound(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxSteps = 0
	//
	outcome := attemptClaimWith(t, opts, `
- id: bounded
  lhs: "(config (k nop))"
  rhs: "(config (k))"
`, "bytemap")
	//
	assert.Equal(t, Inconclusive, outcome.Verdict)
}

// ============================================================================
// Guarded memory access
// ============================================================================

func Test_Prove_GuardedLoad(t *testing.T) {
	// The required bound discharges the load's side condition, leaving a
	// single branch.
	outcome := attemptClaim(t, `
- id: load-ok
  lhs: "(config (k (i32.load (i32.const A))) (mem M))"
  rhs: "(config (k (i32.const (#getRange M A 4))) (mem M))"
  requires: ["(#byteMap M)", "(< (+ A 4) 65536)"]
`)
	//
	assert.Equal(t, Proved, outcome.Verdict, outcome.Reason)
	assert.Equal(t, uint(1), outcome.Branches)
}

func Test_Prove_UnguardedLoad(t *testing.T) {
	// Without the bound, the residual branch (address out of range) is a
	// reachable state in which the load is stuck.
	outcome := attemptClaim(t, `
- id: load-oob
  lhs: "(config (k (i32.load (i32.const A))) (mem M))"
  rhs: "(config (k (i32.const (#getRange M A 4))) (mem M))"
  requires: ["(#byteMap M)"]
`)
	//
	assert.Equal(t, Disproved, outcome.Verdict)
	require.Len(t, outcome.Counterexamples, 1)
	assert.Equal(t, []string{explore.ResidualStep}, outcome.Counterexamples[0].History)
}

// ============================================================================
// Lemma-gated proofs
// ============================================================================

func Test_Prove_StoreLoad_WithLemmas(t *testing.T) {
	outcome := attemptClaimWith(t, DefaultOptions(), `
- id: store-load
  lhs: "(config (k (i32.store (i32.const A) (i32.const V)) (i32.load (i32.const A))) (mem M))"
  rhs: "(config (k (i32.const V)) (mem (#setRange M A V 4)))"
  requires: ["(#byteMap M)", "(< (+ A 4) 65536)", "(#inRange V 32)"]
`, "bytemap")
	//
	assert.Equal(t, Proved, outcome.Verdict, outcome.Reason)
}

func Test_Prove_StoreLoad_WithoutLemmas(t *testing.T) {
	// The identical claim fails when the byte-map module is not activated:
	// the read does not collapse, so the final state misses the target.
	outcome := attemptClaimWith(t, DefaultOptions(), `
- id: store-load
  lhs: "(config (k (i32.store (i32.const A) (i32.const V)) (i32.load (i32.const A))) (mem M))"
  rhs: "(config (k (i32.const V)) (mem (#setRange M A V 4)))"
  requires: ["(#byteMap M)", "(< (+ A 4) 65536)", "(#inRange V 32)"]
`)
	//
	assert.NotEqual(t, Proved, outcome.Verdict)
}

func Test_Prove_ByteExtraction(t *testing.T) {
	// Reading a single byte from inside an earlier word-sized write.
	outcome := attemptClaimWith(t, DefaultOptions(), `
- id: byte-extract
  lhs: "(config (k (i32.load8 (i32.const (+ A 1)))) (mem (#setRange M A V 4)))"
  rhs: "(config (k (i32.const (#wrap 8 (#shr V 8)))) (mem (#setRange M A V 4)))"
  requires: ["(#byteMap M)", "(< (+ A 1) 65536)", "(#inRange V 32)"]
`, "bytemap")
	//
	assert.Equal(t, Proved, outcome.Verdict, outcome.Reason)
}

func Test_Prove_DisjointByte(t *testing.T) {
	// Reading a byte below an earlier write skips over it entirely.
	outcome := attemptClaimWith(t, DefaultOptions(), `
- id: byte-disjoint
  lhs: "(config (k (i32.load8 (i32.const A))) (mem (#setRange M (+ A 4) V 4)))"
  rhs: "(config (k (i32.const (#getByte M A))) (mem (#setRange M (+ A 4) V 4)))"
  requires: ["(#byteMap M)", "(< A 65536)"]
`, "bytemap")
	//
	assert.Equal(t, Proved, outcome.Verdict, outcome.Reason)
}

// ============================================================================
// Coinduction
// ============================================================================

func Test_Prove_Countdown(t *testing.T) {
	// The loop claim is discharged by applying itself at the back edge.
	outcome := attemptClaim(t, `
- id: countdown
  lhs: "(config (k (spin (i32.const N))))"
  rhs: "(config (k (spin (i32.const Z))))"
  requires: ["(<= 0 N)"]
  ensures: ["(<= Z 0)", "(<= 0 Z)"]
`)
	//
	assert.Equal(t, Proved, outcome.Verdict, outcome.Reason)
	assert.Equal(t, uint(2), outcome.Branches)
}

func Test_Prove_Countdown_Unfounded(t *testing.T) {
	// Without a lower bound, the exit branch is reachable with the counter
	// negative, falsifying the ensured conditions.
	outcome := attemptClaim(t, `
- id: countdown-neg
  lhs: "(config (k (spin (i32.const N))))"
  rhs: "(config (k (spin (i32.const Z))))"
  ensures: ["(== Z 0)"]
`)
	//
	assert.NotEqual(t, Proved, outcome.Verdict)
}

// ============================================================================
// Shipped databases
// ============================================================================

func Test_Prove_Shipped(t *testing.T) {
	database, err := rule.LoadDatabase("../../testdata/wasm-core.yaml", "../../testdata/bytemap.yaml")
	require.NoError(t, err)
	//
	activation, err := database.Activate("wasm-core", "bytemap")
	require.NoError(t, err)
	//
	claims, err := LoadClaims("../../testdata/claims.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, claims)
	//
	var (
		opts     = DefaultOptions()
		rewriter = rewrite.NewRewriter(activation)
		explorer = explore.NewExplorer(rewriter, opts.Workers)
		oracle   = smt.NewCache(smt.NewEvalOracle(rewrite.NewSimplifier(activation)))
		prover   = NewProver(explorer, oracle, opts)
	)
	//
	for _, outcome := range prover.ProveAll(context.Background(), claims) {
		assert.Equal(t, Proved, outcome.Verdict, "%s: %s", outcome.Claim, outcome.Reason)
	}
}

func Test_Prove_Shipped_Unbounded(t *testing.T) {
	// Dropping the address bound from the byte-reverse claim exposes the
	// out-of-range residual branches, which falsify it.
	database, err := rule.LoadDatabase("../../testdata/wasm-core.yaml", "../../testdata/bytemap.yaml")
	require.NoError(t, err)
	//
	activation, err := database.Activate("wasm-core", "bytemap")
	require.NoError(t, err)
	//
	claims, err := LoadClaims("../../testdata/claims.yaml")
	require.NoError(t, err)
	//
	var claim Claim
	//
	for _, c := range claims {
		if c.ID == "byte-reverse" {
			claim = c
		}
	}
	//
	require.Equal(t, "byte-reverse", claim.ID)
	// Retain only the byte-map requirement.
	requires := make([]term.Term, 0, len(claim.Requires))
	//
	for _, r := range claim.Requires {
		if !strings.Contains(r.String(), "65536") {
			requires = append(requires, r)
		}
	}
	//
	require.Len(t, requires, 1)
	claim.Requires = requires
	//
	var (
		opts     = DefaultOptions()
		rewriter = rewrite.NewRewriter(activation)
		explorer = explore.NewExplorer(rewriter, opts.Workers)
		oracle   = smt.NewCache(smt.NewEvalOracle(rewrite.NewSimplifier(activation)))
		prover   = NewProver(explorer, oracle, opts)
	)
	//
	outcome := prover.Prove(context.Background(), claim)
	//
	assert.Equal(t, Disproved, outcome.Verdict, outcome.Reason)
}

// ============================================================================
// Helpers
// ============================================================================

const testModules = `
- module: core
  values: ["i32.const"]
  strict:
    i32.add: null
    i32.load: null
    i32.load8: null
    i32.store: null
    local.set: [1]
  rules:
    - id: nop
      lhs: "(config (k nop Rest...))"
      rhs: "(config (k Rest...))"
    - id: i32.add
      lhs: "(config (k (i32.add (i32.const A) (i32.const B)) Rest...))"
      rhs: "(config (k (i32.const (#wrap 32 (+ A B))) Rest...))"
    - id: local.get
      lhs: "(config (k (local.get I) Rest...) (locals (#map (I V) L)))"
      rhs: "(config (k V Rest...))"
    - id: local.set
      lhs: "(config (k (local.set I V) Rest...) (locals (#map (I _) L)))"
      rhs: "(config (k Rest...) (locals (#map (I V) L)))"
    - id: i32.load
      lhs: "(config (k (i32.load (i32.const A)) Rest...) (mem M))"
      rhs: "(config (k (i32.const (#getRange M A 4)) Rest...))"
      when: ["(< (+ A 4) 65536)"]
    - id: i32.load8
      lhs: "(config (k (i32.load8 (i32.const A)) Rest...) (mem M))"
      rhs: "(config (k (i32.const (#getByte M A)) Rest...))"
      when: ["(< A 65536)"]
    - id: i32.store
      lhs: "(config (k (i32.store (i32.const A) (i32.const B)) Rest...) (mem M))"
      rhs: "(config (k Rest...) (mem (#setRange M A (#wrap 32 B) 4)))"
      when: ["(< (+ A 4) 65536)"]
    - id: spin-step
      lhs: "(config (k (spin (i32.const N)) Rest...))"
      rhs: "(config (k (spin (i32.const (- N 1))) Rest...))"
      when: ["(< 0 N)"]
- module: bytemap
  lemmas:
    - id: read-over-write
      lhs: "(#getRange (#setRange M A V W) A W)"
      rhs: "(#wrap (* 8 W) V)"
      when: ["(#byteMap M)"]
    - id: read-past-write
      lhs: "(#getRange (#setRange M B V W) A U)"
      rhs: "(#getRange M A U)"
      when: ["(#byteMap M)", "(or (<= (+ B W) A) (<= (+ A U) B))"]
    - id: byte-in-write
      lhs: "(#getByte (#setRange M A V W) B)"
      rhs: "(#wrap 8 (#shr V (* 8 (- B A))))"
      when: ["(#byteMap M)", "(<= A B)", "(< B (+ A W))"]
    - id: byte-past-write
      lhs: "(#getByte (#setRange M A V W) B)"
      rhs: "(#getByte M B)"
      when: ["(#byteMap M)", "(or (< B A) (<= (+ A W) B))"]
`

func attemptClaim(t *testing.T, claim string) Outcome {
	return attemptClaimWith(t, DefaultOptions(), claim, "bytemap")
}

func attemptClaimWith(t *testing.T, opts Options, claim string, extra ...string) Outcome {
	modules, err := rule.ParseModules([]byte(testModules))
	require.NoError(t, err)
	//
	database, err := rule.NewDatabase(modules...)
	require.NoError(t, err)
	//
	activation, err := database.Activate(append([]string{"core"}, extra...)...)
	require.NoError(t, err)
	//
	claims, err := ParseClaims([]byte(claim))
	require.NoError(t, err)
	require.Len(t, claims, 1)
	//
	var (
		rewriter = rewrite.NewRewriter(activation)
		explorer = explore.NewExplorer(rewriter, opts.Workers)
		oracle   = smt.NewCache(smt.NewEvalOracle(rewrite.NewSimplifier(activation)))
		prover   = NewProver(explorer, oracle, opts)
	)
	//
	return prover.Prove(context.Background(), claims[0])
}
