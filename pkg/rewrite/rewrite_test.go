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
package rewrite

import (
	"testing"

	"github.com/consensys/go-kestrel/pkg/logic"
	"github.com/consensys/go-kestrel/pkg/rule"
	"github.com/consensys/go-kestrel/pkg/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Simplifier (built-in layer)
// ============================================================================

func Test_Simplify_01(t *testing.T) {
	checkSimplify(t, "(+ 1 2)", "3")
}

func Test_Simplify_02(t *testing.T) {
	checkSimplify(t, "(* (+ 1 2) (- 10 4))", "18")
}

func Test_Simplify_03(t *testing.T) {
	// Division by zero is left symbolic.
	checkSimplify(t, "(div 1 0)", "(div 1 0)")
}

func Test_Simplify_04(t *testing.T) {
	checkSimplify(t, "(#wrap 32 4294967296)", "0")
}

func Test_Simplify_05(t *testing.T) {
	checkSimplify(t, "(#wrap 8 511)", "255")
}

func Test_Simplify_06(t *testing.T) {
	// Additive identity with a symbolic operand.
	checkSimplify(t, "(+ X 0)", "X")
}

func Test_Simplify_07(t *testing.T) {
	// Equality over a shared symbolic base.
	checkSimplify(t, "(== (+ A 3) (+ A 5))", "false")
	checkSimplify(t, "(== (+ A 3) (+ 3 A))", "true")
}

func Test_Simplify_08(t *testing.T) {
	checkSimplify(t, "(!= (+ A 1) (+ A 2))", "true")
	checkSimplify(t, "(< (+ A 1) (+ A 2))", "true")
	checkSimplify(t, "(<= (+ A 2) (+ A 1))", "false")
}

func Test_Simplify_09(t *testing.T) {
	// Differing bases stay undecided.
	checkSimplify(t, "(== (+ A 1) (+ B 1))", "(== (+ A 1) (+ B 1))")
}

func Test_Simplify_10(t *testing.T) {
	checkSimplify(t, "(and true (== X 1))", "(== X 1)")
	checkSimplify(t, "(and false (== X 1))", "false")
	checkSimplify(t, "(or true (== X 1))", "true")
	checkSimplify(t, "(not false)", "true")
}

func Test_Simplify_11(t *testing.T) {
	// Concrete byte-map reads and writes.
	checkSimplify(t, "(#getByte (#bytes (0 17)) 0)", "17")
	checkSimplify(t, "(#getByte (#bytes (0 17)) 5)", "0")
	checkSimplify(t, "(#setByte (#bytes) 3 255)", "(#bytes (3 255))")
}

func Test_Simplify_12(t *testing.T) {
	// Little-endian range access.
	checkSimplify(t, "(#getRange (#setRange (#bytes) 0 258 2) 0 2)", "258")
	checkSimplify(t, "(#getRange (#setRange (#bytes) 0 258 2) 0 1)", "2")
	checkSimplify(t, "(#getRange (#setRange (#bytes) 0 258 2) 1 1)", "1")
}

func Test_Simplify_13(t *testing.T) {
	// Storing zero restores the empty canonical map.
	checkSimplify(t, "(#setRange (#setRange (#bytes) 0 7 1) 0 0 1)", "(#bytes)")
}

func Test_Simplify_14(t *testing.T) {
	checkSimplify(t, "(#byteMap (#bytes (1 2)))", "true")
	checkSimplify(t, "(#byteMap (#setRange M A V W))", "(#byteMap M)")
	checkSimplify(t, "(#byteMap (#setByte (#setRange M A V W) B U))", "(#byteMap M)")
}

func Test_Simplify_15(t *testing.T) {
	checkSimplify(t, "(#inRange 255 8)", "true")
	checkSimplify(t, "(#inRange 256 8)", "false")
	checkSimplify(t, "(#inRange (#getByte M A) 8)", "true")
	checkSimplify(t, "(#inRange (#getRange M A 4) 32)", "true")
	checkSimplify(t, "(#inRange (#wrap 8 X) 32)", "true")
}

func Test_Simplify_16(t *testing.T) {
	// Wrap of a value known (structurally) to be in range passes through.
	checkSimplify(t, "(#wrap 32 (#getRange M A 4))", "(#getRange M A 4)")
}

func Test_Simplify_17(t *testing.T) {
	// Holds against assumed atoms.
	simplifier := NewSimplifier(nil).WithAssumptions(assume("(#byteMap M)"))
	//
	decided, holds := simplifier.Holds(term.MustParseTerm("(#byteMap M)"))
	assert.True(t, decided)
	assert.True(t, holds)
	//
	decided, holds = simplifier.Holds(term.MustParseTerm("(not (#byteMap M))"))
	assert.True(t, decided)
	assert.False(t, holds)
	//
	decided, _ = simplifier.Holds(term.MustParseTerm("(#byteMap N)"))
	assert.False(t, decided)
}

func Test_Simplify_18(t *testing.T) {
	// Simplification is idempotent once a fixed point is reached.
	var (
		simplifier = NewSimplifier(activate(t))
		input      = term.MustParseTerm("(i32.add (i32.const (+ 1 2)) (i32.const X))")
		once       = simplifier.Simplify(input)
		twice      = simplifier.Simplify(once)
	)
	//
	assert.True(t, term.Equal(once, twice), "expected %s, got %s", once, twice)
}

// ============================================================================
// Simplifier (lemma layer)
// ============================================================================

func Test_Lemma_01(t *testing.T) {
	// Read-over-write collapse requires the byte-map guard.
	var (
		activation = activate(t, "bytemap")
		input      = term.MustParseTerm("(#getRange (#setRange M A V 4) A 4)")
	)
	// Without the guard assumed, the lemma is blocked.
	blocked := NewSimplifier(activation).Simplify(input)
	assert.True(t, term.Equal(blocked, input), "expected %s, got %s", input, blocked)
	// With it, the read collapses to the wrapped value.
	simplifier := NewSimplifier(activation).WithAssumptions(assume("(#byteMap M)"))
	//
	collapsed := simplifier.Simplify(input)
	assert.True(t, term.Equal(collapsed, term.MustParseTerm("(#wrap 32 V)")),
		"unexpected %s", collapsed)
}

func Test_Lemma_02(t *testing.T) {
	// An inactive module's lemmas simply do not exist.
	var (
		activation = activate(t)
		input      = term.MustParseTerm("(#getRange (#setRange M A V 4) A 4)")
		simplifier = NewSimplifier(activation).WithAssumptions(assume("(#byteMap M)"))
	)
	//
	output := simplifier.Simplify(input)
	assert.True(t, term.Equal(output, input), "expected %s, got %s", input, output)
}

func Test_Lemma_03(t *testing.T) {
	// Reads past a disjoint write skip over it.
	var (
		activation = activate(t, "bytemap")
		simplifier = NewSimplifier(activation).WithAssumptions(assume("(#byteMap M)"))
		input      = term.MustParseTerm("(#getRange (#setRange M (+ A 8) V 4) A 4)")
	)
	//
	output := simplifier.Simplify(input)
	assert.True(t, term.Equal(output, term.MustParseTerm("(#getRange M A 4)")),
		"unexpected %s", output)
}

// ============================================================================
// Expander
// ============================================================================

func Test_Expand_01(t *testing.T) {
	// A non-value strict argument is scheduled ahead of its context.
	checkExpand(t,
		"(config (k (i32.add (local.get 0) (i32.const 1))))",
		"(config (k (local.get 0) (#freezer i32.add #hole (i32.const 1))))")
}

func Test_Expand_02(t *testing.T) {
	// Values are never heated, so a fully-evaluated redex is a fixed point.
	checkExpand(t,
		"(config (k (i32.add (i32.const 1) (i32.const 2))))",
		"(config (k (i32.add (i32.const 1) (i32.const 2))))")
}

func Test_Expand_03(t *testing.T) {
	// A value constructor with a symbolic operand still counts as a value.
	checkExpand(t,
		"(config (k (i32.add (i32.const X) (i32.const (#getRange M A 4)))))",
		"(config (k (i32.add (i32.const X) (i32.const (#getRange M A 4)))))")
}

func Test_Expand_04(t *testing.T) {
	// Cooling plugs a value at the head into the freezer behind it.
	var (
		expander = NewExpander(activate(t))
		config   = term.MustParseConfig(
			"(config (k (i32.const 7) (#freezer i32.add #hole (i32.const 1)) nop))")
		expected = term.MustParseConfig(
			"(config (k (i32.add (i32.const 7) (i32.const 1)) nop))")
	)
	//
	actual := expander.Expand(config)
	assert.True(t, actual.EqualsConfig(expected), "expected %s, got %s", expected, actual)
}

func Test_Expand_05(t *testing.T) {
	// Heat/cool round trip: heating an argument which then turns out to be a
	// value cools straight back to the original redex.
	var (
		expander = NewExpander(activate(t))
		config   = term.MustParseConfig("(config (k (local.get 0) (#freezer i32.add #hole (i32.const 1))))")
		rewriter = NewRewriter(activate(t))
	)
	// Expansion alone cannot proceed (local.get needs a rule).
	assert.True(t, expander.Expand(config).EqualsConfig(config))
	// Once the rule fires, cooling restores the surrounding context.
	result := rewriter.Step(withLocals(config, "(#map (0 (i32.const 5)))"), nil)
	require.Len(t, result.Successors, 1)
	//
	next := rewriter.Step(result.Successors[0].Config, nil)
	//
	cell, ok := next.Config.Cell(ControlCell)
	require.True(t, ok)
	assert.Equal(t, "(k (i32.add (i32.const 5) (i32.const 1)))", cell.String())
}

// ============================================================================
// Rewriter
// ============================================================================

func Test_Step_01(t *testing.T) {
	// nop is consumed outright.
	result := step(t, "(config (k nop (i32.const 1)))", nil)
	//
	require.Len(t, result.Successors, 1)
	assert.False(t, result.HasResidual)
	assertControl(t, result.Successors[0].Config, "(k (i32.const 1))")
}

func Test_Step_02(t *testing.T) {
	// i32.add folds its (wrapped) operands.
	result := step(t, "(config (k (i32.add (i32.const 7) (i32.const 1))))", nil)
	//
	require.Len(t, result.Successors, 1)
	assertControl(t, result.Successors[0].Config, "(k (i32.const 8))")
}

func Test_Step_03(t *testing.T) {
	// Wrap-around at the 32-bit boundary.
	result := step(t, "(config (k (i32.add (i32.const 4294967295) (i32.const 1))))", nil)
	//
	require.Len(t, result.Successors, 1)
	assertControl(t, result.Successors[0].Config, "(k (i32.const 0))")
}

func Test_Step_04(t *testing.T) {
	// local.get reads the locals map, sharing bindings across cells.
	result := step(t,
		"(config (k (local.get 0)) (locals (#map (0 (i32.const 5)))))", nil)
	//
	require.Len(t, result.Successors, 1)
	assertControl(t, result.Successors[0].Config, "(k (i32.const 5))")
}

func Test_Step_05(t *testing.T) {
	// local.set updates the locals map, leaving other bindings intact.
	result := step(t,
		"(config (k (local.set 0 (i32.const 9))) (locals (#map (0 (i32.const 5)) (1 (i32.const 6)))))", nil)
	//
	require.Len(t, result.Successors, 1)
	//
	cell, ok := result.Successors[0].Config.Cell("locals")
	require.True(t, ok)
	//
	expected := term.MustParseTerm("(#seq (#map (0 (i32.const 9)) (1 (i32.const 6))))")
	assert.True(t, term.Equal(cell.Content, expected), "unexpected %s", cell.Content)
}

func Test_Step_06(t *testing.T) {
	// An irreducible configuration yields no successors.
	result := step(t, "(config (k (local.get 0)) (locals (#map)))", nil)
	//
	assert.Empty(t, result.Successors)
	assert.False(t, result.HasResidual)
}

func Test_Step_07(t *testing.T) {
	// A guarded rule with an undecided side condition yields a conditional
	// successor plus a residual.
	result := step(t,
		"(config (k (i32.load (i32.const A))) (mem (#bytes)))", nil)
	//
	require.Len(t, result.Successors, 1)
	assert.True(t, result.HasResidual)
	assert.NotEmpty(t, result.Successors[0].Constraints)
	// Residual atoms are the negated guards.
	require.Len(t, result.Residual, 1)
	assert.Equal(t, result.Successors[0].Constraints[0].Negate().Cmp(result.Residual[0]), 0)
}

func Test_Step_08(t *testing.T) {
	// The same guard decided by the path condition leaves no residual.
	var (
		assumptions = assume("(< (+ A 4) 65536)")
		result      = step(t, "(config (k (i32.load (i32.const A))) (mem (#bytes)))", assumptions)
	)
	//
	require.Len(t, result.Successors, 1)
	assert.Empty(t, result.Successors[0].Constraints)
	assert.False(t, result.HasResidual)
}

func Test_Step_09(t *testing.T) {
	// Stepping is deterministic: repeated application from the same state
	// yields identical results.
	config := "(config (k (local.get 0) nop) (locals (#map (0 (i32.const 1)))))"
	first := step(t, config, nil)
	//
	for i := 0; i < 10; i++ {
		next := step(t, config, nil)
		//
		require.Len(t, next.Successors, len(first.Successors))
		//
		for j := range next.Successors {
			assert.True(t, next.Successors[j].Config.EqualsConfig(first.Successors[j].Config))
			assert.Equal(t, first.Successors[j].RuleID, next.Successors[j].RuleID)
		}
	}
}

func Test_Step_10(t *testing.T) {
	// Lower priority tiers preempt higher ones.
	db, err := rule.ParseModules([]byte(`
- module: tiers
  rules:
    - id: slow
      priority: 2
      lhs: "(config (k go Rest...))"
      rhs: "(config (k slow Rest...))"
    - id: fast
      priority: 1
      lhs: "(config (k go Rest...))"
      rhs: "(config (k fast Rest...))"
`))
	require.NoError(t, err)
	//
	database, err := rule.NewDatabase(db...)
	require.NoError(t, err)
	activation, err := database.Activate("tiers")
	require.NoError(t, err)
	//
	result := NewRewriter(activation).Step(term.MustParseConfig("(config (k go))"), nil)
	require.Len(t, result.Successors, 1)
	assert.Equal(t, "fast", result.Successors[0].RuleID)
}

// ============================================================================
// Helpers
// ============================================================================

// A compact instruction set used throughout: locals access, constants, 32-bit
// addition and a guarded linear-memory load, plus the read-over-write lemmas.
const testModules = `
- module: core
  values: ["i32.const"]
  strict:
    i32.add: null
    i32.load: null
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
`

func activate(t *testing.T, extra ...string) *rule.Activation {
	modules, err := rule.ParseModules([]byte(testModules))
	require.NoError(t, err)
	//
	database, err := rule.NewDatabase(modules...)
	require.NoError(t, err)
	//
	activation, err := database.Activate(append([]string{"core"}, extra...)...)
	require.NoError(t, err)
	//
	return activation
}

func step(t *testing.T, config string, assumptions []logic.Atom) StepResult {
	return NewRewriter(activate(t, "bytemap")).Step(term.MustParseConfig(config), assumptions)
}

func checkSimplify(t *testing.T, input string, expected string) {
	var (
		simplifier = NewSimplifier(activate(t))
		actual     = simplifier.Simplify(term.MustParseTerm(input))
	)
	//
	if !term.Equal(actual, term.MustParseTerm(expected)) {
		t.Errorf("simplify(%s): expected %s, got %s", input, expected, actual)
	}
}

func checkExpand(t *testing.T, input string, expected string) {
	var (
		expander = NewExpander(activate(t))
		actual   = expander.Expand(term.MustParseConfig(input))
	)
	//
	if !actual.EqualsConfig(term.MustParseConfig(expected)) {
		t.Errorf("expand(%s): expected %s, got %s", input, expected, actual)
	}
}

func assertControl(t *testing.T, config term.Configuration, expected string) {
	cell, ok := config.Cell(ControlCell)
	require.True(t, ok)
	assert.Equal(t, expected, cell.String())
}

func assume(atoms ...string) []logic.Atom {
	var out []logic.Atom
	//
	for _, a := range atoms {
		out = append(out, logic.NewAtom(term.MustParseTerm(a)))
	}
	//
	return out
}

func withLocals(config term.Configuration, locals string) term.Configuration {
	return config.WithCell(term.NewCell("locals", term.NewSeq(term.MustParseTerm(locals))))
}
