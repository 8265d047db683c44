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
package explore

import (
	"context"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/consensys/go-kestrel/pkg/rewrite"
	"github.com/consensys/go-kestrel/pkg/rule"
	"github.com/consensys/go-kestrel/pkg/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Expand_01(t *testing.T) {
	// A single unconditional rule yields a single child.
	expansion := explorer(t).Expand(root("(config (k nop stop))"))
	//
	require.Len(t, expansion.Children, 1)
	assert.False(t, expansion.Irreducible)
	assert.Equal(t, []string{"nop"}, expansion.Children[0].History)
	assert.Equal(t, uint(1), expansion.Children[0].Depth)
}

func Test_Expand_02(t *testing.T) {
	// An irreducible configuration is reported as such.
	expansion := explorer(t).Expand(root("(config (k stop))"))
	//
	assert.Empty(t, expansion.Children)
	assert.True(t, expansion.Irreducible)
}

func Test_Expand_03(t *testing.T) {
	// An undecided side condition branches into the conditional successor and
	// the residual.
	expansion := explorer(t).Expand(root("(config (k (i32.load (i32.const A))) (mem (#bytes)))"))
	//
	require.Len(t, expansion.Children, 2)
	//
	var (
		taken    = expansion.Children[0]
		residual = expansion.Children[1]
	)
	//
	assert.Equal(t, []string{"i32.load"}, taken.History)
	assert.Equal(t, []string{ResidualStep}, residual.History)
	// Both extend the path condition, in opposite directions.
	require.Len(t, taken.Path, 1)
	require.Len(t, residual.Path, 1)
	assert.Equal(t, 0, taken.Path[0].Negate().Cmp(residual.Path[0]))
}

func Test_Expand_04(t *testing.T) {
	// Re-stepping the residual under the negated guard shows irreducibility.
	var (
		e         = explorer(t)
		expansion = e.Expand(root("(config (k (i32.load (i32.const A))) (mem (#bytes)))"))
	)
	//
	require.Len(t, expansion.Children, 2)
	//
	next := e.Expand(expansion.Children[1])
	assert.True(t, next.Irreducible)
}

func Test_Expand_05(t *testing.T) {
	// Parallel expansion preserves wave order.
	var (
		e     = NewExplorer(rewriter(t), 4)
		nodes = []*Node{
			root("(config (k nop stop))"),
			root("(config (k stop))"),
			root("(config (k nop nop stop))"),
		}
	)
	//
	expansions, err := e.ExpandAll(context.Background(), nodes)
	require.NoError(t, err)
	require.Len(t, expansions, 3)
	//
	assert.Len(t, expansions[0].Children, 1)
	assert.True(t, expansions[1].Irreducible)
	assert.Len(t, expansions[2].Children, 1)
}

func Test_Expand_06(t *testing.T) {
	// A cancelled context aborts the wave.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	//
	_, err := explorer(t).ExpandAll(ctx, []*Node{root("(config (k nop stop))")})
	assert.Error(t, err)
}

func Test_Run_01(t *testing.T) {
	// Concrete execution to an irreducible state.
	config, trace, err := explorer(t).Run(context.Background(),
		term.MustParseConfig("(config (k (i32.add (i32.const 40) (i32.const 2)) stop))"), 10)
	//
	require.NoError(t, err)
	assert.Equal(t, []string{"i32.add"}, trace)
	//
	cell, ok := config.Cell(rewrite.ControlCell)
	require.True(t, ok)
	assert.Equal(t, "(k (i32.const 42) stop)", cell.String())
}

func Test_Run_02(t *testing.T) {
	// The step bound is enforced.
	_, _, err := explorer(t).Run(context.Background(),
		term.MustParseConfig("(config (k nop nop nop stop))"), 2)
	//
	assert.Error(t, err)
}

func Test_Run_03(t *testing.T) {
	// The shipped example program runs to completion under the shipped rules.
	database, err := rule.LoadDatabase("../../testdata/wasm-core.yaml")
	require.NoError(t, err)
	//
	activation, err := database.Activate("wasm-core")
	require.NoError(t, err)
	//
	data, err := os.ReadFile("../../testdata/increment.sexp")
	require.NoError(t, err)
	//
	program, err := term.ParseConfig(string(data))
	require.NoError(t, err)
	//
	config, trace, err := NewExplorer(rewrite.NewRewriter(activation), 1).
		Run(context.Background(), program, 100)
	require.NoError(t, err)
	//
	expected := []string{"local.get", "i32.add", "local.set", "local.get"}
	if diff := cmp.Diff(expected, trace); diff != "" {
		t.Errorf("unexpected trace (-want +got):\n%s", diff)
	}
	//
	cell, ok := config.Cell(rewrite.ControlCell)
	require.True(t, ok)
	assert.Equal(t, "(k (i32.const 42))", cell.String())
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
  rules:
    - id: nop
      lhs: "(config (k nop Rest...))"
      rhs: "(config (k Rest...))"
    - id: i32.add
      lhs: "(config (k (i32.add (i32.const A) (i32.const B)) Rest...))"
      rhs: "(config (k (i32.const (#wrap 32 (+ A B))) Rest...))"
    - id: i32.load
      lhs: "(config (k (i32.load (i32.const A)) Rest...) (mem M))"
      rhs: "(config (k (i32.const (#getRange M A 4)) Rest...))"
      when: ["(< (+ A 4) 65536)"]
`

func rewriter(t *testing.T) *rewrite.Rewriter {
	modules, err := rule.ParseModules([]byte(testModules))
	require.NoError(t, err)
	//
	database, err := rule.NewDatabase(modules...)
	require.NoError(t, err)
	//
	activation, err := database.Activate("core")
	require.NoError(t, err)
	//
	return rewrite.NewRewriter(activation)
}

func explorer(t *testing.T) *Explorer {
	return NewExplorer(rewriter(t), 1)
}

func root(config string) *Node {
	return NewRoot(term.MustParseConfig(config), nil)
}
