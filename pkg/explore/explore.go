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

// Package explore drives symbolic execution over the rewriter, maintaining the
// tree of reachable symbolic states.  Each node pairs a configuration with the
// path condition under which it is reached; branching arises from rules whose
// side conditions the path condition does not decide.  Since branches never
// merge, a path condition is always a single conjunction of atoms.
package explore

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/consensys/go-kestrel/pkg/logic"
	"github.com/consensys/go-kestrel/pkg/rewrite"
	"github.com/consensys/go-kestrel/pkg/term"
)

// Marker recorded in a node's history when it arises as the residual of
// conditional rule applications, rather than from a rule firing.
const ResidualStep = "(residual)"

// Node is one symbolic state in the execution tree.
type Node struct {
	// Config is the symbolic configuration of this state.
	Config term.Configuration
	// Path holds the atoms of the path condition under which this state is
	// reached.
	Path []logic.Atom
	// History records the identifiers of the rules applied from the root, in
	// order.
	History []string
	// Depth is the number of steps from the root.
	Depth uint
	// Parent is the predecessor state, or nil at the root.
	Parent *Node
}

// NewRoot constructs the root node of an execution tree.
func NewRoot(config term.Configuration, path []logic.Atom) *Node {
	return &Node{Config: config, Path: path}
}

// Proposition renders this node's path condition as a proposition.
func (p *Node) Proposition() logic.Proposition {
	return logic.NewProposition(p.Path...)
}

// Expansion is the result of expanding a single node: its children (one per
// successor, plus the residual state when one exists), or irreducibility.
type Expansion struct {
	// Node is the expanded node, with its configuration replaced by the
	// prepared (expanded, simplified) form from which successors were derived.
	Node *Node
	// Children are the derived successor states.
	Children []*Node
	// Irreducible indicates no rule applies to this node at all.
	Irreducible bool
}

// Explorer expands symbolic states breadth-first.  Explorers are immutable and
// safe for concurrent use; parallelism is bounded by the worker limit.
type Explorer struct {
	rewriter *rewrite.Rewriter
	workers  int
}

// NewExplorer constructs an explorer over a given rewriter, with a given bound
// on concurrent expansions.
func NewExplorer(rewriter *rewrite.Rewriter, workers int) *Explorer {
	if workers < 1 {
		workers = 1
	}
	//
	return &Explorer{rewriter, workers}
}

// Rewriter returns the underlying rewriter.
func (p *Explorer) Rewriter() *rewrite.Rewriter {
	return p.rewriter
}

// Expand derives the children of a single node.  A residual state (where
// every applicable rule was conditional, and all conditions are assumed
// false) is enqueued as an ordinary child: re-stepping it under the extended
// path condition either fires an unconditional rule or shows irreducibility.
func (p *Explorer) Expand(node *Node) Expansion {
	var (
		result    = p.rewriter.Step(node.Config, node.Path)
		stepped   = node.WithConfig(result.Config)
		expansion = Expansion{Node: stepped}
	)
	//
	if len(result.Successors) == 0 {
		expansion.Irreducible = true
		return expansion
	}
	//
	for _, succ := range result.Successors {
		expansion.Children = append(expansion.Children, stepped.Child(succ.Config, succ.Constraints, succ.RuleID))
	}
	//
	if result.HasResidual {
		expansion.Children = append(expansion.Children,
			stepped.Child(result.Config, result.Residual, ResidualStep))
	}
	//
	return expansion
}

// ExpandAll expands a wave of nodes in parallel, preserving order.  Expansion
// is aborted (with the context's error) if the context is cancelled
// mid-wave.
func (p *Explorer) ExpandAll(ctx context.Context, nodes []*Node) ([]Expansion, error) {
	var (
		expansions = make([]Expansion, len(nodes))
		group, gctx = errgroup.WithContext(ctx)
	)
	//
	group.SetLimit(p.workers)
	//
	for i, node := range nodes {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			//
			expansions[i] = p.Expand(node)
			//
			return nil
		})
	}
	//
	if err := group.Wait(); err != nil {
		return nil, err
	}
	//
	return expansions, nil
}

// Run executes a configuration concretely: steps are applied until no rule
// fires, a branch is encountered, the step bound is exhausted or the context
// is cancelled.  Returns the final (prepared) configuration along with the
// rule trace.
func (p *Explorer) Run(ctx context.Context, config term.Configuration, maxSteps uint) (term.Configuration, []string, error) {
	node := NewRoot(config, nil)
	//
	for node.Depth < maxSteps {
		if err := ctx.Err(); err != nil {
			return node.Config, node.History, err
		}
		//
		expansion := p.Expand(node)
		//
		if expansion.Irreducible {
			return expansion.Node.Config, expansion.Node.History, nil
		} else if len(expansion.Children) != 1 {
			return expansion.Node.Config, expansion.Node.History,
				fmt.Errorf("branch after %d steps (%d successors)", node.Depth, len(expansion.Children))
		}
		//
		node = expansion.Children[0]
	}
	//
	return node.Config, node.History, fmt.Errorf("step bound %d exhausted", maxSteps)
}

// Child derives a successor node, conjoining constraints onto the path
// condition and recording the applied rule.
func (p *Node) Child(config term.Configuration, constraints []logic.Atom, ruleID string) *Node {
	path := make([]logic.Atom, 0, len(p.Path)+len(constraints))
	path = append(path, p.Path...)
	path = append(path, constraints...)
	//
	history := make([]string, 0, len(p.History)+1)
	history = append(history, p.History...)
	history = append(history, ruleID)
	//
	return &Node{config, path, history, p.Depth + 1, p}
}

// WithConfig returns a copy of this node holding a different (typically
// further prepared) form of the same configuration.
func (p *Node) WithConfig(config term.Configuration) *Node {
	return &Node{config, p.Path, p.History, p.Depth, p.Parent}
}
