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
	"slices"

	"github.com/consensys/go-kestrel/pkg/logic"
	"github.com/consensys/go-kestrel/pkg/rule"
	"github.com/consensys/go-kestrel/pkg/term"
)

// Successor is one possible next configuration arising from a step, together
// with whatever undecided rule guards had to be assumed for the underlying
// rule to fire.  An unconditional successor carries no constraints.
type Successor struct {
	// Config is the resulting configuration, simplified under the branch's
	// assumptions.
	Config term.Configuration
	// Constraints are the assumed guard atoms, to be conjoined onto the path
	// condition of the branch.
	Constraints []logic.Atom
	// RuleID identifies the rule which fired.
	RuleID string
}

// StepResult describes the complete set of transitions from a configuration:
// every applicable rule at the best priority tier contributes a successor.
// Whenever every successor is conditional, a residual remains in which no rule
// fires; its atoms (the negated guards) must then be explored as a further
// branch.  An empty successor set means the configuration is irreducible.
type StepResult struct {
	// Config is the input configuration after strictness expansion and
	// simplification, from which the successors were derived.
	Config term.Configuration
	// Successors holds the derived transitions.
	Successors []Successor
	// Residual holds the negated guard atoms of the no-rule-fires case, when
	// one exists.
	Residual []logic.Atom
	// HasResidual signals that the residual case is reachable.
	HasResidual bool
}

// Rewriter advances configurations by a single rule application, administering
// evaluation order beforehand and simplification afterwards.  Rules are
// attempted in priority order (lower first); once any rule at a tier fires,
// later tiers are ignored.  Rewriters are immutable and safe for concurrent
// use.
type Rewriter struct {
	activation *rule.Activation
	expander   *Expander
}

// NewRewriter constructs a rewriter over a given activation.
func NewRewriter(activation *rule.Activation) *Rewriter {
	return &Rewriter{activation, NewExpander(activation)}
}

// Activation returns the activation this rewriter operates under.
func (p *Rewriter) Activation() *rule.Activation {
	return p.activation
}

// Prepare expands and simplifies a configuration under a given path condition,
// without applying any rule.
func (p *Rewriter) Prepare(config term.Configuration, assumptions []logic.Atom) term.Configuration {
	simplifier := NewSimplifier(p.activation).WithAssumptions(assumptions)
	//
	return simplifyConfig(simplifier, p.expander.Expand(config))
}

// Step derives every transition from a given configuration under a given path
// condition.
func (p *Rewriter) Step(config term.Configuration, assumptions []logic.Atom) StepResult {
	var (
		simplifier = NewSimplifier(p.activation).WithAssumptions(assumptions)
		expanded   = simplifyConfig(simplifier, p.expander.Expand(config))
		result     = StepResult{Config: expanded}
	)
	//
	for _, tier := range p.tiers() {
		for _, r := range p.activation.Rules() {
			if r.Priority != tier {
				continue
			}
			//
			if succ, ok := p.apply(r, expanded, simplifier, assumptions); ok {
				result.Successors = append(result.Successors, succ)
			}
		}
		//
		if len(result.Successors) > 0 {
			break
		}
	}
	//
	result.Residual, result.HasResidual = residualOf(result.Successors)
	//
	return result
}

// Attempt to apply a single rule, discharging its guards against the path
// condition.  A guard which is decidedly false blocks the rule; an undecided
// guard becomes a constraint of the successor.
func (p *Rewriter) apply(r rule.Rule, config term.Configuration, simplifier *Simplifier,
	assumptions []logic.Atom) (Successor, bool) {
	sub := term.NewSubstitution()
	//
	if !term.MatchConfig(r.LHS, config, sub) {
		return Successor{}, false
	}
	//
	var constraints []logic.Atom
	//
	for _, guard := range r.When {
		cond := simplifier.Simplify(guard.Substitute(sub))
		decided, holds := simplifier.Holds(cond)
		//
		switch {
		case decided && !holds:
			return Successor{}, false
		case !decided:
			constraints = append(constraints, logic.NewAtom(cond))
		}
	}
	// Overlay the RHS cells onto the target, leaving unmentioned cells
	// untouched.
	next := config
	//
	for _, cell := range r.RHS.Substitute(sub).Cells() {
		next = next.WithCell(cell)
	}
	//
	branch := simplifier.WithAssumptions(append(slices.Clone(assumptions), constraints...))
	//
	return Successor{simplifyConfig(branch, next), constraints, r.ID}, true
}

// The distinct rule priorities of the activation, ascending.
func (p *Rewriter) tiers() []uint {
	var tiers []uint
	//
	for _, r := range p.activation.Rules() {
		if !slices.Contains(tiers, r.Priority) {
			tiers = append(tiers, r.Priority)
		}
	}
	//
	slices.Sort(tiers)
	//
	return tiers
}

// Determine the residual of a successor set.  The residual exists exactly when
// every successor is conditional; its atoms are the negations of each
// successor's (combined) guard.
func residualOf(successors []Successor) ([]logic.Atom, bool) {
	if len(successors) == 0 {
		return nil, false
	}
	//
	var residual []logic.Atom
	//
	for _, succ := range successors {
		if len(succ.Constraints) == 0 {
			return nil, false
		}
		//
		residual = append(residual, combine(succ.Constraints).Negate())
	}
	//
	return residual, true
}

// Conjoin a non-empty set of atoms into a single atom, so that its negation
// remains expressible as an atom.
func combine(atoms []logic.Atom) logic.Atom {
	if len(atoms) == 1 {
		return atoms[0]
	}
	//
	terms := make([]term.Term, len(atoms))
	//
	for i, a := range atoms {
		terms[i] = a.Term()
	}
	//
	return logic.NewAtom(term.NewApply("and", terms...))
}

func simplifyConfig(simplifier *Simplifier, config term.Configuration) term.Configuration {
	next := config
	//
	for _, cell := range config.Cells() {
		ncontent := simplifier.Simplify(cell.Content)
		//
		if !term.Equal(ncontent, cell.Content) {
			next = next.WithCell(term.Cell{Name: cell.Name, Key: cell.Key, Content: ncontent})
		}
	}
	//
	return next
}
